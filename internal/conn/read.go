package conn

import (
	"bufio"
	"io"
	"os"

	"github.com/Gronis/wasmdev/internal/httpmsg"
)

// readHeaderBlock reads from r until the "\r\n\r\n" terminator appears in
// buf (which may already hold bytes left over from a pipelined previous
// request), then returns the header block up to but excluding the
// terminator, plus whatever bytes remain buffered after it for the next
// call. Only the header block and its terminator are consumed; a
// subsequent request already read into buf is preserved in rest.
func readHeaderBlock(r *bufio.Reader, buf []byte) (block []byte, rest []byte, err error) {
	for {
		if idx := httpmsg.HeaderBlockEnd(buf); idx >= 0 {
			return buf[:idx], buf[idx+4:], nil
		}
		tmp := make([]byte, 4096)
		n, readErr := r.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if readErr != nil {
			if n == 0 {
				return nil, nil, io.EOF
			}
			// Keep scanning the bytes we already have before surfacing the
			// error on the next call.
			if idx := httpmsg.HeaderBlockEnd(buf); idx >= 0 {
				return buf[:idx], buf[idx+4:], nil
			}
			return nil, nil, readErr
		}
		if n == 0 {
			return nil, nil, io.EOF
		}
	}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
