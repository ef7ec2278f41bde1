package httpmsg

import (
	"strings"
	"unicode/utf8"
)

// ParseRequest parses a complete header block (request line + header
// lines), already isolated by the caller up to but excluding the trailing
// "\r\n\r\n" (the connection handler finds that terminator before calling
// this — see §4.D). No request body is ever read; that's unsupported by
// design.
func ParseRequest(block []byte) (Request, error) {
	if !utf8.Valid(block) {
		return Request{}, &ParseError{Kind: KindUTF8, Msg: "request is not valid utf-8"}
	}
	lines := strings.Split(string(block), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return Request{}, &ParseError{Kind: KindIncomplete, Msg: "empty request line"}
	}

	words := strings.Split(lines[0], " ")
	if len(words) != 3 {
		return Request{}, &ParseError{Kind: KindFormat, Msg: "malformed request line: " + lines[0]}
	}

	method, err := ParseMethod(words[0])
	if err != nil {
		return Request{}, err
	}
	path := words[1]
	version, err := ParseVersion(words[2])
	if err != nil {
		return Request{}, err
	}

	var headers []Header
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		h, err := ParseHeader(line)
		if err != nil {
			// A malformed individual header line is a hard parse failure —
			// the whole request is rejected (§4.A: "Failures are reported
			// as a tagged error").
			return Request{}, err
		}
		headers = append(headers, h)
	}

	return Request{Method: method, Path: path, Version: version, Headers: headers}, nil
}

// HeaderBlockEnd returns the index of the first byte of the "\r\n\r\n"
// terminator within buf, or -1 if it isn't present yet. The connection
// handler uses this to decide whether more data needs to be read before a
// request can be parsed.
func HeaderBlockEnd(buf []byte) int {
	return strings.Index(string(buf), "\r\n\r\n")
}
