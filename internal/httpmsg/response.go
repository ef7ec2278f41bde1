package httpmsg

import "io"

// WriteTo serializes the response as a status line, header lines, a blank
// line, then body bytes verbatim, then (only when there is a body) a
// trailing CRLF. The writer is
// streaming — no buffering of the full response beyond what io.Writer does
// internally (§4.A: "header block first, body bytes as-is, flush").
func (r Response) WriteTo(w io.Writer) (int64, error) {
	var total int64

	statusLine := r.Version.String() + " " + r.Status.String() + " " + r.Status.Name() + "\r\n"
	n, err := io.WriteString(w, statusLine)
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, h := range r.Headers {
		n, err = io.WriteString(w, h.String()+"\r\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	n, err = io.WriteString(w, "\r\n")
	total += int64(n)
	if err != nil {
		return total, err
	}

	if len(r.Body) > 0 {
		m, err := w.Write(r.Body)
		total += int64(m)
		if err != nil {
			return total, err
		}
	}

	// Trailing CRLF after the body, matching the original write_response's
	// explicit terminator — only emitted when a body was actually sent, so
	// a bodyless response (e.g. the 101 upgrade reply) ends at the blank
	// line and doesn't leak stray bytes onto the wire.
	if len(r.Body) > 0 {
		n, err = io.WriteString(w, "\r\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NewResponse builds a Response with Content-Length and Content-Type
// headers derived from body, matching make_http_response's defaulting
// behavior.
func NewResponse(version Version, status StatusCode, contentType string, body []byte) Response {
	headers := []Header{
		ContentLength(len(body)),
	}
	if contentType != "" {
		headers = append(headers, ContentType(contentType))
	}
	return Response{Version: version, Status: status, Headers: headers, Body: body}
}
