// Package httpmsg implements the minimal HTTP/1.0-1.1 request/response codec
// the dev server speaks: CRLF-delimited text in, a streaming writer out.
package httpmsg

import (
	"fmt"
	"strconv"
	"strings"
)

// Header is a closed set of response/request header variants. Concrete
// types implement the unexported marker so no package outside httpmsg can
// grow the set — the Go analogue of the original Rust closed enum.
type Header interface {
	isHeader()
	// String renders the header in its canonical "Name: Value" form.
	String() string
}

type (
	Host                   string
	Connection             string
	Upgrade                string
	SecWebSocketKey        string
	SecWebSocketVersion    int
	SecWebSocketExtensions string
	SecWebSocketAccept     string
	ContentLength          int
	ContentType            string
	// Unsupported preserves an incoming header whose name isn't part of
	// the closed set, keyed by its original (as-received) name.
	Unsupported struct {
		Name  string
		Value string
	}
)

func (Host) isHeader()                   {}
func (Connection) isHeader()             {}
func (Upgrade) isHeader()                {}
func (SecWebSocketKey) isHeader()        {}
func (SecWebSocketVersion) isHeader()    {}
func (SecWebSocketExtensions) isHeader() {}
func (SecWebSocketAccept) isHeader()     {}
func (ContentLength) isHeader()          {}
func (ContentType) isHeader()            {}
func (Unsupported) isHeader()            {}

func (h Host) String() string                  { return "Host: " + string(h) }
func (h Connection) String() string            { return "Connection: " + string(h) }
func (h Upgrade) String() string                { return "Upgrade: " + string(h) }
func (h SecWebSocketKey) String() string        { return "Sec-WebSocket-Key: " + string(h) }
func (h SecWebSocketVersion) String() string    { return "Sec-WebSocket-Version: " + strconv.Itoa(int(h)) }
func (h SecWebSocketExtensions) String() string { return "Sec-WebSocket-Extensions: " + string(h) }
func (h SecWebSocketAccept) String() string     { return "Sec-WebSocket-Accept: " + string(h) }
func (h ContentLength) String() string          { return "Content-Length: " + strconv.Itoa(int(h)) }
func (h ContentType) String() string            { return "Content-Type: " + string(h) }
func (h Unsupported) String() string            { return h.Name + ": " + h.Value }

// ParseHeader parses one "Name: Value" line. Unknown header names are not
// rejected — they parse to Unsupported so the line is consumed rather than
// discarded, per spec.
func ParseHeader(line string) (Header, error) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return nil, &ParseError{Kind: KindFormat, Msg: fmt.Sprintf("header line missing ':': %q", line)}
	}
	name := line[:idx]
	value := strings.TrimSpace(line[idx+1:])

	switch strings.ToLower(name) {
	case "host":
		return Host(value), nil
	case "connection":
		return Connection(value), nil
	case "upgrade":
		return Upgrade(value), nil
	case "sec-websocket-key":
		return SecWebSocketKey(value), nil
	case "sec-websocket-version":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, &ParseError{Kind: KindInt, Msg: err.Error()}
		}
		return SecWebSocketVersion(v), nil
	case "sec-websocket-extensions":
		return SecWebSocketExtensions(value), nil
	case "sec-websocket-accept":
		return SecWebSocketAccept(value), nil
	case "content-length":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, &ParseError{Kind: KindInt, Msg: err.Error()}
		}
		return ContentLength(v), nil
	case "content-type":
		return ContentType(value), nil
	default:
		return Unsupported{Name: name, Value: value}, nil
	}
}

// HasConnectionUpgrade reports whether headers contain a Connection header
// whose value case-insensitively matches "Upgrade" (token comparison, per
// §4.B — "Connection: Upgrade (case-insensitive token match)").
func HasConnectionUpgrade(headers []Header) bool {
	for _, h := range headers {
		if c, ok := h.(Connection); ok {
			for _, tok := range strings.Split(string(c), ",") {
				if strings.EqualFold(strings.TrimSpace(tok), "upgrade") {
					return true
				}
			}
		}
	}
	return false
}

// HasUpgradeWebsocket reports an Upgrade: websocket header (case-insensitive).
func HasUpgradeWebsocket(headers []Header) bool {
	for _, h := range headers {
		if u, ok := h.(Upgrade); ok && strings.EqualFold(string(u), "websocket") {
			return true
		}
	}
	return false
}

// HasWebSocketVersion13 reports Sec-WebSocket-Version: 13.
func HasWebSocketVersion13(headers []Header) bool {
	for _, h := range headers {
		if v, ok := h.(SecWebSocketVersion); ok && v == 13 {
			return true
		}
	}
	return false
}

// WebSocketKey returns the Sec-WebSocket-Key header value, if present.
func WebSocketKey(headers []Header) (string, bool) {
	for _, h := range headers {
		if k, ok := h.(SecWebSocketKey); ok {
			return string(k), true
		}
	}
	return "", false
}

// ContentLengthOf returns a Content-Length header's value, if present.
func ContentLengthOf(headers []Header) (int, bool) {
	for _, h := range headers {
		if l, ok := h.(ContentLength); ok {
			return int(l), true
		}
	}
	return 0, false
}

// ContentTypeOf returns a Content-Type header's value, if present.
func ContentTypeOf(headers []Header) (string, bool) {
	for _, h := range headers {
		if t, ok := h.(ContentType); ok {
			return string(t), true
		}
	}
	return "", false
}
