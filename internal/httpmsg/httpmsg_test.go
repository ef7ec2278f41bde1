package httpmsg

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseRequestGET(t *testing.T) {
	block := []byte("GET /index.html HTTP/1.1\r\nHost: localhost:8080\r\nConnection: keep-alive\r\n")
	req, err := ParseRequest(block)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Method != MethodGET {
		t.Errorf("Method = %v, want GET", req.Method)
	}
	if req.Path != "/index.html" {
		t.Errorf("Path = %q, want /index.html", req.Path)
	}
	if req.Version != Version11 {
		t.Errorf("Version = %v, want HTTP/1.1", req.Version)
	}
	if len(req.Headers) != 2 {
		t.Fatalf("len(Headers) = %d, want 2", len(req.Headers))
	}
	if h, ok := req.Headers[0].(Host); !ok || string(h) != "localhost:8080" {
		t.Errorf("Headers[0] = %#v, want Host(localhost:8080)", req.Headers[0])
	}
}

func TestParseRequestWebSocketUpgrade(t *testing.T) {
	block := []byte("GET /reload-ws HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n")
	req, err := ParseRequest(block)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !HasConnectionUpgrade(req.Headers) {
		t.Error("HasConnectionUpgrade = false, want true")
	}
	if !HasUpgradeWebsocket(req.Headers) {
		t.Error("HasUpgradeWebsocket = false, want true")
	}
	if !HasWebSocketVersion13(req.Headers) {
		t.Error("HasWebSocketVersion13 = false, want true")
	}
	key, ok := WebSocketKey(req.Headers)
	if !ok || key != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Errorf("WebSocketKey = %q, %v", key, ok)
	}
}

func TestParseRequestMalformedRequestLine(t *testing.T) {
	_, err := ParseRequest([]byte("GET /index.html\r\n"))
	if err == nil {
		t.Fatal("expected error for malformed request line")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindFormat {
		t.Errorf("err = %v, want KindFormat", err)
	}
}

func TestParseRequestUnsupportedMethod(t *testing.T) {
	_, err := ParseRequest([]byte("TRACE / HTTP/1.1\r\n"))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindUnsupportedMethod {
		t.Errorf("err = %v, want KindUnsupportedMethod", err)
	}
}

func TestParseRequestUnsupportedVersion(t *testing.T) {
	_, err := ParseRequest([]byte("GET / HTTP/2.0\r\n"))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindUnsupportedVersion {
		t.Errorf("err = %v, want KindUnsupportedVersion", err)
	}
}

func TestParseRequestBadContentLength(t *testing.T) {
	_, err := ParseRequest([]byte("GET / HTTP/1.1\r\nContent-Length: abc\r\n"))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindInt {
		t.Errorf("err = %v, want KindInt", err)
	}
}

func TestHeaderBlockEnd(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nbody")
	idx := HeaderBlockEnd(buf)
	want := strings.Index(string(buf), "\r\n\r\n")
	if idx != want {
		t.Errorf("HeaderBlockEnd = %d, want %d", idx, want)
	}
	if HeaderBlockEnd([]byte("GET / HTTP/1.1\r\n")) != -1 {
		t.Error("expected -1 for incomplete header block")
	}
}

func TestResponseWriteTo(t *testing.T) {
	resp := NewResponse(Version11, 200, "text/html", []byte("hi"))
	var buf bytes.Buffer
	n, err := resp.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nContent-Type: text/html\r\n\r\nhi\r\n"
	if buf.String() != want {
		t.Errorf("WriteTo output = %q, want %q", buf.String(), want)
	}
	if n != int64(len(want)) {
		t.Errorf("n = %d, want %d", n, len(want))
	}
}

func TestResponseWriteToNoBody(t *testing.T) {
	resp := Response{Version: Version11, Status: 101, Headers: []Header{
		Upgrade("websocket"),
		Connection("Upgrade"),
		SecWebSocketAccept("s3pPLMBiTxaQ9kYGzzhZRbK+xOo="),
	}}
	var buf bytes.Buffer
	if _, err := resp.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n" +
		"\r\n"
	if buf.String() != want {
		t.Errorf("WriteTo output = %q, want %q", buf.String(), want)
	}
}

func TestStatusCodeName(t *testing.T) {
	cases := map[StatusCode]string{
		101: "Switching Protocols",
		200: "OK",
		204: "OK",
		404: "",
	}
	for code, want := range cases {
		if got := code.Name(); got != want {
			t.Errorf("StatusCode(%d).Name() = %q, want %q", code, got, want)
		}
	}
}
