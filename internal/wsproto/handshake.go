// Package wsproto implements the constrained WebSocket subset the dev
// server needs: an RFC 6455 opening handshake, and a server-only, unmasked,
// text-frame-only write path for push notifications. It never constructs
// or interprets client-originated frame payloads beyond recognizing their
// opcode — the server has nothing to say in response to a client message.
package wsproto

import (
	"crypto/sha1"
	"encoding/base64"

	"github.com/Gronis/wasmdev/internal/httpmsg"
)

// magicGUID is the fixed RFC 6455 handshake GUID.
const magicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// IsUpgradeRequest reports whether req is a valid WebSocket upgrade
// request: GET, with Connection: Upgrade, Upgrade: websocket,
// Sec-WebSocket-Version: 13 and a Sec-WebSocket-Key all present.
func IsUpgradeRequest(req httpmsg.Request) bool {
	if req.Method != httpmsg.MethodGET {
		return false
	}
	if !httpmsg.HasConnectionUpgrade(req.Headers) {
		return false
	}
	if !httpmsg.HasUpgradeWebsocket(req.Headers) {
		return false
	}
	if !httpmsg.HasWebSocketVersion13(req.Headers) {
		return false
	}
	_, ok := httpmsg.WebSocketKey(req.Headers)
	return ok
}

// ComputeAccept derives the Sec-WebSocket-Accept value from a client's
// Sec-WebSocket-Key: base64(SHA1(key + magicGUID)).
func ComputeAccept(key string) string {
	sum := sha1.Sum([]byte(key + magicGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// UpgradeResponse builds the 101 Switching Protocols response that
// completes the handshake for the given client key.
func UpgradeResponse(key string) httpmsg.Response {
	return httpmsg.Response{
		Version: httpmsg.Version11,
		Status:  101,
		Headers: []httpmsg.Header{
			httpmsg.Upgrade("websocket"),
			httpmsg.Connection("Upgrade"),
			httpmsg.SecWebSocketAccept(ComputeAccept(key)),
		},
	}
}
