// Package registry implements the path-keyed response table the
// connection handler reads from and the asset pipeline writes to: a
// shared, read-mostly map from request path to Endpoint, with
// hash-based change detection so the pipeline knows when to broadcast a
// reload.
package registry

import (
	"path"
	"strings"
	"sync"

	"github.com/Gronis/wasmdev/internal/httpmsg"
)

// Endpoint is one registered path's response recipe: the headers to send
// (beyond any inferred at build time) and the action that answers it.
type Endpoint struct {
	Headers []httpmsg.Header
	Action  Action
}

type entry struct {
	endpoint Endpoint
	bodyHash uint32
	hasHash  bool
}

// Registry is the shared path->Endpoint map. Reads (connection handler
// redirect-chain traversal, response send) take a read lock; the only
// write lock is held for the duration of a single Build() call — see §5.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Get looks up path. It is not part of the builder's public mutation
// surface — only the connection handler uses it, to walk redirect chains
// and answer requests.
func (r *Registry) Get(p string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[p]
	if !ok {
		return Endpoint{}, false
	}
	return e.endpoint, true
}

// Promote re-registers path with body as Content, used after a LazyLoad
// hit successfully reads its file, so later hits skip the disk read. It
// reports whether the body actually changed, same contract as Build.
func (r *Registry) Promote(p string, body []byte) bool {
	return r.OnGet(p).SetBody(body).Build()
}

// OnGet starts building (or replacing) the endpoint at path.
func (r *Registry) OnGet(p string) *Builder {
	return &Builder{registry: r, path: p}
}

// Builder is the no-action stage: only an action setter moves it forward,
// enforcing "no action may be set twice" at the type level — once an
// action is chosen, the returned ActionBuilder no longer offers another
// one.
type Builder struct {
	registry *Registry
	path     string
}

// InternalRedirect sets the action to restart lookup at target.
func (b *Builder) InternalRedirect(target string) *ActionBuilder {
	return &ActionBuilder{registry: b.registry, path: b.path, action: InternalRedirect(target)}
}

// SetBody sets the action to serve body directly.
func (b *Builder) SetBody(body []byte) *ActionBuilder {
	return &ActionBuilder{registry: b.registry, path: b.path, action: Content(body)}
}

// LazyLoad sets the action to read file on first hit.
func (b *Builder) LazyLoad(file string) *ActionBuilder {
	return &ActionBuilder{registry: b.registry, path: b.path, action: LazyLoad(file)}
}

// ActionBuilder is the action-set stage: headers may still be added, then
// Build finalizes.
type ActionBuilder struct {
	registry *Registry
	path     string
	action   Action
	headers  []httpmsg.Header
}

// AddResponseHeader appends one header.
func (ab *ActionBuilder) AddResponseHeader(h httpmsg.Header) *ActionBuilder {
	ab.headers = append(ab.headers, h)
	return ab
}

// AddResponseHeaders appends several headers.
func (ab *ActionBuilder) AddResponseHeaders(hs []httpmsg.Header) *ActionBuilder {
	ab.headers = append(ab.headers, hs...)
	return ab
}

// Build finalizes the endpoint: infers Content-Type/Content-Length where
// none was supplied, inserts it under lock, and reports whether the body
// content changed relative to any prior endpoint at the same path.
// Header-only changes report false.
func (ab *ActionBuilder) Build() bool {
	headers := ab.headers

	var bodyHash uint32
	var hasHash bool
	if content, ok := ab.action.(Content); ok {
		if _, present := httpmsg.ContentLengthOf(headers); !present {
			headers = append(headers, httpmsg.ContentLength(len(content)))
		}
		if _, present := httpmsg.ContentTypeOf(headers); !present {
			if mt, ok := inferContentType(ab.path); ok {
				headers = append(headers, httpmsg.ContentType(mt))
			}
		}
		bodyHash = HashBytes(content)
		hasHash = true
	}

	ab.registry.mu.Lock()
	defer ab.registry.mu.Unlock()

	prev, existed := ab.registry.entries[ab.path]
	changed := !existed || !hasHash || !prev.hasHash || prev.bodyHash != bodyHash

	ab.registry.entries[ab.path] = entry{
		endpoint: Endpoint{Headers: headers, Action: ab.action},
		bodyHash: bodyHash,
		hasHash:  hasHash,
	}
	return changed
}

// inferContentType maps a registered path's extension to a MIME type, per
// §3's invariant: .wasm/.js/.html/.css only, nothing else.
func inferContentType(p string) (string, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".wasm":
		return "application/wasm", true
	case ".js":
		return "application/javascript", true
	case ".html":
		return "text/html", true
	case ".css":
		return "text/css", true
	default:
		return "", false
	}
}
