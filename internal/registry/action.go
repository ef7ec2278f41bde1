package registry

// Action is the closed set of ways an Endpoint can answer a request: serve
// bytes directly, restart the lookup at another path, or defer to a file
// read on first hit. Concrete types implement the unexported marker so the
// set can't grow outside this package — the Go analogue of the original's
// closed response-action enum.
type Action interface {
	isAction()
}

// Content serves these bytes directly.
type Content []byte

// InternalRedirect restarts the lookup at Path, preserving the original
// URL as far as the client is concerned.
type InternalRedirect string

// LazyLoad reads File on first hit, promotes the endpoint to Content, and
// caches it — subsequent hits skip the disk read.
type LazyLoad string

func (Content) isAction()          {}
func (InternalRedirect) isAction() {}
func (LazyLoad) isAction()         {}
