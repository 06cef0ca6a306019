package backendfake

import "net/http/httptest"

// Start serves a fresh fake backend on a loopback httptest server. The
// caller closes the returned server.
func Start(opts ...Option) (*Server, *httptest.Server) {
	s := New(opts...)
	return s, httptest.NewServer(s.Handler())
}
