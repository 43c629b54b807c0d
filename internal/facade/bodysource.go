package facade

import (
	"time"

	"github.com/relaycore/httpcore/internal/conn"
)

// connBodySource adapts a leased *conn.Connection to stream.BodySource.
// Close is a no-op: the connection's fate (returned to the pool or
// discarded) is decided by the stream.Releaser callback wired in
// separately, never by the body reader itself — this is what keeps
// Response from owning a pointer back into the pool (spec.md §9).
type connBodySource struct {
	c *conn.Connection
}

func newConnBodySource(c *conn.Connection) *connBodySource {
	return &connBodySource{c: c}
}

func (s *connBodySource) Read(p []byte) (int, error) {
	return s.c.BodyReader().Read(p)
}

func (s *connBodySource) SetReadDeadline(t time.Time) error {
	return s.c.SetReadDeadline(t)
}

func (s *connBodySource) Close() error {
	return nil
}
