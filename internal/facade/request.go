// Package facade is C8, the request entry point (§4.8): it assembles a
// caller's Request into wire bytes, leases a pooled Connection through
// the manager, drives the retry controller across attempts, and hands
// back a streaming Response. Callers build Request values directly —
// there is no URL-builder DSL (spec.md §4.8 EXPANSION).
package facade

import (
	"io"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// Request is everything urlopen needs for one logical call, including
// the retries that survive across redirect hops.
type Request struct {
	Method  string
	URL     *domain.Url
	Headers *domain.HeaderBag
	Body    io.Reader
	// BodyLength is the body size in bytes, or -1 when unknown (with a
	// non-nil Body that selects chunked framing per wire.ChooseFraming;
	// with a nil Body no body is framed).
	BodyLength int64

	Timeout domain.Timeout
	Retry   domain.Retry

	PreloadContent bool
	DecodeContent  bool
	Redirect       bool

	MaxDecoders     int
	MaxDecodedBytes int64
}

// NewRequest builds a Request with the facade's configured defaults
// merged in at lowest precedence (caller-set headers always win).
func NewRequest(method string, url *domain.Url, defaults RequestDefaults) *Request {
	headers := defaults.Headers.Clone()
	return &Request{
		Method:          domain.NormalizeMethod(method),
		URL:             url,
		Headers:         headers,
		BodyLength:      -1,
		Timeout:         defaults.Timeout,
		Retry:           defaults.Retry,
		DecodeContent:   defaults.DecodeContent,
		Redirect:        defaults.Redirect,
		MaxDecoders:     defaults.MaxDecoders,
		MaxDecodedBytes: defaults.MaxDecodedBytes,
	}
}

// RequestDefaults is the subset of ClientConfig a Facade applies to
// every Request built through NewRequest.
type RequestDefaults struct {
	Headers         *domain.HeaderBag
	Timeout         domain.Timeout
	Retry           domain.Retry
	DecodeContent   bool
	Redirect        bool
	MaxDecoders     int
	MaxDecodedBytes int64
}
