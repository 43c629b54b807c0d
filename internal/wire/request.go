package wire

import (
	"bytes"
	"strconv"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// RequestLine is the subject of spec.md §4.1 "Request serialization":
// the method, the request-target (origin-form or absolute-form,
// selected by the caller — the pool manager/facade decide which one a
// given route needs) and the headers that go with it.
type RequestLine struct {
	Method        string
	RequestTarget string
	Headers       *domain.HeaderBag
}

// SerializeHead writes the request line and headers (not the body) in
// wire order: "METHOD<SP>TARGET<SP>HTTP/1.1\r\n<headers>\r\n".
func SerializeHead(rl RequestLine) ([]byte, error) {
	if err := ValidateHeaders(rl.Headers); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(rl.Method)
	buf.WriteByte(' ')
	buf.WriteString(rl.RequestTarget)
	buf.WriteString(" HTTP/1.1\r\n")

	for _, p := range rl.Headers.WireLines() {
		buf.WriteString(p.Name())
		buf.WriteString(": ")
		buf.WriteString(p.Value())
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

// ChooseFraming implements spec.md §4.1 "Body framing": exactly one mode
// applies, chosen before the codec ever runs.
func ChooseFraming(method string, hasBody bool, knownLength int64) domain.BodyFraming {
	if !hasBody {
		if domain.NoBodyByDefault[domain.NormalizeMethod(method)] {
			return domain.FramingEmpty
		}
		return domain.FramingKnownLength // Content-Length: 0
	}
	if knownLength >= 0 {
		return domain.FramingKnownLength
	}
	return domain.FramingChunked
}

// ApplyFramingHeaders mutates headers to carry the Content-Length or
// Transfer-Encoding implied by mode, matching spec.md §4.1 exactly
// ("Empty body: emit Content-Length: 0 unless ... omit both headers").
func ApplyFramingHeaders(headers *domain.HeaderBag, mode domain.BodyFraming, knownLength int64) {
	switch mode {
	case domain.FramingEmpty:
		// omit both Content-Length and Transfer-Encoding
	case domain.FramingKnownLength:
		length := knownLength
		if length < 0 {
			length = 0
		}
		headers.Set("Content-Length", strconv.FormatInt(length, 10))
	case domain.FramingChunked:
		headers.Set("Transfer-Encoding", "chunked")
	}
}
