package wire

import "github.com/relaycore/httpcore/internal/core/domain"

// ValidHeaderName reports whether name is a legal RFC 7230 "token":
// visible ASCII excluding delimiters. No pack library exposes exactly
// this predicate as a standalone function (net/http's httpguts.ValidHeaderFieldName
// lives behind an internal package boundary in the standard library and
// none of the retrieved repos import an equivalent third-party token
// validator), so it is hand-rolled here — see DESIGN.md.
func ValidHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isTokenChar(name[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// ValidHeaderValue reports whether value may be sent on the wire: no
// CR, LF, or NUL, per spec.md §4.1 ("values are rejected if they contain
// \r, \n, or \0").
func ValidHeaderValue(value string) bool {
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\r', '\n', 0:
			return false
		}
	}
	return true
}

// ValidateHeaders walks every pair in bag and returns the first
// violation found, or nil.
func ValidateHeaders(bag *domain.HeaderBag) error {
	var err error
	bag.Range(func(name, value string) {
		if err != nil {
			return
		}
		if !ValidHeaderName(name) {
			err = domain.NewErrorf(domain.KindProtocolError, "wire.validate_headers", "invalid header name %q", name)
			return
		}
		if !ValidHeaderValue(value) {
			err = domain.NewErrorf(domain.KindProtocolError, "wire.validate_headers", "invalid header value for %q", name)
		}
	})
	return err
}
