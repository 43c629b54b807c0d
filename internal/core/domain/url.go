package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Url is the normalized request target described in spec.md §3: scheme
// lowercased, host IDNA-normalized and lowercased, an explicit or
// scheme-default port, a path that is never empty, and a separately
// retained query/fragment. A Url is immutable once constructed.
type Url struct {
	Scheme   string
	Host     string // lowercased, not IDNA-encoded (for display / Host header source)
	asciiHost string // idna.Lookup.ToASCII(Host), computed once
	Port     int
	Path     string
	Query    string
	Fragment string
}

const (
	defaultHTTPPort  = 80
	defaultHTTPSPort = 443
)

// ParseURL parses and canonicalizes raw into a Url, or returns
// *domain.Error{Kind: KindInvalidURL}.
func ParseURL(raw string) (*Url, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewErrorf(KindInvalidURL, "url.parse", "%v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, NewErrorf(KindInvalidURL, "url.parse", "unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, NewErrorf(KindInvalidURL, "url.parse", "empty host")
	}

	port := defaultPortFor(scheme)
	if p := u.Port(); p != "" {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 || n > 65535 {
			return nil, NewErrorf(KindInvalidURL, "url.parse", "invalid port %q", p)
		}
		port = n
	}

	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Not every valid HTTP host round-trips through strict IDNA
		// (e.g. bare IP literals); fall back to the lowercased host
		// rather than rejecting the request.
		asciiHost = host
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return &Url{
		Scheme:    scheme,
		Host:      host,
		asciiHost: asciiHost,
		Port:      port,
		Path:      path,
		Query:     u.RawQuery,
		Fragment:  u.Fragment,
	}, nil
}

func defaultPortFor(scheme string) int {
	if scheme == "https" {
		return defaultHTTPSPort
	}
	return defaultHTTPPort
}

// IsDefaultPort reports whether Port is the scheme's implicit default,
// in which case the wire Host header must omit it.
func (u *Url) IsDefaultPort() bool {
	return u.Port == defaultPortFor(u.Scheme)
}

// ASCIIHost returns the IDNA-normalized, wire-safe host.
func (u *Url) ASCIIHost() string {
	return u.asciiHost
}

// HostHeader returns the value to send in the Host header: ascii host,
// plus ":port" unless the port is the scheme default.
func (u *Url) HostHeader() string {
	if u.IsDefaultPort() {
		return u.asciiHost
	}
	return fmt.Sprintf("%s:%d", u.asciiHost, u.Port)
}

// RequestTarget returns the origin-form path?query used for direct and
// tunneled requests. Per the resolved Open Question (see DESIGN.md), the
// fragment is never part of what goes on the wire.
func (u *Url) RequestTarget() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}

// AbsoluteTarget returns the absolute-form target (scheme://host[:port]/path?query,
// the port omitted when it is the scheme default) used for plain HTTP
// forward-proxying.
func (u *Url) AbsoluteTarget() string {
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.HostHeader(), u.RequestTarget())
}

// String renders a canonical representation (no fragment) suitable for
// logs and error messages.
func (u *Url) String() string {
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.HostHeader(), u.RequestTarget())
}

// Origin returns the (scheme, host, port) triple used for pool-key
// derivation and connection addressing.
func (u *Url) Origin() (scheme, host string, port int) {
	return u.Scheme, u.asciiHost, u.Port
}
