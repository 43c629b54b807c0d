package domain

import "fmt"

// PoolKey is every construction parameter that changes the bytes put on
// the wire for a reused connection (spec.md §3/§4.5). Two requests share
// a per-origin pool iff their keys compare equal via String().
type PoolKey struct {
	Scheme   string
	Host     string
	Port     int

	ProxyURL           string // "" when direct
	ProxyHeadersDigest string // digest of proxy-only headers, "" when none

	TLSFingerprint        string // e.g. a uTLS ClientHelloID name, "" for stdlib TLS
	CABundleID            string
	ClientCertID          string
	SSLMinimumVersion     string
	SSLMaximumVersion     string
	SSLCiphers            string
	VerifyMode            string // "verify" | "none"
	ServerHostnameOverride string
	SSLContextIdentity    string
}

// String renders a stable encoding of the key suitable for use as an
// LRU cache key (internal/manager uses golang-lru/v2, which is keyed by
// comparable Go values — a string avoids relying on struct-equality
// semantics changing if a field is added later).
func (k PoolKey) String() string {
	return fmt.Sprintf(
		"%s://%s:%d|proxy=%s|proxyh=%s|tlsfp=%s|ca=%s|cert=%s|minv=%s|maxv=%s|ciphers=%s|verify=%s|sni=%s|sslctx=%s",
		k.Scheme, k.Host, k.Port,
		k.ProxyURL, k.ProxyHeadersDigest,
		k.TLSFingerprint, k.CABundleID, k.ClientCertID,
		k.SSLMinimumVersion, k.SSLMaximumVersion, k.SSLCiphers,
		k.VerifyMode, k.ServerHostnameOverride, k.SSLContextIdentity,
	)
}
