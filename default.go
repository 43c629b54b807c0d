package httpcore

import "sync"

// defaultClient is the process-wide Client spec.md §9's "global mutable
// state" design note calls for: lazily built on first Default() call,
// replaceable via SetDefault, torn down by Shutdown. Embedders that want
// no global state at all can simply never call these and use New directly.
var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default lazily constructs (with config.DefaultConfig()) and returns
// the process-wide Client.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		c, err := New(nil)
		if err != nil {
			// DefaultConfig()-driven construction only fails if the
			// process can't build its own log sink; that's a host
			// environment problem the caller can't fix by retrying
			// Default(), so surface it the same way http.DefaultClient
			// would surface an unrecoverable init error: panic.
			panic(err)
		}
		defaultClient = c
	}
	return defaultClient
}

// SetDefault installs c as the process-wide Client, returning (and not
// closing) whatever Client was previously installed.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// Shutdown closes the process-wide Client, if one was ever constructed.
func Shutdown() error {
	defaultMu.Lock()
	c := defaultClient
	defaultClient = nil
	defaultMu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
