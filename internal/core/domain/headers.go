package domain

import "strings"

// HeaderPair keeps one name/value as it will appear on the wire.
// HeaderBag stores these in insertion order so serialization is
// deterministic and round-trips observed header ordering.
type HeaderPair struct {
	name  string // the casing this value was added with
	value string
}

// Name returns the header name in the casing this value was added with.
func (p HeaderPair) Name() string { return p.name }

// Value returns the header's value.
func (p HeaderPair) Value() string { return p.value }

// HeaderBag is an insertion-order-preserving, case-insensitive multi-map
// from header name to values, matching spec.md §3. Lookups key off the
// lowercased name; each value is serialized under the casing it was
// added with, and Names reports the first-seen casing.
type HeaderBag struct {
	pairs []HeaderPair
	index map[string][]int // lower(name) -> indexes into pairs
}

// NewHeaderBag returns an empty bag ready to use.
func NewHeaderBag() *HeaderBag {
	return &HeaderBag{index: make(map[string][]int)}
}

func lowerKey(name string) string { return strings.ToLower(name) }

// Add appends a value under name, preserving any existing values.
func (h *HeaderBag) Add(name, value string) {
	if h.index == nil {
		h.index = make(map[string][]int)
	}
	key := lowerKey(name)
	h.pairs = append(h.pairs, HeaderPair{name: name, value: value})
	h.index[key] = append(h.index[key], len(h.pairs)-1)
}

// Set replaces all existing values under name with a single value.
func (h *HeaderBag) Set(name, value string) {
	h.Pop(name)
	h.Add(name, value)
}

// GetAll returns every value stored under name, in insertion order, or
// nil if the name is absent.
func (h *HeaderBag) GetAll(name string) []string {
	idxs, ok := h.index[lowerKey(name)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, h.pairs[i].value)
	}
	return out
}

// Get returns the first value stored under name, or "" if absent.
func (h *HeaderBag) Get(name string) string {
	idxs, ok := h.index[lowerKey(name)]
	if !ok || len(idxs) == 0 {
		return ""
	}
	return h.pairs[idxs[0]].value
}

// Contains reports whether any value is stored under name.
func (h *HeaderBag) Contains(name string) bool {
	idxs, ok := h.index[lowerKey(name)]
	return ok && len(idxs) > 0
}

// Pop removes all values under name and returns them.
func (h *HeaderBag) Pop(name string) []string {
	key := lowerKey(name)
	idxs, ok := h.index[key]
	if !ok {
		return nil
	}
	removed := make(map[int]bool, len(idxs))
	out := make([]string, 0, len(idxs))
	for _, i := range idxs {
		removed[i] = true
		out = append(out, h.pairs[i].value)
	}
	delete(h.index, key)

	newPairs := make([]HeaderPair, 0, len(h.pairs)-len(idxs))
	newIndex := make(map[string][]int, len(h.index))
	for i, p := range h.pairs {
		if removed[i] {
			continue
		}
		k := lowerKey(p.name)
		newIndex[k] = append(newIndex[k], len(newPairs))
		newPairs = append(newPairs, p)
	}
	h.pairs = newPairs
	h.index = newIndex
	return out
}

// Names returns the distinct header names in first-seen order.
func (h *HeaderBag) Names() []string {
	seen := make(map[string]bool, len(h.pairs))
	var names []string
	for _, p := range h.pairs {
		key := lowerKey(p.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, p.name)
	}
	return names
}

// Range calls fn for every (name, value) pair in insertion order.
func (h *HeaderBag) Range(fn func(name, value string)) {
	for _, p := range h.pairs {
		fn(p.name, p.value)
	}
}

// Clone returns a deep copy.
func (h *HeaderBag) Clone() *HeaderBag {
	clone := NewHeaderBag()
	for _, p := range h.pairs {
		clone.Add(p.name, p.value)
	}
	return clone
}

// isSetCookieName reports whether name is Set-Cookie, the one header
// spec.md §3 says must never be comma-joined for transmission.
func isSetCookieName(name string) bool {
	return lowerKey(name) == "set-cookie"
}

// CombinedValue joins every value under name with ", ". Set-Cookie is
// joined the same way; GetAll returns its instances separately, and
// WireLines emits each instance as its own line.
func (h *HeaderBag) CombinedValue(name string) string {
	return strings.Join(h.GetAll(name), ", ")
}

// WireLines returns every header as a separate (name, value) line ready
// for serialization — multiple values under the same name are emitted
// as multiple lines, matching spec.md §4.1 ("Multiple headers with the
// same name are emitted in insertion order as separate lines").
func (h *HeaderBag) WireLines() []HeaderPair {
	return h.pairs
}

// IsSetCookie reports whether name is the Set-Cookie header (exported
// for callers outside this package, e.g. the wire codec's combine step).
func IsSetCookie(name string) bool { return isSetCookieName(name) }
