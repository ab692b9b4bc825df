// Package keyfilter implements the comma separated allow-lists used to pick
// which param and metric columns the run table shows.
package keyfilter

import "strings"

// KeyFilter is an ordered allow-list of keys. The zero value is the empty
// filter, which lets every key through.
type KeyFilter struct {
	keys []string
}

// New parses a comma separated list of keys. Tokens are trimmed and empty
// tokens dropped, so "alpha, , lr" yields [alpha lr]. Repeated keys keep their
// first position.
func New(raw string) KeyFilter {
	var keys []string
	seen := make(map[string]struct{})
	for _, token := range strings.Split(raw, ",") {
		key := strings.TrimSpace(token)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return KeyFilter{keys: keys}
}

// Keys returns a copy of the requested keys in filter order.
func (f KeyFilter) Keys() []string {
	return append([]string(nil), f.keys...)
}

// IsEmpty reports whether the filter lets every key through.
func (f KeyFilter) IsEmpty() bool {
	return len(f.keys) == 0
}

// Apply restricts candidates to the filter. An empty filter returns
// candidates unchanged; otherwise the result follows filter order and keys
// missing from candidates are dropped.
func (f KeyFilter) Apply(candidates []string) []string {
	if f.IsEmpty() {
		return candidates
	}
	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c] = struct{}{}
	}
	out := make([]string, 0, len(f.keys))
	for _, k := range f.keys {
		if _, ok := present[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// FilterString rebuilds the normalized input text, used to prefill the
// filter field.
func (f KeyFilter) FilterString() string {
	return strings.Join(f.keys, ", ")
}
