package market

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Blacklist is a set of item identifiers (or labels) that may not be
// requested through buy orders. Membership ignores case.
//
// The zero value is an empty blacklist.
type Blacklist struct {
	entries map[string]struct{}
	raw     []string
}

// Casers are stateful, so each call gets its own.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NewBlacklist builds a blacklist from entries, skipping blanks.
func NewBlacklist(entries ...string) Blacklist {
	var bl Blacklist
	bl.Add(entries...)
	return bl
}

// Add inserts entries. Blank entries are ignored.
func (b *Blacklist) Add(entries ...string) {
	for _, e := range entries {
		key := foldKey(e)
		if key == "" {
			continue
		}
		if b.entries == nil {
			b.entries = make(map[string]struct{})
		}
		if _, dup := b.entries[key]; dup {
			continue
		}
		b.entries[key] = struct{}{}
		b.raw = append(b.raw, e)
	}
}

// Merge returns a new blacklist holding the entries of both.
func (b Blacklist) Merge(other Blacklist) Blacklist {
	out := NewBlacklist(b.raw...)
	out.Add(other.raw...)
	return out
}

// Contains reports whether s is blacklisted. Empty input and an empty
// blacklist are never a match.
func (b Blacklist) Contains(s string) bool {
	if len(b.entries) == 0 {
		return false
	}
	key := foldKey(s)
	if key == "" {
		return false
	}
	_, ok := b.entries[key]
	return ok
}

func (b Blacklist) Len() int { return len(b.entries) }

// Entries returns the entries as supplied, in insertion order.
func (b Blacklist) Entries() []string {
	return append([]string(nil), b.raw...)
}

// UnmarshalJSON accepts either ["a","b"] or {"a":true,"b":true}.
// Object entries whose value is false, 0, null or "" are skipped.
func (b *Blacklist) UnmarshalJSON(data []byte) error {
	*b = Blacklist{}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("blacklist array: %w", err)
		}
		b.Add(list...)
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("blacklist object: %w", err)
	}
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if truthy(v) {
			keys = append(keys, k)
		}
	}
	// map order is random; keep Entries deterministic
	sort.Strings(keys)
	b.Add(keys...)
	return nil
}

func (b Blacklist) MarshalJSON() ([]byte, error) {
	if b.raw == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.raw)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
