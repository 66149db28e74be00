// Package identity maps item identifiers to display labels and back.
//
// A Resolver belongs to one panel session and is only touched from the
// session's goroutine; it does no locking of its own.
package identity

import (
	"strings"

	"github.com/charleschow/ns-market/internal/core/market"
)

// DefaultSuggestionLimit caps Suggest output unless overridden.
const DefaultSuggestionLimit = 10

// Entry is one item filed under a normalized label.
type Entry struct {
	Identifier string
	Label      string
}

// Resolver holds the identifier→label table built from the player's
// inventory and the label→identifiers table built from the full catalog.
type Resolver struct {
	labels map[string]string // identifier → label, last write wins

	buckets map[string][]Entry // normalized label → entries, insertion order
	keys    []string           // bucket keys in first-insertion order

	blacklist       market.Blacklist
	suggestionLimit int
}

func NewResolver() *Resolver {
	return &Resolver{
		labels:          make(map[string]string),
		buckets:         make(map[string][]Entry),
		suggestionLimit: DefaultSuggestionLimit,
	}
}

// SetSuggestionLimit changes the Suggest cap. Non-positive values restore
// the default.
func (r *Resolver) SetSuggestionLimit(n int) {
	if n <= 0 {
		n = DefaultSuggestionLimit
	}
	r.suggestionLimit = n
}

// ResolveLabel returns the label for an identifier, falling back to a
// title-cased rendering of the identifier itself. It never fails.
func (r *Resolver) ResolveLabel(identifier string) string {
	if label, ok := r.labels[identifier]; ok {
		return label
	}
	return FallbackLabel(identifier)
}

// RebuildIdentifierToLabel replaces the identifier→label table from the
// player's inventory. Later items overwrite earlier ones for the same
// identifier. Items without a label keep resolving through the fallback.
func (r *Resolver) RebuildIdentifierToLabel(items []market.InventoryItem) {
	labels := make(map[string]string, len(items))
	for _, it := range items {
		if it.Name == "" || strings.TrimSpace(it.Label) == "" {
			continue
		}
		labels[it.Name] = it.Label
	}
	r.labels = labels
}

// RebuildLabelToIdentifiers replaces the label→identifiers table from the
// full catalog. Items whose identifier or label is blacklisted are left out
// entirely so free-text entry can never reach them. Catalog items without a
// label are filed under their fallback label.
func (r *Resolver) RebuildLabelToIdentifiers(items []market.CatalogItem, blacklist market.Blacklist) {
	buckets := make(map[string][]Entry, len(items))
	keys := make([]string, 0, len(items))

	for _, it := range items {
		if it.Name == "" {
			continue
		}
		if blacklist.Contains(it.Name) || blacklist.Contains(it.Label) {
			continue
		}
		label := it.Label
		if strings.TrimSpace(label) == "" {
			label = FallbackLabel(it.Name)
		}
		key := Normalize(label)
		if key == "" {
			continue
		}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], Entry{Identifier: it.Name, Label: label})
	}

	r.buckets = buckets
	r.keys = keys
	r.blacklist = blacklist
}

// IsBlacklisted reports whether identifier is on the blacklist supplied to
// the last RebuildLabelToIdentifiers. Empty input or an empty blacklist is
// never blacklisted.
func (r *Resolver) IsBlacklisted(identifier string) bool {
	return r.blacklist.Contains(identifier)
}

// Blacklist returns the blacklist currently in force.
func (r *Resolver) Blacklist() market.Blacklist { return r.blacklist }

// ResolveIdentifierFromLabel maps free text to an identifier. When a label
// is shared by several identifiers the first one inserted wins.
func (r *Resolver) ResolveIdentifierFromLabel(text string) (string, bool) {
	bucket, ok := r.lookup(Normalize(text))
	if !ok {
		return "", false
	}
	return bucket[0].Identifier, true
}

// LabelExists runs the same match ladder as ResolveIdentifierFromLabel.
func (r *Resolver) LabelExists(text string) bool {
	_, ok := r.lookup(Normalize(text))
	return ok
}

// lookup tries an exact key hit, then an exact scan over every key, then a
// substring match in either direction. Keys are scanned in insertion order.
func (r *Resolver) lookup(key string) ([]Entry, bool) {
	if key == "" {
		return nil, false
	}

	if bucket, ok := r.buckets[key]; ok && len(bucket) > 0 {
		return bucket, true
	}

	// Keys are normalized on insert; re-normalizing here catches a key that
	// was stored under an older Normalize.
	for _, k := range r.keys {
		if Normalize(k) == key && len(r.buckets[k]) > 0 {
			return r.buckets[k], true
		}
	}

	for _, k := range r.keys {
		if strings.Contains(k, key) || strings.Contains(key, k) {
			if bucket := r.buckets[k]; len(bucket) > 0 {
				return bucket, true
			}
		}
	}
	return nil, false
}

// Suggest lists labels for free-text entry: every label whose key contains
// the input or is contained by it, blacklisted items excluded, duplicates
// removed, capped at the suggestion limit. Blank input yields nil so the
// caller can hide the suggestion box.
func (r *Resolver) Suggest(prefix string) []string {
	key := Normalize(prefix)
	if key == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, k := range r.keys {
		if !strings.Contains(k, key) && !strings.Contains(key, k) {
			continue
		}
		for _, e := range r.buckets[k] {
			if r.IsBlacklisted(e.Identifier) {
				continue
			}
			if _, dup := seen[e.Label]; dup {
				continue
			}
			seen[e.Label] = struct{}{}
			out = append(out, e.Label)
			if len(out) == r.suggestionLimit {
				return out
			}
		}
	}
	return out
}

// Catalog returns a copy of every entry in the label table, grouped by key
// in insertion order.
func (r *Resolver) Catalog() []Entry {
	var out []Entry
	for _, k := range r.keys {
		out = append(out, r.buckets[k]...)
	}
	return out
}
