package configstore

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// ConfigStore answers lookups over layered configuration sources.
type ConfigStore struct {
	// mu serializes ReloadSource; readers only touch current.
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// Option configures New.
type Option func(*options)

type options struct {
	requireSources bool
}

// WithRequireSources makes New fail with ErrEmptySourceList when no sources are given.
func WithRequireSources() Option {
	return func(o *options) {
		o.requireSources = true
	}
}

type entry struct {
	raw     string
	display string
	value   string
}

type sourceState struct {
	name     string
	priority int
	entries  map[string]entry
	revision uint64
}

// snapshot is immutable once published; sources are sorted by priority.
type snapshot struct {
	sources []*sourceState
}

// New registers sources and returns a store ready for lookups. Source order
// in the argument does not matter; precedence comes from Priority alone.
func New(sources []Source, opts ...Option) (*ConfigStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(sources) == 0 && o.requireSources {
		return nil, &Error{Kind: KindEmptySourceList}
	}

	priorities := make(map[int]string, len(sources))
	names := make(map[string]struct{}, len(sources))
	states := make([]*sourceState, 0, len(sources))
	for _, src := range sources {
		if owner, taken := priorities[src.Priority]; taken {
			return nil, &Error{Kind: KindDuplicatePriority, Source: src.Name, Err: conflictWith(owner, src.Priority)}
		}
		priorities[src.Priority] = src.Name

		if _, taken := names[src.Name]; taken {
			return nil, &Error{Kind: KindDuplicateSource, Source: src.Name}
		}
		names[src.Name] = struct{}{}

		entries, err := compileEntries(src.Name, src.Entries)
		if err != nil {
			return nil, err
		}
		states = append(states, &sourceState{
			name:     src.Name,
			priority: src.Priority,
			entries:  entries,
		})
	}

	slices.SortFunc(states, func(a, b *sourceState) int {
		return cmp.Compare(a.priority, b.priority)
	})

	store := &ConfigStore{}
	store.current.Store(&snapshot{sources: states})
	return store, nil
}

// Get resolves key against the sources in ascending priority order.
func (s *ConfigStore) Get(key string) (ResolvedValue, bool) {
	nk, ok := NormalizeKey(key)
	if !ok {
		return ResolvedValue{}, false
	}

	for _, src := range s.current.Load().sources {
		if e, found := src.entries[nk]; found {
			return src.resolve(e), true
		}
	}
	return ResolvedValue{}, false
}

// GetRequired returns the value for key or an ErrMissingKey error.
func (s *ConfigStore) GetRequired(key string) (string, error) {
	rv, ok := s.Get(key)
	if !ok {
		return "", missingKey(key)
	}
	return rv.Value, nil
}

// GetSection merges every key below prefix across all sources. Keys in the
// result are relative to prefix. An empty prefix yields the whole merged view;
// a prefix nothing lives under yields an empty section.
func (s *ConfigStore) GetSection(prefix string) Section {
	snap := s.current.Load()
	section := make(Section)

	// One trailing delimiter is tolerated; the rest must form a valid key.
	if n := len(prefix); n > 0 && (prefix[n-1] == ':' || prefix[n-1] == '.') {
		prefix = prefix[:n-1]
		if prefix == "" {
			return section
		}
	}
	var (
		match string
		depth int
	)
	if prefix != "" {
		np, ok := NormalizeKey(prefix)
		if !ok {
			return section
		}
		match = np + KeyDelimiter
		depth = segmentCount(np)
	}

	// Walk from lowest to highest precedence so winners overwrite. Entries are
	// merged on canonical keys, then re-keyed by the winner's spelling.
	merged := make(map[string]ResolvedValue)
	for i := len(snap.sources) - 1; i >= 0; i-- {
		src := snap.sources[i]
		for nk, e := range src.entries {
			if !strings.HasPrefix(nk, match) {
				continue
			}
			merged[nk] = src.resolve(e)
		}
	}

	for _, rv := range merged {
		section[dropSegments(rv.Key, depth)] = rv
	}
	return section
}

// Explain lists every source defining key, highest precedence first. The
// first element, if any, is what Get returns.
func (s *ConfigStore) Explain(key string) []ResolvedValue {
	nk, ok := NormalizeKey(key)
	if !ok {
		return nil
	}

	var chain []ResolvedValue
	for _, src := range s.current.Load().sources {
		if e, found := src.entries[nk]; found {
			chain = append(chain, src.resolve(e))
		}
	}
	return chain
}

// ReloadSource atomically replaces the entries of the named source. Its
// priority and position are unchanged. On error the previous entries stay
// published.
func (s *ConfigStore) ReloadSource(name string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	idx := slices.IndexFunc(cur.sources, func(src *sourceState) bool {
		return src.name == name
	})
	if idx < 0 {
		return &Error{Kind: KindUnknownSource, Source: name}
	}

	compiled, err := compileEntries(name, entries)
	if err != nil {
		return err
	}

	old := cur.sources[idx]
	next := &snapshot{sources: slices.Clone(cur.sources)}
	next.sources[idx] = &sourceState{
		name:     old.name,
		priority: old.priority,
		entries:  compiled,
		revision: old.revision + 1,
	}
	s.current.Store(next)
	return nil
}

// Sources describes the registered sources in precedence order.
func (s *ConfigStore) Sources() []SourceInfo {
	snap := s.current.Load()
	out := make([]SourceInfo, 0, len(snap.sources))
	for _, src := range snap.sources {
		out = append(out, SourceInfo{
			Name:     src.name,
			Priority: src.priority,
			Entries:  len(src.entries),
			Revision: src.revision,
		})
	}
	return out
}

func (src *sourceState) resolve(e entry) ResolvedValue {
	return ResolvedValue{
		Key:      e.display,
		Value:    e.value,
		Source:   src.name,
		Priority: src.priority,
	}
}

// compileEntries copies raw entries into a canonical-key index. When two raw
// keys fold to the same canonical key, the lexicographically greatest raw key
// wins so the outcome does not depend on map iteration order.
func compileEntries(source string, raw map[string]string) (map[string]entry, error) {
	out := make(map[string]entry, len(raw))
	for key, value := range raw {
		display, ok := DisplayKey(key)
		if !ok {
			return nil, &Error{Kind: KindInvalidKey, Key: key, Source: source}
		}
		nk := lowerASCII(display)
		if prev, exists := out[nk]; exists && prev.raw > key {
			continue
		}
		out[nk] = entry{raw: key, display: display, value: value}
	}
	return out, nil
}
