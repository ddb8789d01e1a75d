package configstore

// Source is a named, prioritized snapshot of configuration entries.
// Lower Priority values take precedence.
type Source struct {
	Name     string
	Priority int
	Entries  map[string]string
}

// ResolvedValue is the outcome of a successful lookup.
type ResolvedValue struct {
	// Key is the winning source's spelling of the key, with ':' delimiters.
	Key      string
	Value    string
	Source   string
	Priority int
}

// SourceInfo summarises a registered source for diagnostics.
type SourceInfo struct {
	Name     string
	Priority int
	Entries  int
	// Revision counts successful reloads of the source.
	Revision uint64
}

// Section maps keys relative to a section prefix to their resolved values.
type Section map[string]ResolvedValue

// Lookup finds a relative key ignoring case and delimiter style.
func (s Section) Lookup(relative string) (ResolvedValue, bool) {
	want, ok := NormalizeKey(relative)
	if !ok {
		return ResolvedValue{}, false
	}
	if rv, ok := s[relative]; ok {
		return rv, true
	}
	for key, rv := range s {
		if lowerASCII(key) == want {
			return rv, true
		}
	}
	return ResolvedValue{}, false
}

// Values flattens the section to relative key -> value.
func (s Section) Values() map[string]string {
	out := make(map[string]string, len(s))
	for key, rv := range s {
		out[key] = rv.Value
	}
	return out
}
