package merge

// SkipList decides which rules are excluded from the corpus.
type SkipList interface {
	// Skip reports whether the rule with the given name is excluded.
	Skip(name string) bool

	// Len returns the number of entries in the list.
	Len() int
}

// NameSet is a SkipList matching exact rule names.
type NameSet map[string]struct{}

// Names returns a NameSet holding names.
func Names(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Skip(name string) bool {
	_, ok := s[name]
	return ok
}

func (s NameSet) Len() int {
	return len(s)
}
