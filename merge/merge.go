// Package merge consolidates parsed rule sets into one deduplicated corpus
// ordered by the dependencies between rules.
package merge

import (
	"sort"

	"github.com/sansecio/yardedupe/ast"
)

// Options configures Merge.
type Options struct {
	// Skip excludes rules by name. Nil skips nothing.
	Skip SkipList

	// Order selects the final ordering of the kept rules.
	Order Order
}

// Corpus is the merged result: the union of all imports and the ordered list
// of kept rules.
type Corpus struct {
	Imports []string // import values with quotes, sorted
	Rules   []*ast.Rule
}

// Rule returns the kept rule with the given name, or nil.
func (c *Corpus) Rule(name string) *ast.Rule {
	for _, r := range c.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Merge flattens sets into one namespace and orders the result.
//
// Sets are processed in lexical order of their Path, and within a set in
// rule order. A later rule with an already seen name replaces the earlier
// one but keeps its position. The input rule sets are not modified; the
// corpus holds copies of the kept rules with Referrers filled in.
func Merge(sets []*ast.RuleSet, opts Options) (*Corpus, Stats) {
	ordered := make([]*ast.RuleSet, 0, len(sets))
	for _, rs := range sets {
		if rs != nil {
			ordered = append(ordered, rs)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Path < ordered[j].Path
	})

	stats := Stats{Files: len(ordered)}
	if opts.Skip != nil {
		stats.SkipListSize = opts.Skip.Len()
	}

	imports := make(map[string]struct{})
	ns := newNamespace()
	for _, rs := range ordered {
		stats.Total += rs.Replaced
		stats.Duplicates += rs.Replaced
		for _, imp := range rs.Imports {
			imports[imp.Value] = struct{}{}
		}
		for _, r := range rs.Rules {
			stats.Total++
			if opts.Skip != nil && opts.Skip.Skip(r.Name) {
				stats.Skipped++
				continue
			}
			if ns.put(r) {
				stats.Duplicates++
			}
		}
	}
	stats.Kept = ns.len()
	if stats.Total > 0 {
		stats.KeptPercent = 100 * stats.Kept / stats.Total
	}

	rules := ns.copies()
	stats.Dangling = linkReferrers(rules)

	corpus := &Corpus{Imports: sortedKeys(imports)}
	switch opts.Order {
	case Topological:
		corpus.Rules, stats.Cycles = topological(rules)
	default:
		corpus.Rules = byReferrers(rules)
	}
	return corpus, stats
}

// linkReferrers records, for every rule, the names of the rules referencing
// it. Self references are ignored. It returns the number of references to
// names outside rules.
func linkReferrers(rules []*ast.Rule) int {
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.Name] = i
	}
	dangling := 0
	for _, r := range rules {
		for _, ref := range ast.SortedRefs(r.Body.Condition) {
			if ref == r.Name {
				continue
			}
			target, ok := index[ref]
			if !ok {
				dangling++
				continue
			}
			rules[target].Referrers = append(rules[target].Referrers, r.Name)
		}
	}
	return dangling
}

// namespace is an insertion ordered map of rules keyed by name.
type namespace struct {
	order  []string
	byName map[string]*ast.Rule
}

func newNamespace() *namespace {
	return &namespace{byName: make(map[string]*ast.Rule)}
}

// put stores r and reports whether it replaced a rule of the same name.
func (n *namespace) put(r *ast.Rule) bool {
	_, exists := n.byName[r.Name]
	if !exists {
		n.order = append(n.order, r.Name)
	}
	n.byName[r.Name] = r
	return exists
}

func (n *namespace) len() int {
	return len(n.order)
}

// copies returns shallow copies of the stored rules in namespace order,
// with empty referrer lists.
func (n *namespace) copies() []*ast.Rule {
	rules := make([]*ast.Rule, len(n.order))
	for i, name := range n.order {
		cp := *n.byName[name]
		cp.Referrers = nil
		rules[i] = &cp
	}
	return rules
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
