package merge

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/sansecio/yardedupe/ast"
)

// Order selects how Merge orders the kept rules.
type Order int

const (
	// ByReferrers sorts rules by descending number of referrers, keeping
	// namespace order for ties. Rules that many others depend on tend to come
	// first, but a rule is not guaranteed to precede every rule using it.
	ByReferrers Order = iota

	// Topological places every rule after the rules it references. A cycle
	// is emitted once nothing outside it is pending, starting at its
	// lexically smallest member.
	Topological
)

func (o Order) String() string {
	switch o {
	case ByReferrers:
		return "referrers"
	case Topological:
		return "topological"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder parses the name of an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "referrers":
		return ByReferrers, nil
	case "topological":
		return Topological, nil
	}
	return 0, fmt.Errorf("unknown order %q (want referrers or topological)", s)
}

func byReferrers(rules []*ast.Rule) []*ast.Rule {
	out := make([]*ast.Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Referrers) > len(out[j].Referrers)
	})
	return out
}

// dependencyGraph holds, per rule index, the indexes of the kept rules it
// references.
type dependencyGraph struct {
	rules []*ast.Rule
	deps  [][]int
	users [][]int
}

func newDependencyGraph(rules []*ast.Rule) *dependencyGraph {
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.Name] = i
	}
	g := &dependencyGraph{
		rules: rules,
		deps:  make([][]int, len(rules)),
		users: make([][]int, len(rules)),
	}
	for i, r := range rules {
		for _, ref := range ast.SortedRefs(r.Body.Condition) {
			j, ok := index[ref]
			if !ok || j == i {
				continue
			}
			g.deps[i] = append(g.deps[i], j)
			g.users[j] = append(g.users[j], i)
		}
	}
	return g
}

// topological orders rules with Kahn's algorithm. Ready rules are taken in
// ByReferrers order. It also returns every dependency cycle, each as a
// sorted list of rule names.
func topological(rules []*ast.Rule) ([]*ast.Rule, [][]string) {
	prio := byReferrers(rules)
	g := newDependencyGraph(prio)
	components := g.components()

	component := make([]int, len(prio))
	for c, members := range components {
		for _, v := range members {
			component[v] = c
		}
	}

	indegree := make([]int, len(prio))
	for i := range prio {
		indegree[i] = len(g.deps[i])
	}

	// byName lists indexes in lexical name order, for breaking cycles.
	byName := make([]int, len(prio))
	for i := range byName {
		byName[i] = i
	}
	sort.Slice(byName, func(a, b int) bool {
		return prio[byName[a]].Name < prio[byName[b]].Name
	})

	ready := &indexHeap{}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	emitted := make([]bool, len(prio))
	out := make([]*ast.Rule, 0, len(prio))
	emit := func(i int) {
		emitted[i] = true
		out = append(out, prio[i])
		for _, u := range g.users[i] {
			indegree[u]--
			if indegree[u] == 0 && !emitted[u] {
				heap.Push(ready, u)
			}
		}
	}

	// unblocked reports whether the pending members of component c wait
	// only on each other.
	unblocked := func(c int) bool {
		for _, v := range components[c] {
			if emitted[v] {
				continue
			}
			for _, d := range g.deps[v] {
				if !emitted[d] && component[d] != c {
					return false
				}
			}
		}
		return true
	}

	for len(out) < len(prio) {
		if ready.Len() > 0 {
			if i := heap.Pop(ready).(int); !emitted[i] {
				emit(i)
			}
			continue
		}
		// Every pending rule waits on another, so some cycle waits on nothing
		// outside itself. Break it at its lexically smallest pending member.
		for _, v := range byName {
			if c := component[v]; !emitted[v] && len(components[c]) > 1 && unblocked(c) {
				emit(v)
				break
			}
		}
	}

	return out, cycleNames(prio, components)
}

// components returns the strongly connected components of the graph, found
// with Tarjan's algorithm, as lists of rule indexes.
func (g *dependencyGraph) components() [][]int {
	n := len(g.rules)
	var (
		index   = make([]int, n)
		low     = make([]int, n)
		onStack = make([]bool, n)
		stack   []int
		counter = 1
		result  [][]int
	)

	var connect func(v int)
	connect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.deps[v] {
			switch {
			case index[w] == 0:
				connect(w)
				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		result = append(result, members)
	}

	for v := 0; v < n; v++ {
		if index[v] == 0 {
			connect(v)
		}
	}
	return result
}

// cycleNames returns the components with more than one member as sorted
// name lists, ordered by their first name.
func cycleNames(rules []*ast.Rule, components [][]int) [][]string {
	var result [][]string
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		names := make([]string, len(members))
		for i, v := range members {
			names[i] = rules[v].Name
		}
		sort.Strings(names)
		result = append(result, names)
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}

// indexHeap is a min-heap of rule indexes.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
