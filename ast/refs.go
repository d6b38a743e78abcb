package ast

import (
	"fmt"
	"sort"
)

// Refs returns the set of rule names referenced anywhere in e.
func Refs(e Expr) map[string]struct{} {
	refs := make(map[string]struct{})
	collectRefs(e, refs)
	return refs
}

// SortedRefs returns the names referenced in e in lexical order.
func SortedRefs(e Expr) []string {
	refs := Refs(e)
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectRefs(e Expr, refs map[string]struct{}) {
	switch n := e.(type) {
	case nil:
	case And:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case Or:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case At:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case Of:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case In:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case Range:
		collectRefs(n.Low, refs)
		collectRefs(n.High, refs)
	case Cmp:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case Arithm:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case Set:
		for _, item := range n.Items {
			collectRefs(item, refs)
		}
	case Not:
		collectRefs(n.Operand, refs)
	case RuleRef:
		refs[n.Name] = struct{}{}
	case BytesWithOffset:
		// The accessor keyword is never a rule name.
		collectRefs(n.Offset, refs)
	case ForIn:
		collectRefs(n.Quantifier, refs)
		collectRefs(n.Iterable, refs)
		collectRefs(n.Body, refs)
	case ForOf:
		collectRefs(n.Quantifier, refs)
		collectRefs(n.Set, refs)
		collectRefs(n.Body, refs)
	case ImportRef, StringRef, StringRefMask, StringCount, Reserved,
		ConstString, Regex, Number, Size, Boolean, None:
	default:
		panic(fmt.Sprintf("ast: unhandled expression %T", e))
	}
}

// HasResidual reports whether e contains a None node anywhere.
func HasResidual(e Expr) bool {
	switch n := e.(type) {
	case None:
		return true
	case And:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case Or:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case At:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case Of:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case In:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case Range:
		return HasResidual(n.Low) || HasResidual(n.High)
	case Cmp:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case Arithm:
		return HasResidual(n.Left) || HasResidual(n.Right)
	case Set:
		for _, item := range n.Items {
			if HasResidual(item) {
				return true
			}
		}
	case Not:
		return HasResidual(n.Operand)
	case BytesWithOffset:
		return HasResidual(n.Offset)
	case ForIn:
		return HasResidual(n.Quantifier) || HasResidual(n.Iterable) || HasResidual(n.Body)
	case ForOf:
		return HasResidual(n.Quantifier) || HasResidual(n.Set) || HasResidual(n.Body)
	}
	return false
}
