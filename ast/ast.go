// Package ast defines the Abstract Syntax Tree types for YARA rules.
package ast

// RuleSet represents the rules, imports and includes parsed from one file.
type RuleSet struct {
	Path     string // canonical path of the source file
	Imports  []Import
	Includes []Include
	Rules    []*Rule

	// Replaced counts rule definitions dropped because a later rule in the
	// same file had the same name.
	Replaced int
}

// Import is an import statement. Value keeps its quotes, e.g. `"pe"`.
type Import struct {
	Value string
}

// Include is an include statement. Value has its quotes stripped.
type Include struct {
	Value string
}

// Rule returns the rule with the given name, or nil.
func (rs *RuleSet) Rule(name string) *Rule {
	for _, r := range rs.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Rule represents a single YARA rule.
type Rule struct {
	Private bool
	Global  bool
	Name    string
	Tags    []string
	Body    RuleBody

	// Referrers holds the names of rules whose condition references this
	// rule. It is only filled in by the merge engine.
	Referrers []string
}

// Refs returns the rule names referenced by the rule's condition.
func (r *Rule) Refs() map[string]struct{} {
	return Refs(r.Body.Condition)
}

// RuleBody holds the meta, strings and condition sections of a rule.
type RuleBody struct {
	Meta      Meta
	Strings   []StringDef
	Condition Expr
}

// StringDef represents a string definition in the strings section.
type StringDef struct {
	Name  string // $identifier or $ (anonymous)
	Value string // rendered value, modifiers included
}

// MetaEntry represents a key-value pair in the meta section.
type MetaEntry struct {
	Key   string
	Value string // rendered value: 0x.. number, true/false or quoted string
}

// Meta is an ordered mapping of meta keys to rendered values.
type Meta []MetaEntry

// Set stores value under key. An existing key keeps its position.
func (m *Meta) Set(key, value string) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, MetaEntry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m Meta) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}
