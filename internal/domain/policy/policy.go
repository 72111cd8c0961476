// Package policy defines the contract the gateway shares with the
// policy-enforcing data service. The production evaluator runs inside
// the data service; the types here document what it enforces, and the
// Evaluate helper gives tests and local fakes a contract-faithful
// reference. The gateway itself never short-circuits these rules.
package policy

// Operation is the kind of row operation a policy is scoped to.
type Operation int

const (
	OpSelect Operation = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating a single row against a rule.
type Decision int

const (
	Deny Decision = iota
	Permit
)

// Rule is a named per-operation predicate. The predicate is fixed:
// the row's owner value must equal the token's subject claim.
type Rule struct {
	Name      string
	Operation Operation
}

// Ruleset maps operation kinds to their rule. Absence of a rule for
// an operation means that operation is denied for every row.
type Ruleset struct {
	rules map[Operation]Rule
}

func NewRuleset(rules ...Rule) *Ruleset {
	rs := &Ruleset{rules: make(map[Operation]Rule, len(rules))}
	for _, r := range rules {
		rs.rules[r.Operation] = r
	}
	return rs
}

// DefaultRuleset mirrors this system's downstream configuration:
// owner-scoped select and insert, nothing defined for update or
// delete.
func DefaultRuleset() *Ruleset {
	return NewRuleset(
		Rule{Name: "owner can read own rows", Operation: OpSelect},
		Rule{Name: "owner can insert own rows", Operation: OpInsert},
	)
}

// For returns the rule for an operation kind, if one is defined.
func (rs *Ruleset) For(op Operation) (Rule, bool) {
	r, ok := rs.rules[op]
	return r, ok
}

// Evaluate applies the contract for one row: no subject denies
// everything, an undefined operation denies everything, otherwise the
// owner predicate decides.
func Evaluate(rs *Ruleset, op Operation, subject, owner string) Decision {
	if subject == "" {
		return Deny
	}
	if _, ok := rs.For(op); !ok {
		return Deny
	}
	if owner == subject {
		return Permit
	}
	return Deny
}
