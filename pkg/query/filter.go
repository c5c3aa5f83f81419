package query

// Operator names a filter comparison
type Operator string

const (
	OpEq        Operator = "$eq"
	OpNe        Operator = "$ne"
	OpIn        Operator = "$in"
	OpElemMatch Operator = "$elemMatch"
	OpNin       Operator = "$nin"
	OpExists    Operator = "$exists"
	OpRegex     Operator = "$regex"
	OpLt        Operator = "$lt"
	OpLte       Operator = "$lte"
	OpGt        Operator = "$gt"
	OpGte       Operator = "$gte"
	OpOr        Operator = "$or"  // collection field contains value
	OpAnd       Operator = "$and" // collection field contains all values
	OpBool      Operator = "$bool"
	OpNested    Operator = "$nested"
)

// Boolean combinators selected by the key of a $bool filter
const (
	BoolOr  = "or"
	BoolNot = "not"
	BoolAnd = "and"
)

// Filter is a single clause of a descriptor. The shape of Value depends on Op:
// scalars for comparisons, lists (or "a|b" strings) for membership, groups for
// $bool, and clauses or plain maps for $nested.
type Filter struct {
	Key   string      `json:"key" yaml:"key"`
	Op    Operator    `json:"op,omitempty" yaml:"op,omitempty"`
	Value interface{} `json:"value" yaml:"value"`
}

// Group is one operand of a $bool filter
type Group struct {
	Filters []Filter `json:"filters" yaml:"filters"`
}

// Or builds a $bool filter matching any of the groups
func Or(groups ...Group) Filter {
	return Filter{Key: BoolOr, Op: OpBool, Value: groups}
}

// Not builds a $bool filter matching none of the groups
func Not(groups ...Group) Filter {
	return Filter{Key: BoolNot, Op: OpBool, Value: groups}
}

// And builds a $bool filter matching all of the groups
func And(groups ...Group) Filter {
	return Filter{Key: BoolAnd, Op: OpBool, Value: groups}
}

// Nested builds a $nested filter on a related path
func Nested(key string, value interface{}) Filter {
	return Filter{Key: key, Op: OpNested, Value: value}
}
