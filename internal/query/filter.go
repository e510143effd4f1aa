package query

import "strings"

// Op is the comparison applied by a Condition.
type Op int

const (
	// OpContains is a case-insensitive substring match against Value.
	OpContains Op = iota
	// OpPositive requires the column to be strictly greater than zero.
	OpPositive
)

// Condition is one atomic predicate on a single column.
type Condition struct {
	Column Column
	Op     Op
	Value  string
}

// FilterSpec is a conjunction of conditions. An empty spec matches every row.
type FilterSpec struct {
	Conditions []Condition
}

// IsEmpty reports whether the spec is the universal predicate.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// Has reports whether the spec contains a condition with the given column and op.
func (f FilterSpec) Has(col Column, op Op) bool {
	for _, c := range f.Conditions {
		if c.Column == col && c.Op == op {
			return true
		}
	}
	return false
}

// Build describes the WHERE clause for a listing.
//
// A non-blank keyword adds a substring match on the search column. A fuel-price
// sort column adds a "> 0" condition on that column so stations that do not
// sell the fuel stay out of the ordering.
func Build(sort, search Column, keyword string) FilterSpec {
	var spec FilterSpec
	if kw := strings.TrimSpace(keyword); kw != "" {
		spec.Conditions = append(spec.Conditions, Condition{Column: search, Op: OpContains, Value: kw})
	}
	if sort.IsFuelPrice() {
		spec.Conditions = append(spec.Conditions, Condition{Column: sort, Op: OpPositive})
	}
	return spec
}

// EscapeLike escapes LIKE wildcards so s matches literally. The escape
// character is a backslash; queries must declare ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
