// Package entity defines the capability contract persisted entities implement
// so the permission layer can filter queries to the rows a caller may reach,
// plus the typed descriptor registry that validates the contract at startup.
package entity

import (
	"fmt"
	"strings"
)

// Condition is one SQL predicate fragment with positional args. Fragments use
// ? placeholders; Query.Build renumbers them to the PostgreSQL $n form.
type Condition struct {
	SQL  string
	Args []interface{}
}

// Cond builds a condition.
func Cond(sql string, args ...interface{}) Condition {
	return Condition{SQL: sql, Args: args}
}

// AlwaysFalse is the predicate applied when access is denied: the query still
// executes so pagination and counting stay consistent, but matches no rows.
func AlwaysFalse() Condition {
	return Condition{SQL: "1 = 0"}
}

// OrConditions accumulates row-access predicates contributed by permission
// modules; they are applied as a single WHERE (a OR b OR ...) clause.
type OrConditions struct {
	conds []Condition
}

// Add appends predicates to the accumulator.
func (o *OrConditions) Add(conds ...Condition) {
	o.conds = append(o.conds, conds...)
}

// Empty reports whether no module contributed a predicate.
func (o *OrConditions) Empty() bool { return len(o.conds) == 0 }

// Condition folds the accumulated predicates into one OR condition.
// An empty accumulator yields the always-false predicate: scoped access with
// no matching grant must return no rows.
func (o *OrConditions) Condition() Condition {
	if len(o.conds) == 0 {
		return AlwaysFalse()
	}
	if len(o.conds) == 1 {
		return o.conds[0]
	}
	parts := make([]string, 0, len(o.conds))
	var args []interface{}
	for _, c := range o.conds {
		parts = append(parts, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	return Condition{SQL: strings.Join(parts, " OR "), Args: args}
}

// Query is a minimal select-statement model: enough structure for permission
// modules to attach joins and predicates without owning the full query text.
type Query struct {
	table   string
	columns []string
	joins   []string
	wheres  []Condition
}

// NewQuery starts a query against table selecting the given columns.
func NewQuery(table string, columns ...string) *Query {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &Query{table: table, columns: columns}
}

// Table returns the primary table name.
func (q *Query) Table() string { return q.table }

// Join appends a join clause, e.g. "JOIN projects p ON p.id = t.project_id".
// Duplicate clauses are dropped so independent modules can both require the
// same join.
func (q *Query) Join(clause string) *Query {
	for _, j := range q.joins {
		if j == clause {
			return q
		}
	}
	q.joins = append(q.joins, clause)
	return q
}

// Where appends an AND predicate.
func (q *Query) Where(cond Condition) *Query {
	q.wheres = append(q.wheres, cond)
	return q
}

// Build renders the statement with $n placeholders and the flattened args.
func (q *Query) Build() (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)
	for _, join := range q.joins {
		sb.WriteString(" ")
		sb.WriteString(join)
	}

	var args []interface{}
	if len(q.wheres) > 0 {
		parts := make([]string, 0, len(q.wheres))
		for _, c := range q.wheres {
			parts = append(parts, "("+c.SQL+")")
			args = append(args, c.Args...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	return renumber(sb.String()), args
}

// renumber rewrites ? placeholders to $1..$n.
func renumber(sql string) string {
	var sb strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			sb.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
