package query

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Condition is a node of a where tree: a leaf comparison or an AND/OR group.
type Condition interface {
	render(s *state) error
}

// Ident marks a value as a column reference rather than a bound parameter, as in join
// conditions: Compare("users.id", "=", Ident("orders.user_id")).
type Ident string

// Expression is a raw SQL fragment with its own "?" bound arguments. It can be used as a
// condition, a selected column, an ORDER BY term or a value.
type Expression struct {
	SQL  string
	Args []any
}

// Expr creates a raw SQL fragment. It is rendered verbatim and never quoted.
func Expr(sql string, args ...any) Expression {
	return Expression{SQL: sql, Args: args}
}

// ToSql implements squirrel.Sqlizer.
func (e Expression) ToSql() (sql string, args []any, err error) {
	return e.SQL, e.Args, nil
}

func (e Expression) render(s *state) error {
	s.write(e.SQL)
	s.args = append(s.args, e.Args...)
	return nil
}

var operators = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"LIKE": {}, "NOT LIKE": {}, "ILIKE": {}, "NOT ILIKE": {},
	"IN": {}, "NOT IN": {}, "IS": {}, "IS NOT": {}, "REGEXP": {},
}

type comparison struct {
	column   any
	operator string
	value    any
}

// Compare builds a "column operator value" leaf. Operators are validated at compile time.
// A nil value with = or != renders IS NULL / IS NOT NULL; an array value with = or !=
// renders IN / NOT IN.
func Compare(column any, operator string, value any) Condition {
	return comparison{column: column, operator: strings.ToUpper(strings.TrimSpace(operator)), value: value}
}

// Eq builds column = value.
func Eq(column string, value any) Condition { return Compare(column, "=", value) }

// NotEq builds column != value.
func NotEq(column string, value any) Condition { return Compare(column, "!=", value) }

// Gt builds column > value.
func Gt(column string, value any) Condition { return Compare(column, ">", value) }

// Gte builds column >= value.
func Gte(column string, value any) Condition { return Compare(column, ">=", value) }

// Lt builds column < value.
func Lt(column string, value any) Condition { return Compare(column, "<", value) }

// Lte builds column <= value.
func Lte(column string, value any) Condition { return Compare(column, "<=", value) }

// Like builds column LIKE pattern.
func Like(column string, pattern string) Condition { return Compare(column, "LIKE", pattern) }

// In builds column IN (...). values is an array, a parameter.Array or a *Select.
func In(column string, values any) Condition { return Compare(column, "IN", values) }

// NotIn builds column NOT IN (...).
func NotIn(column string, values any) Condition { return Compare(column, "NOT IN", values) }

// On builds a join condition between two columns.
func On(left, operator, right string) Condition { return Compare(left, operator, Ident(right)) }

type nullCheck struct {
	column string
	not    bool
}

// IsNull builds column IS NULL.
func IsNull(column string) Condition { return nullCheck{column: column} }

// IsNotNull builds column IS NOT NULL.
func IsNotNull(column string) Condition { return nullCheck{column: column, not: true} }

func (n nullCheck) render(s *state) error {
	s.write(s.ident(n.column))
	if n.not {
		s.write(" IS NOT NULL")
	} else {
		s.write(" IS NULL")
	}
	return nil
}

type between struct {
	column   string
	from, to any
	not      bool
}

// Between builds column BETWEEN from AND to.
func Between(column string, from, to any) Condition {
	return between{column: column, from: from, to: to}
}

// NotBetween builds column NOT BETWEEN from AND to.
func NotBetween(column string, from, to any) Condition {
	return between{column: column, from: from, to: to, not: true}
}

func (b between) render(s *state) error {
	s.write(s.ident(b.column))
	if b.not {
		s.write(" NOT")
	}
	s.write(" BETWEEN ")
	if err := s.value(b.from); err != nil {
		return err
	}
	s.write(" AND ")
	return s.value(b.to)
}

type sqlizerCondition struct {
	squirrel.Sqlizer
}

// Sqlizer adapts a squirrel expression (squirrel.Eq, squirrel.Or, ...) into a condition.
// The expression must use "?" placeholders.
func Sqlizer(expr squirrel.Sqlizer) Condition {
	return sqlizerCondition{expr}
}

func (c sqlizerCondition) render(s *state) error {
	sql, args, err := c.ToSql()
	if err != nil {
		return fmt.Errorf("failed to render condition: %w", err)
	}
	s.write(sql)
	s.args = append(s.args, args...)
	return nil
}

type exists struct {
	query *Select
	not   bool
}

// Exists builds EXISTS (subquery).
func Exists(q *Select) Condition { return exists{query: q} }

// NotExists builds NOT EXISTS (subquery).
func NotExists(q *Select) Condition { return exists{query: q, not: true} }

func (e exists) render(s *state) error {
	if e.not {
		s.write("NOT ")
	}
	s.write("EXISTS ")
	return s.subquery(e.query)
}

type joiner string

const (
	and joiner = "AND"
	or  joiner = "OR"
)

// Group is an ordered list of conditions joined by AND/OR. Nested groups render in
// parentheses; AND binds tighter than OR as in SQL.
type Group struct {
	joiners []joiner
	items   []Condition
}

// And groups conditions with AND.
func And(conditions ...Condition) *Group {
	g := &Group{}
	for _, c := range conditions {
		g.push(and, c)
	}
	return g
}

// Or groups conditions with OR.
func Or(conditions ...Condition) *Group {
	g := &Group{}
	for _, c := range conditions {
		g.push(or, c)
	}
	return g
}

// Not negates a condition.
func Not(c Condition) Condition { return negation{c} }

type negation struct{ Condition }

func (n negation) render(s *state) error {
	s.write("NOT (")
	if err := n.Condition.render(s); err != nil {
		return err
	}
	s.write(")")
	return nil
}

// Empty reports whether the group has no conditions.
func (g *Group) Empty() bool { return g == nil || len(g.items) == 0 }

func (g *Group) push(j joiner, c Condition) {
	if c == nil {
		return
	}
	if inner, ok := c.(*Group); ok && inner.Empty() {
		return
	}
	g.joiners = append(g.joiners, j)
	g.items = append(g.items, c)
}

// add appends conditions joined by j. Several conditions joined by OR form one AND group;
// joined by AND they are appended one by one.
func (g *Group) add(j joiner, conditions []Condition) {
	if j == or && len(conditions) > 1 {
		g.push(or, And(conditions...))
		return
	}
	for _, c := range conditions {
		g.push(j, c)
	}
}

func (g *Group) render(s *state) error {
	for i, item := range g.items {
		if i > 0 {
			s.write(" " + string(g.joiners[i]) + " ")
		}
		nested, isGroup := item.(*Group)
		if isGroup && len(nested.items) > 1 {
			s.write("(")
		}
		if err := item.render(s); err != nil {
			return err
		}
		if isGroup && len(nested.items) > 1 {
			s.write(")")
		}
	}
	return nil
}

func (c comparison) render(s *state) error {
	if _, ok := operators[c.operator]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, c.operator)
	}

	operator := c.operator
	if c.value == nil {
		switch operator {
		case "=", "IS":
			operator = "IS NULL"
		case "!=", "<>", "IS NOT":
			operator = "IS NOT NULL"
		}
	}
	if isArray(c.value) {
		switch operator {
		case "=":
			operator = "IN"
		case "!=", "<>":
			operator = "NOT IN"
		}
		if arrayLen(c.value) == 0 {
			// An empty list matches nothing for IN and everything for NOT IN.
			if operator == "NOT IN" {
				s.write("1 = 1")
			} else {
				s.write("1 = 0")
			}
			return nil
		}
	}

	if err := s.column(c.column); err != nil {
		return err
	}
	if operator == "IS NULL" || operator == "IS NOT NULL" {
		s.write(" " + operator)
		return nil
	}
	s.write(" " + operator + " ")
	return s.value(c.value)
}
