// Package query holds the statement builders and the compiler rendering them to SQL.
//
// Builders are plain data: Select, Insert, Update and Delete collect tokens (where trees,
// joins, ordering, grouping, pagination, unions) and never produce text themselves. A
// Compiler bound to one dialect renders a builder into SQL with "?" placeholders plus the
// ordered argument list; the driver rewrites the placeholders into the dialect's native
// format at execution time. Identifiers are always quoted.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/parameter"
	"github.com/spiral-modules/dbal/database/types"
)

var (
	// ErrInvalidOperator is returned for comparison operators outside the allowed set.
	ErrInvalidOperator = errors.New("invalid comparison operator")
	// ErrInvalidQuery is returned for builders missing required parts.
	ErrInvalidQuery = errors.New("invalid query")
)

// Builder is a statement the Compiler can render.
type Builder interface {
	compile(s *state) error
}

// Compiler renders builders for one dialect. It holds no per-call state and is safe for
// concurrent use.
type Compiler struct {
	dialect dialect.Dialect
}

// NewCompiler creates a compiler for d.
func NewCompiler(d dialect.Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the dialect the compiler renders for.
func (c *Compiler) Dialect() dialect.Dialect {
	return c.dialect
}

// Compile renders q into SQL with "?" placeholders and its flattened arguments.
// Identical builders always compile to identical output.
func (c *Compiler) Compile(q Builder) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("%w: nil builder", ErrInvalidQuery)
	}
	s := &state{dialect: c.dialect}
	if err := q.compile(s); err != nil {
		return "", nil, err
	}
	return s.b.String(), s.args, nil
}

// Identifier quotes a table or column reference.
func (c *Compiler) Identifier(name string) string {
	return c.dialect.QuoteIdentifier(name)
}

type state struct {
	dialect dialect.Dialect
	b       strings.Builder
	args    []any
}

func (s *state) write(text string) {
	s.b.WriteString(text)
}

func (s *state) ident(name string) string {
	return s.dialect.QuoteIdentifier(name)
}

// column writes an identifier or an expression used in column position.
func (s *state) column(col any) error {
	switch v := col.(type) {
	case string:
		s.write(s.ident(v))
	case Ident:
		s.write(s.ident(string(v)))
	case Expression:
		return v.render(s)
	case *Select:
		return s.subquery(v)
	case squirrel.Sqlizer:
		return s.sqlizer(v)
	default:
		return fmt.Errorf("%w: unsupported column %T", ErrInvalidQuery, col)
	}
	return nil
}

// value writes a bound value, expanding arrays into "(?, ?, ?)".
func (s *state) value(v any) error {
	switch val := v.(type) {
	case Ident:
		s.write(s.ident(string(val)))
		return nil
	case Expression:
		return val.render(s)
	case *Select:
		return s.subquery(val)
	case squirrel.Sqlizer:
		s.write("(")
		if err := s.sqlizer(val); err != nil {
			return err
		}
		s.write(")")
		return nil
	}

	p := parameter.Wrap(v)
	if !p.IsArray() {
		s.write("?")
		s.args = append(s.args, p.Value())
		return nil
	}

	elements, err := p.Elements()
	if err != nil {
		return &types.InvalidBindingError{Key: fmt.Sprintf("#%d", len(s.args)), Reason: err.Error()}
	}
	s.write("(")
	for i, elem := range elements {
		if i > 0 {
			s.write(", ")
		}
		s.write("?")
		s.args = append(s.args, elem)
	}
	s.write(")")
	return nil
}

func (s *state) sqlizer(expr squirrel.Sqlizer) error {
	sql, args, err := expr.ToSql()
	if err != nil {
		return fmt.Errorf("failed to render expression: %w", err)
	}
	s.write(sql)
	s.args = append(s.args, args...)
	return nil
}

func (s *state) subquery(q *Select) error {
	if q == nil {
		return fmt.Errorf("%w: nil subquery", ErrInvalidQuery)
	}
	s.write("(")
	if err := q.compile(s); err != nil {
		return err
	}
	s.write(")")
	return nil
}

func (s *state) conditions(keyword string, g *Group) error {
	if g.Empty() {
		return nil
	}
	s.write(" " + keyword + " ")
	return g.render(s)
}

func isArray(v any) bool {
	switch v.(type) {
	case nil, Ident, Expression, *Select, squirrel.Sqlizer:
		return false
	}
	return parameter.Wrap(v).IsArray()
}

func arrayLen(v any) int {
	return parameter.Wrap(v).Len()
}

// Raw wraps a complete squirrel statement so it can go through the same execution path as
// the native builders. The statement must use "?" placeholders.
func Raw(stmt squirrel.Sqlizer) Builder {
	return rawStatement{stmt}
}

type rawStatement struct {
	squirrel.Sqlizer
}

func (r rawStatement) compile(s *state) error {
	return s.sqlizer(r.Sqlizer)
}
