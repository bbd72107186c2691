package query

import (
	"fmt"
	"sort"

	"github.com/spiral-modules/dbal/database/types"
)

// Insert is an INSERT statement builder.
type Insert struct {
	table     string
	columns   []string
	rows      [][]any
	returning []string
}

// NewInsert starts an INSERT into table.
func NewInsert(table string) *Insert {
	return &Insert{table: table}
}

// Columns sets the inserted column list.
func (q *Insert) Columns(columns ...string) *Insert {
	q.columns = append(q.columns, columns...)
	return q
}

// Values appends one row; it must match the column list length.
func (q *Insert) Values(values ...any) *Insert {
	q.rows = append(q.rows, values)
	return q
}

// SetMap sets columns and a single row from a map, ordered by column name.
func (q *Insert) SetMap(values map[string]any) *Insert {
	keys := sortedKeys(values)
	q.columns = keys
	row := make([]any, len(keys))
	for i, k := range keys {
		row[i] = values[k]
	}
	q.rows = [][]any{row}
	return q
}

// Returning requests generated values back (PostgreSQL, SQLite and SQL Server).
func (q *Insert) Returning(columns ...string) *Insert {
	q.returning = append(q.returning, columns...)
	return q
}

func (q *Insert) compile(s *state) error {
	if q.table == "" {
		return fmt.Errorf("%w: insert without table", ErrInvalidQuery)
	}
	s.write("INSERT INTO " + s.ident(q.table))

	if len(q.columns) == 0 {
		if len(q.rows) > 0 && len(q.rows[0]) > 0 {
			return fmt.Errorf("%w: insert values without columns", ErrInvalidQuery)
		}
		if s.dialect.Name() == types.MySQL {
			s.write(" () VALUES ()")
			return nil
		}
		if err := q.renderOutput(s); err != nil {
			return err
		}
		s.write(" DEFAULT VALUES")
		return q.renderReturning(s)
	}

	s.write(" (")
	for i, col := range q.columns {
		if i > 0 {
			s.write(", ")
		}
		s.write(s.ident(col))
	}
	s.write(")")

	if err := q.renderOutput(s); err != nil {
		return err
	}

	if len(q.rows) == 0 {
		return fmt.Errorf("%w: insert without values", ErrInvalidQuery)
	}
	s.write(" VALUES ")
	for r, row := range q.rows {
		if len(row) != len(q.columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", ErrInvalidQuery, r+1, len(row), len(q.columns))
		}
		if r > 0 {
			s.write(", ")
		}
		s.write("(")
		for i, v := range row {
			if i > 0 {
				s.write(", ")
			}
			if err := s.assignedValue(q.columns[i], v); err != nil {
				return err
			}
		}
		s.write(")")
	}
	return q.renderReturning(s)
}

// renderOutput writes the SQL Server OUTPUT clause, which precedes VALUES.
func (q *Insert) renderOutput(s *state) error {
	if len(q.returning) == 0 || s.dialect.Name() != types.SQLServer {
		return nil
	}
	s.write(" OUTPUT ")
	for i, col := range q.returning {
		if i > 0 {
			s.write(", ")
		}
		s.write("INSERTED." + s.ident(col))
	}
	return nil
}

func (q *Insert) renderReturning(s *state) error {
	if len(q.returning) == 0 {
		return nil
	}
	switch s.dialect.Name() {
	case types.SQLServer:
		return nil
	case types.Postgres, types.SQLite:
		s.write(" RETURNING ")
		for i, col := range q.returning {
			if i > 0 {
				s.write(", ")
			}
			s.write(s.ident(col))
		}
		return nil
	default:
		return fmt.Errorf("%w: %s does not support RETURNING", types.ErrNotSupported, s.dialect.Name())
	}
}

type assignment struct {
	column string
	value  any
}

// Update is an UPDATE statement builder.
type Update struct {
	table string
	set   []assignment
	where Group
}

// NewUpdate starts an UPDATE of table.
func NewUpdate(table string) *Update {
	return &Update{table: table}
}

// Set assigns value to column. value may be an Expression or a *Select.
func (q *Update) Set(column string, value any) *Update {
	q.set = append(q.set, assignment{column: column, value: value})
	return q
}

// SetMap assigns every map entry, ordered by column name.
func (q *Update) SetMap(values map[string]any) *Update {
	for _, k := range sortedKeys(values) {
		q.Set(k, values[k])
	}
	return q
}

// Where adds conditions joined with AND.
func (q *Update) Where(conditions ...Condition) *Update {
	q.where.add(and, conditions)
	return q
}

// OrWhere adds conditions joined with OR.
func (q *Update) OrWhere(conditions ...Condition) *Update {
	q.where.add(or, conditions)
	return q
}

func (q *Update) compile(s *state) error {
	if q.table == "" {
		return fmt.Errorf("%w: update without table", ErrInvalidQuery)
	}
	if len(q.set) == 0 {
		return fmt.Errorf("%w: update without values", ErrInvalidQuery)
	}

	s.write("UPDATE " + s.ident(q.table) + " SET ")
	for i, a := range q.set {
		if i > 0 {
			s.write(", ")
		}
		s.write(s.ident(a.column) + " = ")
		if err := s.assignedValue(a.column, a.value); err != nil {
			return err
		}
	}
	return s.conditions("WHERE", &q.where)
}

// Delete is a DELETE statement builder.
type Delete struct {
	table string
	where Group
}

// NewDelete starts a DELETE from table.
func NewDelete(table string) *Delete {
	return &Delete{table: table}
}

// Where adds conditions joined with AND.
func (q *Delete) Where(conditions ...Condition) *Delete {
	q.where.add(and, conditions)
	return q
}

// OrWhere adds conditions joined with OR.
func (q *Delete) OrWhere(conditions ...Condition) *Delete {
	q.where.add(or, conditions)
	return q
}

func (q *Delete) compile(s *state) error {
	if q.table == "" {
		return fmt.Errorf("%w: delete without table", ErrInvalidQuery)
	}
	s.write("DELETE FROM " + s.ident(q.table))
	return s.conditions("WHERE", &q.where)
}

// assignedValue rejects arrays: they only expand inside IN lists.
func (s *state) assignedValue(column string, v any) error {
	if isArray(v) {
		return &types.InvalidBindingError{Key: column, Reason: "arrays cannot be assigned to a column"}
	}
	return s.value(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
