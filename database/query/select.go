package query

import (
	"fmt"
	"strings"
)

// JoinType is the kind of a JOIN clause.
type JoinType string

// Join kinds.
const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
	CrossJoin JoinType = "CROSS"
)

type source struct {
	table string
	sub   *Select
	alias string
}

type join struct {
	kind   JoinType
	source source
	on     *Group
}

type ordering struct {
	column    any
	direction string
}

type union struct {
	all   bool
	query *Select
}

// Select is a SELECT statement builder.
type Select struct {
	distinct bool
	columns  []any
	from     []source
	joins    []join
	where    Group
	groupBy  []any
	having   Group
	orderBy  []ordering
	limit    uint64
	offset   uint64
	unions   []union
}

// NewSelect starts a SELECT of columns. Columns are identifiers ("users.email",
// "email AS mail", "*") or Expression values. No columns selects *.
func NewSelect(columns ...any) *Select {
	return &Select{columns: columns}
}

// Columns appends projected columns.
func (q *Select) Columns(columns ...any) *Select {
	q.columns = append(q.columns, columns...)
	return q
}

// Distinct adds DISTINCT.
func (q *Select) Distinct() *Select {
	q.distinct = true
	return q
}

// From sets the source tables. "users AS u" aliases a table.
func (q *Select) From(tables ...string) *Select {
	for _, t := range tables {
		q.from = append(q.from, source{table: t})
	}
	return q
}

// FromSelect selects from a derived table.
func (q *Select) FromSelect(sub *Select, alias string) *Select {
	q.from = append(q.from, source{sub: sub, alias: alias})
	return q
}

// Join adds a join; joins render in declaration order.
func (q *Select) Join(kind JoinType, table string, on ...Condition) *Select {
	q.joins = append(q.joins, join{kind: kind, source: source{table: table}, on: And(on...)})
	return q
}

// JoinSelect joins a derived table.
func (q *Select) JoinSelect(kind JoinType, sub *Select, alias string, on ...Condition) *Select {
	q.joins = append(q.joins, join{kind: kind, source: source{sub: sub, alias: alias}, on: And(on...)})
	return q
}

// InnerJoin adds an INNER JOIN.
func (q *Select) InnerJoin(table string, on ...Condition) *Select {
	return q.Join(InnerJoin, table, on...)
}

// LeftJoin adds a LEFT JOIN.
func (q *Select) LeftJoin(table string, on ...Condition) *Select {
	return q.Join(LeftJoin, table, on...)
}

// RightJoin adds a RIGHT JOIN.
func (q *Select) RightJoin(table string, on ...Condition) *Select {
	return q.Join(RightJoin, table, on...)
}

// Where adds conditions joined to the tree with AND. Several conditions in one call form
// an AND group.
func (q *Select) Where(conditions ...Condition) *Select {
	q.where.add(and, conditions)
	return q
}

// OrWhere adds conditions joined to the tree with OR.
func (q *Select) OrWhere(conditions ...Condition) *Select {
	q.where.add(or, conditions)
	return q
}

// GroupBy appends grouping columns.
func (q *Select) GroupBy(columns ...any) *Select {
	q.groupBy = append(q.groupBy, columns...)
	return q
}

// Having adds HAVING conditions joined with AND.
func (q *Select) Having(conditions ...Condition) *Select {
	q.having.add(and, conditions)
	return q
}

// OrHaving adds HAVING conditions joined with OR.
func (q *Select) OrHaving(conditions ...Condition) *Select {
	q.having.add(or, conditions)
	return q
}

// OrderBy appends an ordering term; direction is ASC or DESC (case insensitive, empty
// means ASC).
func (q *Select) OrderBy(column any, direction string) *Select {
	q.orderBy = append(q.orderBy, ordering{column: column, direction: strings.ToUpper(strings.TrimSpace(direction))})
	return q
}

// Limit sets the row limit; 0 means none.
func (q *Select) Limit(limit uint64) *Select {
	q.limit = limit
	return q
}

// Offset sets the number of skipped rows.
func (q *Select) Offset(offset uint64) *Select {
	q.offset = offset
	return q
}

// Union appends UNION other.
func (q *Select) Union(other *Select) *Select {
	q.unions = append(q.unions, union{query: other})
	return q
}

// UnionAll appends UNION ALL other.
func (q *Select) UnionAll(other *Select) *Select {
	q.unions = append(q.unions, union{all: true, query: other})
	return q
}

func (q *Select) compile(s *state) error {
	s.write("SELECT ")
	if q.distinct {
		s.write("DISTINCT ")
	}

	if len(q.columns) == 0 {
		s.write("*")
	}
	for i, col := range q.columns {
		if i > 0 {
			s.write(", ")
		}
		if err := s.column(col); err != nil {
			return err
		}
	}

	if len(q.from) > 0 {
		s.write(" FROM ")
		for i, src := range q.from {
			if i > 0 {
				s.write(", ")
			}
			if err := src.render(s); err != nil {
				return err
			}
		}
	}

	for _, j := range q.joins {
		if err := j.render(s); err != nil {
			return err
		}
	}

	if err := s.conditions("WHERE", &q.where); err != nil {
		return err
	}

	if len(q.groupBy) > 0 {
		s.write(" GROUP BY ")
		for i, col := range q.groupBy {
			if i > 0 {
				s.write(", ")
			}
			if err := s.column(col); err != nil {
				return err
			}
		}
	}

	if err := s.conditions("HAVING", &q.having); err != nil {
		return err
	}

	for i, u := range q.unions {
		if u.query == nil {
			return fmt.Errorf("%w: nil union query", ErrInvalidQuery)
		}
		if u.all {
			s.write(" UNION ALL ")
		} else {
			s.write(" UNION ")
		}
		if !u.query.bounded() {
			if err := u.query.compile(s); err != nil {
				return err
			}
			continue
		}
		// A member's ORDER BY or LIMIT would bind the whole union unless it is nested.
		s.write("SELECT * FROM ")
		if err := s.subquery(u.query); err != nil {
			return err
		}
		s.write(" AS " + s.ident(fmt.Sprintf("u%d", i+1)))
	}

	if len(q.orderBy) > 0 {
		s.write(" ORDER BY ")
		for i, o := range q.orderBy {
			if i > 0 {
				s.write(", ")
			}
			if err := s.column(o.column); err != nil {
				return err
			}
			switch o.direction {
			case "", "ASC":
				s.write(" ASC")
			case "DESC":
				s.write(" DESC")
			default:
				return fmt.Errorf("%w: invalid sort direction %q", ErrInvalidQuery, o.direction)
			}
		}
	}

	if clause := s.dialect.LimitOffset(q.limit, q.offset, len(q.orderBy) > 0); clause != "" {
		s.write(" " + clause)
	}
	return nil
}

// bounded reports whether the query orders or limits its own rows.
func (q *Select) bounded() bool {
	return len(q.orderBy) > 0 || q.limit > 0 || q.offset > 0
}

func (src source) render(s *state) error {
	if src.sub == nil {
		s.write(s.ident(src.table))
		return nil
	}
	if src.alias == "" {
		return fmt.Errorf("%w: derived table requires an alias", ErrInvalidQuery)
	}
	if err := s.subquery(src.sub); err != nil {
		return err
	}
	s.write(" AS " + s.ident(src.alias))
	return nil
}

func (j join) render(s *state) error {
	s.write(" " + string(j.kind) + " JOIN ")
	if err := j.source.render(s); err != nil {
		return err
	}
	if j.kind == CrossJoin {
		return nil
	}
	if j.on.Empty() {
		return fmt.Errorf("%w: %s JOIN without ON condition", ErrInvalidQuery, j.kind)
	}
	s.write(" ON ")
	return j.on.render(s)
}
