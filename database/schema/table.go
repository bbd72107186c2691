package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spiral-modules/dbal/database/types"
	"github.com/spiral-modules/dbal/logger"
)

// Schema reads tables through a dialect Handler and applies declared changes.
type Schema struct {
	handler   Handler
	exec      Executor
	commander *Commander
}

// New creates a schema over exec. A nil log disables DDL logging.
func New(h Handler, exec Executor, log logger.Logger) *Schema {
	return &Schema{handler: h, exec: exec, commander: NewCommander(h, exec, log)}
}

// Handler returns the dialect handler.
func (s *Schema) Handler() Handler { return s.handler }

// HasTable reports whether table exists.
func (s *Schema) HasTable(ctx context.Context, table string) (bool, error) {
	return s.handler.HasTable(ctx, s.exec, table)
}

// TableNames lists the tables of the current database.
func (s *Schema) TableNames(ctx context.Context) ([]string, error) {
	return s.handler.TableNames(ctx, s.exec)
}

// Table loads table. A table that does not exist yet is returned empty, ready to be
// declared and saved.
func (s *Schema) Table(ctx context.Context, name string) (*Table, error) {
	t := &Table{schema: s, name: name}
	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Tables loads every table of the current database.
func (s *Schema) Tables(ctx context.Context) ([]*Table, error) {
	names, err := s.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		t, err := s.Table(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Create declares a new table with fn and saves it. The table must not exist.
func (s *Schema) Create(ctx context.Context, name string, fn func(t *Table)) error {
	t, err := s.Table(ctx, name)
	if err != nil {
		return err
	}
	if t.Exists() {
		return s.tableError(name, "create table "+name, errors.New("table already exists"))
	}
	fn(t)
	return t.Save(ctx)
}

// Alter modifies an existing table with fn and saves it.
func (s *Schema) Alter(ctx context.Context, name string, fn func(t *Table)) error {
	t, err := s.Table(ctx, name)
	if err != nil {
		return err
	}
	if !t.Exists() {
		return s.tableError(name, "alter table "+name, errors.New("table does not exist"))
	}
	fn(t)
	return t.Save(ctx)
}

func (s *Schema) tableError(table, op string, err error) error {
	return &types.SchemaError{Dialect: s.handler.Dialect(), Table: table, Operation: op, Err: err}
}

// Table pairs the introspected state of a table with the desired one. Changes made through
// its methods only touch the desired state until Save.
type Table struct {
	schema  *Schema
	name    string
	exists  bool
	initial *State
	current *State
}

func (t *Table) load(ctx context.Context) error {
	exists, err := t.schema.HasTable(ctx, t.name)
	if err != nil {
		return fmt.Errorf("failed to check table %s: %w", t.name, err)
	}
	t.exists = exists
	if !exists {
		t.initial = nil
		t.current = NewState(t.name)
		return nil
	}

	state, err := Load(ctx, t.schema.handler, t.schema.exec, t.name)
	if err != nil {
		return fmt.Errorf("failed to load table %s: %w", t.name, err)
	}
	t.initial = state
	t.current = state.Clone()
	return nil
}

func (t *Table) Name() string { return t.name }

// Exists reports whether the table exists in the database.
func (t *Table) Exists() bool { return t.exists }

// Initial returns the introspected state, or nil for a table that does not exist.
func (t *Table) Initial() *State { return t.initial }

// State returns the desired state.
func (t *Table) State() *State { return t.current }

func (t *Table) Columns() []*Column       { return t.current.Columns() }
func (t *Table) Indexes() []*Index        { return t.current.Indexes() }
func (t *Table) References() []*Reference { return t.current.References() }
func (t *Table) PrimaryKeys() []string    { return t.current.PrimaryKeys() }

// HasColumn reports whether the desired state has column name.
func (t *Table) HasColumn(name string) bool { return t.current.Column(name) != nil }

// Column returns column name, declaring it when missing.
func (t *Table) Column(name string) *Column {
	if c := t.current.Column(name); c != nil {
		return c
	}
	return t.current.RegisterColumn(NewColumn(name, t.schema.handler.Types()))
}

// Index returns the index over columns, declaring it when missing.
func (t *Table) Index(columns ...string) *Index {
	if idx := t.current.findIndex(columns); idx != nil {
		return idx
	}
	return t.current.RegisterIndex(NewIndex(t.name, "", columns...))
}

// ForeignKey returns the foreign key on column, declaring it when missing.
func (t *Table) ForeignKey(column string) *Reference {
	if ref := t.current.findReference(column); ref != nil {
		return ref
	}
	return t.current.RegisterReference(NewReference(t.name, "", column))
}

// DropColumn removes a column together with the indexes and foreign keys using it.
func (t *Table) DropColumn(name string) {
	for _, idx := range t.current.Indexes() {
		if slices.Contains(idx.columns, name) {
			t.current.removeIndex(idx.name)
		}
	}
	for _, ref := range t.current.References() {
		if ref.column == name {
			t.current.removeReference(ref.name)
		}
	}
	t.current.removeColumn(name)
}

// DropIndex removes the index over columns.
func (t *Table) DropIndex(columns ...string) {
	if idx := t.current.findIndex(columns); idx != nil {
		t.current.removeIndex(idx.name)
	}
}

// DropForeignKey removes the foreign key on column.
func (t *Table) DropForeignKey(column string) {
	if ref := t.current.findReference(column); ref != nil {
		t.current.removeReference(ref.name)
	}
}

// SetPrimaryKeys replaces the primary key. Only new tables accept a change.
func (t *Table) SetPrimaryKeys(columns ...string) {
	t.current.SetPrimaryKeys(columns...)
}

// Diff returns the operations Save would apply.
func (t *Table) Diff() ([]Operation, error) {
	var initial *State
	if t.exists {
		initial = t.initial
	}

	ops, err := Compare(initial, t.current)
	if err != nil {
		var se *types.SchemaError
		if errors.As(err, &se) {
			se.Dialect = t.schema.handler.Dialect()
		}
		return nil, err
	}

	if planner, ok := t.schema.handler.(Planner); ok && initial != nil {
		ops = planner.Plan(initial, t.current, ops)
	}
	return ops, nil
}

// Statements renders the pending DDL without executing it.
func (t *Table) Statements() ([]string, error) {
	ops, err := t.Diff()
	if err != nil {
		return nil, err
	}
	return t.schema.commander.Statements(ops)
}

// Save applies the pending changes. On success the desired state becomes the new
// introspected state.
func (t *Table) Save(ctx context.Context) error {
	ops, err := t.Diff()
	if err != nil {
		return err
	}
	if err := t.schema.commander.Execute(ctx, ops); err != nil {
		return err
	}
	t.exists = true
	t.initial = t.current.Clone()
	return nil
}

// Drop drops the table and resets it to an empty declaration.
func (t *Table) Drop(ctx context.Context) error {
	if !t.exists {
		return nil
	}
	op := Operation{Kind: DropTable, Table: t.name, Initial: t.initial}
	if err := t.schema.commander.Execute(ctx, []Operation{op}); err != nil {
		return err
	}
	t.exists = false
	t.initial = nil
	t.current = NewState(t.name)
	return nil
}
