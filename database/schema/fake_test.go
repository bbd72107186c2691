package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/spiral-modules/dbal/database/result"
	"github.com/spiral-modules/dbal/database/types"
)

func testTypes() *TypeMap {
	return &TypeMap{
		Forward: map[AbstractType]TypeDefinition{
			Primary:    {Type: "int", AutoIncrement: true},
			BigPrimary: {Type: "bigint", AutoIncrement: true},
			Integer:    {Type: "int"},
			BigInteger: {Type: "bigint"},
			Boolean:    {Type: "tinyint", Size: 1},
			String:     {Type: "varchar", Size: 255},
			Text:       {Type: "text"},
			Decimal:    {Type: "decimal"},
			Datetime:   {Type: "datetime"},
			Timestamp:  {Type: "timestamp"},
			Enum:       {Type: "varchar"},
		},
		Reverse: map[string][]ReverseRule{
			"int":       {{Abstract: Primary, AutoIncrement: true}, {Abstract: Integer}},
			"bigint":    {{Abstract: BigPrimary, AutoIncrement: true}, {Abstract: BigInteger}},
			"tinyint":   {{Abstract: Boolean, Size: 1}, {Abstract: TinyInteger}},
			"varchar":   {{Abstract: String}},
			"text":      {{Abstract: Text}},
			"datetime":  {{Abstract: Datetime}},
			"timestamp": {{Abstract: Timestamp}},
		},
		ForbiddenDefaults: []string{"text"},
		SizedTypes:        []string{"varchar"},
	}
}

// fakeHandler serves tables from memory and renders every operation as its name.
type fakeHandler struct {
	types       *TypeMap
	tables      map[string]*State
	unsupported map[OperationKind]bool
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{types: testTypes(), tables: map[string]*State{}, unsupported: map[OperationKind]bool{}}
}

func (h *fakeHandler) Dialect() types.Dialect { return types.MySQL }
func (h *fakeHandler) Types() *TypeMap        { return h.types }

func (h *fakeHandler) TableNames(context.Context, Executor) ([]string, error) {
	var names []string
	for name := range h.tables {
		names = append(names, name)
	}
	return names, nil
}

func (h *fakeHandler) HasTable(_ context.Context, _ Executor, table string) (bool, error) {
	_, ok := h.tables[table]
	return ok, nil
}

func (h *fakeHandler) Columns(_ context.Context, _ Executor, table string) ([]*Column, error) {
	var out []*Column
	for _, c := range h.tables[table].Clone().columns {
		c.state = nil
		out = append(out, c)
	}
	return out, nil
}

func (h *fakeHandler) Indexes(_ context.Context, _ Executor, table string) ([]*Index, error) {
	return h.tables[table].Clone().indexes, nil
}

func (h *fakeHandler) References(_ context.Context, _ Executor, table string) ([]*Reference, error) {
	return h.tables[table].Clone().references, nil
}

func (h *fakeHandler) PrimaryKeys(_ context.Context, _ Executor, table string) ([]string, error) {
	return h.tables[table].PrimaryKeys(), nil
}

func (h *fakeHandler) ColumnDefinition(c *Column) string {
	return fmt.Sprintf("%s %s(%d)", c.Name(), c.Type(), c.Size())
}

func (h *fakeHandler) Render(op Operation) ([]string, error) {
	if h.unsupported[op.Kind] {
		return nil, fmt.Errorf("%s: %w", op.Kind, types.ErrNotSupported)
	}
	return []string{op.String()}, nil
}

// fakeExec records statements and fails the one matching failOn.
type fakeExec struct {
	statements []string
	failOn     string
}

func (e *fakeExec) Query(context.Context, string, ...any) (*result.Cursor, error) {
	return nil, errors.New("unexpected query")
}

func (e *fakeExec) Execute(_ context.Context, query string, _ ...any) (int64, error) {
	e.statements = append(e.statements, query)
	if query == e.failOn {
		return 0, errors.New("duplicate column")
	}
	return 0, nil
}

func usersState(types *TypeMap) *State {
	s := NewState("users")
	s.RegisterColumn(NewColumn("id", types)).BigPrimary()
	s.RegisterColumn(NewColumn("email", types)).String(255).Nullable(false)
	s.RegisterColumn(NewColumn("created_at", types)).Datetime()
	return s
}
