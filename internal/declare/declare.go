// Package declare loads declarative table definitions from YAML and applies them to
// schema tables so the difference to the live database can be rendered or saved.
package declare

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/spiral-modules/dbal/database/schema"
)

// File is a set of table declarations keyed by table name.
type File struct {
	Tables map[string]Table `koanf:"tables" validate:"required,min=1,dive"`
}

// Table declares the complete desired shape of one table. Columns, indexes and foreign
// keys missing from the declaration are dropped.
type Table struct {
	Columns     []Column     `koanf:"columns" validate:"required,min=1,dive"`
	Indexes     []Index      `koanf:"indexes" validate:"dive"`
	ForeignKeys []ForeignKey `koanf:"foreign_keys" validate:"dive"`
	PrimaryKeys []string     `koanf:"primary_keys"`
}

type Column struct {
	Name      string `koanf:"name" validate:"required"`
	Type      string `koanf:"type" validate:"required,abstract"`
	Size      int    `koanf:"size" validate:"gte=0"`
	Precision int    `koanf:"precision" validate:"gte=0"`
	Scale     int    `koanf:"scale" validate:"gte=0"`
	Nullable  *bool  `koanf:"nullable"`
	Default   any    `koanf:"default"`
	// DefaultRaw is an SQL expression such as CURRENT_TIMESTAMP. It wins over Default.
	DefaultRaw string   `koanf:"default_raw"`
	Values     []string `koanf:"values"`
}

type Index struct {
	Columns []string `koanf:"columns" validate:"required,min=1"`
	Unique  bool     `koanf:"unique"`
}

type ForeignKey struct {
	Column   string `koanf:"column" validate:"required"`
	Table    string `koanf:"table" validate:"required"`
	Key      string `koanf:"key" validate:"required"`
	OnDelete string `koanf:"on_delete" validate:"omitempty,rule"`
	OnUpdate string `koanf:"on_update" validate:"omitempty,rule"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		})
		_ = validate.RegisterValidation("abstract", func(fl validator.FieldLevel) bool {
			_, err := schema.ParseAbstractType(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("rule", func(fl validator.FieldLevel) bool {
			switch schema.Rule(strings.ToUpper(strings.ReplaceAll(fl.Field().String(), "_", " "))) {
			case schema.Cascade, schema.SetNull, schema.Restrict, schema.NoAction:
				return true
			}
			return false
		})
	})
	return validate
}

// Load reads and validates a declaration file.
func Load(path string) (*File, error) {
	k := koanf.New("/")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load declaration %s: %w", path, err)
	}
	return build(k)
}

// Parse reads and validates a declaration from YAML bytes.
func Parse(data []byte) (*File, error) {
	k := koanf.New("/")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse declaration: %w", err)
	}
	return build(k)
}

func build(k *koanf.Koanf) (*File, error) {
	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal declaration: %w", err)
	}
	if err := structValidator().Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("declaration validation failed: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.TrimPrefix(fe.Namespace(), "File."), fe.Tag()))
		}
		return nil, fmt.Errorf("invalid declaration: %s", strings.Join(msgs, "; "))
	}
	return &f, nil
}

// Order returns the declared table names with referenced tables before the tables
// referencing them, otherwise alphabetically. Reference cycles keep alphabetical order.
func (f *File) Order() []string {
	names := make([]string, 0, len(f.Tables))
	for name := range f.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	state := map[string]int{}
	var visit func(name string)
	visit = func(name string) {
		if state[name] != 0 {
			return
		}
		state[name] = 1
		for _, fk := range f.Tables[name].ForeignKeys {
			if _, declared := f.Tables[fk.Table]; declared && fk.Table != name {
				visit(fk.Table)
			}
		}
		state[name] = 2
		out = append(out, name)
	}
	for _, name := range names {
		visit(name)
	}
	return out
}

// Apply rewrites the desired state of t to match the declaration.
func (d Table) Apply(t *schema.Table) error {
	declared := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		declared = append(declared, c.Name)
	}
	for _, c := range t.Columns() {
		if !slices.Contains(declared, c.Name()) {
			t.DropColumn(c.Name())
		}
	}

	for _, c := range d.Columns {
		if err := c.apply(t.Column(c.Name)); err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
	}
	if len(d.PrimaryKeys) > 0 {
		t.SetPrimaryKeys(d.PrimaryKeys...)
	}

	for _, idx := range t.Indexes() {
		if !slices.ContainsFunc(d.Indexes, func(i Index) bool { return slices.Equal(i.Columns, idx.Columns()) }) {
			t.DropIndex(idx.Columns()...)
		}
	}
	for _, idx := range d.Indexes {
		t.Index(idx.Columns...).Unique(idx.Unique)
	}

	for _, ref := range t.References() {
		if !slices.ContainsFunc(d.ForeignKeys, func(fk ForeignKey) bool { return fk.Column == ref.Column() }) {
			t.DropForeignKey(ref.Column())
		}
	}
	for _, fk := range d.ForeignKeys {
		t.ForeignKey(fk.Column).
			References(fk.Table, fk.Key).
			OnDelete(schema.ParseRule(fk.OnDelete)).
			OnUpdate(schema.ParseRule(fk.OnUpdate))
	}
	return nil
}

func (c Column) apply(col *schema.Column) error {
	t, err := schema.ParseAbstractType(c.Type)
	if err != nil {
		return err
	}

	switch t {
	case schema.String:
		col.String(c.Size)
	case schema.Decimal:
		col.Decimal(c.Precision, c.Scale)
	case schema.Enum:
		col.Enum(c.Values...)
	default:
		col.SetType(t)
	}
	if t == schema.Primary || t == schema.BigPrimary {
		return nil
	}

	col.Nullable(c.Nullable == nil || *c.Nullable)
	def, err := c.defaultValue()
	if err != nil {
		return err
	}
	col.Default(def)
	return nil
}

func (c Column) defaultValue() (schema.Default, error) {
	if c.DefaultRaw != "" {
		return schema.RawDefault(c.DefaultRaw), nil
	}
	switch v := c.Default.(type) {
	case nil:
		return schema.NullDefault(), nil
	case bool:
		return schema.BoolDefault(v), nil
	case int:
		return schema.IntDefault(int64(v)), nil
	case int64:
		return schema.IntDefault(v), nil
	case uint64:
		return schema.IntDefault(int64(v)), nil
	case float64:
		return schema.FloatDefault(v), nil
	case string:
		return schema.StringDefault(v), nil
	default:
		return schema.Default{}, fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}
