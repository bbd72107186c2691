// Package mysql reads MySQL and MariaDB catalogs into the abstract schema model and
// renders its operations as MySQL DDL.
package mysql

import (
	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// DefaultEngine is the storage engine of created tables.
const DefaultEngine = "InnoDB"

// Option configures a Handler.
type Option func(*Handler)

// WithEngine sets the ENGINE table option; an empty engine omits it.
func WithEngine(engine string) Option {
	return func(h *Handler) { h.engine = engine }
}

// Handler is the MySQL schema.Handler.
type Handler struct {
	q      schema.Quoter
	types  *schema.TypeMap
	engine string
}

var _ schema.Handler = (*Handler)(nil)

// New creates a handler quoting through d.
func New(d dialect.Dialect, opts ...Option) *Handler {
	h := &Handler{q: d, types: Types(), engine: DefaultEngine}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Dialect() types.Dialect { return types.MySQL }

func (h *Handler) Types() *schema.TypeMap { return h.types }

// Types returns the MySQL type table. Integer display widths are not compared, so int and
// int(11) are the same column.
func Types() *schema.TypeMap {
	return &schema.TypeMap{
		Forward: map[schema.AbstractType]schema.TypeDefinition{
			schema.Primary:     {Type: "int", AutoIncrement: true},
			schema.BigPrimary:  {Type: "bigint", AutoIncrement: true},
			schema.Enum:        {Type: "enum"},
			schema.Boolean:     {Type: "tinyint", Size: 1},
			schema.Integer:     {Type: "int"},
			schema.TinyInteger: {Type: "tinyint"},
			schema.BigInteger:  {Type: "bigint"},
			schema.String:      {Type: "varchar", Size: 255},
			schema.Text:        {Type: "text"},
			schema.TinyText:    {Type: "tinytext"},
			schema.LongText:    {Type: "longtext"},
			schema.Double:      {Type: "double"},
			schema.Float:       {Type: "float"},
			schema.Decimal:     {Type: "decimal", Precision: 10},
			schema.Datetime:    {Type: "datetime"},
			schema.Date:        {Type: "date"},
			schema.Time:        {Type: "time"},
			schema.Timestamp:   {Type: "timestamp"},
			schema.Binary:      {Type: "blob"},
			schema.TinyBinary:  {Type: "tinyblob"},
			schema.LongBinary:  {Type: "longblob"},
			schema.JSON:        {Type: "json"},
		},
		Reverse: map[string][]schema.ReverseRule{
			"int":        {{Abstract: schema.Primary, AutoIncrement: true}, {Abstract: schema.Integer}},
			"integer":    {{Abstract: schema.Primary, AutoIncrement: true}, {Abstract: schema.Integer}},
			"mediumint":  {{Abstract: schema.Integer}},
			"smallint":   {{Abstract: schema.Integer}},
			"bigint":     {{Abstract: schema.BigPrimary, AutoIncrement: true}, {Abstract: schema.BigInteger}},
			"tinyint":    {{Abstract: schema.Boolean, Size: 1}, {Abstract: schema.TinyInteger}},
			"bit":        {{Abstract: schema.Boolean, Size: 1}, {Abstract: schema.Integer}},
			"enum":       {{Abstract: schema.Enum}},
			"varchar":    {{Abstract: schema.String}},
			"char":       {{Abstract: schema.String}},
			"text":       {{Abstract: schema.Text}},
			"mediumtext": {{Abstract: schema.Text}},
			"tinytext":   {{Abstract: schema.TinyText}},
			"longtext":   {{Abstract: schema.LongText}},
			"double":     {{Abstract: schema.Double}},
			"float":      {{Abstract: schema.Float}},
			"decimal":    {{Abstract: schema.Decimal}},
			"datetime":   {{Abstract: schema.Datetime}},
			"date":       {{Abstract: schema.Date}},
			"time":       {{Abstract: schema.Time}},
			"timestamp":  {{Abstract: schema.Timestamp}},
			"blob":       {{Abstract: schema.Binary}},
			"mediumblob": {{Abstract: schema.Binary}},
			"binary":     {{Abstract: schema.Binary}},
			"varbinary":  {{Abstract: schema.Binary}},
			"tinyblob":   {{Abstract: schema.TinyBinary}},
			"longblob":   {{Abstract: schema.LongBinary}},
			"json":       {{Abstract: schema.JSON}},
		},
		ForbiddenDefaults: []string{
			"text", "mediumtext", "tinytext", "longtext",
			"blob", "mediumblob", "tinyblob", "longblob", "json",
		},
		SizedTypes: []string{"varchar", "char", "binary", "varbinary", "bit"},
	}
}
