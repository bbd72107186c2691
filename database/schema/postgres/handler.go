// Package postgres reads PostgreSQL catalogs through information_schema and pg_catalog
// and renders schema operations as PostgreSQL DDL.
package postgres

import (
	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// Handler is the PostgreSQL schema.Handler.
type Handler struct {
	q     schema.Quoter
	types *schema.TypeMap
}

var _ schema.Handler = (*Handler)(nil)

// New creates a handler quoting through d.
func New(d dialect.Dialect) *Handler {
	return &Handler{q: d, types: Types()}
}

func (h *Handler) Dialect() types.Dialect { return types.Postgres }

func (h *Handler) Types() *schema.TypeMap { return h.types }

// Types returns the PostgreSQL type table. Auto incremented integers are rendered as
// serial and bigserial and read back from their nextval() defaults.
func Types() *schema.TypeMap {
	return &schema.TypeMap{
		Forward: map[schema.AbstractType]schema.TypeDefinition{
			schema.Primary:     {Type: "integer", AutoIncrement: true},
			schema.BigPrimary:  {Type: "bigint", AutoIncrement: true},
			schema.Enum:        {Type: "character varying"},
			schema.Boolean:     {Type: "boolean"},
			schema.Integer:     {Type: "integer"},
			schema.TinyInteger: {Type: "smallint"},
			schema.BigInteger:  {Type: "bigint"},
			schema.String:      {Type: "character varying", Size: 255},
			schema.Text:        {Type: "text"},
			schema.TinyText:    {Type: "text"},
			schema.LongText:    {Type: "text"},
			schema.Double:      {Type: "double precision"},
			schema.Float:       {Type: "real"},
			schema.Decimal:     {Type: "numeric", Precision: 10},
			schema.Datetime:    {Type: "timestamp without time zone"},
			schema.Date:        {Type: "date"},
			schema.Time:        {Type: "time without time zone"},
			schema.Timestamp:   {Type: "timestamp with time zone"},
			schema.Binary:      {Type: "bytea"},
			schema.TinyBinary:  {Type: "bytea"},
			schema.LongBinary:  {Type: "bytea"},
			schema.JSON:        {Type: "jsonb"},
		},
		Reverse: map[string][]schema.ReverseRule{
			"integer":                     {{Abstract: schema.Primary, AutoIncrement: true}, {Abstract: schema.Integer}},
			"bigint":                      {{Abstract: schema.BigPrimary, AutoIncrement: true}, {Abstract: schema.BigInteger}},
			"smallint":                    {{Abstract: schema.TinyInteger}},
			"boolean":                     {{Abstract: schema.Boolean}},
			"character varying":           {{Abstract: schema.String}},
			"character":                   {{Abstract: schema.String}},
			"text":                        {{Abstract: schema.Text}},
			"double precision":            {{Abstract: schema.Double}},
			"real":                        {{Abstract: schema.Float}},
			"numeric":                     {{Abstract: schema.Decimal}},
			"timestamp without time zone": {{Abstract: schema.Datetime}},
			"timestamp with time zone":    {{Abstract: schema.Timestamp}},
			"date":                        {{Abstract: schema.Date}},
			"time without time zone":      {{Abstract: schema.Time}},
			"bytea":                       {{Abstract: schema.Binary}},
			"json":                        {{Abstract: schema.JSON}},
			"jsonb":                       {{Abstract: schema.JSON}},
		},
		SizedTypes: []string{"character varying", "character"},
	}
}
