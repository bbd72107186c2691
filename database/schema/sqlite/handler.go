// Package sqlite reads SQLite catalogs through sqlite_master and the table pragmas and
// renders schema operations as SQLite DDL.
//
// SQLite cannot alter columns or foreign keys in place. By default such operations fail
// with types.ErrNotSupported; a handler created WithTableRebuild replaces them with a
// copy through a temporary table.
package sqlite

import (
	"strings"

	"github.com/google/uuid"

	"github.com/spiral-modules/dbal/database/dialect"
	"github.com/spiral-modules/dbal/database/schema"
	"github.com/spiral-modules/dbal/database/types"
)

// Option configures a Handler.
type Option func(*Handler)

// WithTableRebuild enables rebuilding tables for alterations SQLite cannot run in place.
func WithTableRebuild() Option {
	return func(h *Handler) { h.rebuild = true }
}

// Handler is the SQLite schema.Handler.
type Handler struct {
	q        schema.Quoter
	types    *schema.TypeMap
	rebuild  bool
	tempName func(table string) string
}

var (
	_ schema.Handler = (*Handler)(nil)
	_ schema.Planner = (*Handler)(nil)
)

// New creates a handler quoting through d.
func New(d dialect.Dialect, opts ...Option) *Handler {
	h := &Handler{q: d, types: Types(), tempName: temporaryName}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func temporaryName(table string) string {
	return table + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (h *Handler) Dialect() types.Dialect { return types.SQLite }

func (h *Handler) Types() *schema.TypeMap { return h.types }

// Types returns the SQLite type table. SQLite has one integer and one text storage
// class, so bigPrimary reads back as primary and the text family as text. Enums are
// varchar columns with a CHECK constraint; text and blob columns carry no default.
func Types() *schema.TypeMap {
	return &schema.TypeMap{
		Forward: map[schema.AbstractType]schema.TypeDefinition{
			schema.Primary:     {Type: "integer", AutoIncrement: true},
			schema.BigPrimary:  {Type: "integer", AutoIncrement: true},
			schema.Enum:        {Type: "varchar"},
			schema.Boolean:     {Type: "boolean"},
			schema.Integer:     {Type: "integer"},
			schema.TinyInteger: {Type: "tinyint"},
			schema.BigInteger:  {Type: "bigint"},
			schema.String:      {Type: "varchar", Size: 255},
			schema.Text:        {Type: "text"},
			schema.TinyText:    {Type: "text"},
			schema.LongText:    {Type: "text"},
			schema.Double:      {Type: "double"},
			schema.Float:       {Type: "real"},
			schema.Decimal:     {Type: "numeric", Precision: 10},
			schema.Datetime:    {Type: "datetime"},
			schema.Date:        {Type: "date"},
			schema.Time:        {Type: "time"},
			schema.Timestamp:   {Type: "timestamp"},
			schema.Binary:      {Type: "blob"},
			schema.TinyBinary:  {Type: "blob"},
			schema.LongBinary:  {Type: "blob"},
			schema.JSON:        {Type: "text"},
		},
		Reverse: map[string][]schema.ReverseRule{
			"integer":   {{Abstract: schema.Primary, AutoIncrement: true}, {Abstract: schema.Integer}},
			"int":       {{Abstract: schema.Integer}},
			"boolean":   {{Abstract: schema.Boolean}},
			"tinyint":   {{Abstract: schema.TinyInteger}},
			"bigint":    {{Abstract: schema.BigInteger}},
			"varchar":   {{Abstract: schema.String}},
			"char":      {{Abstract: schema.String}},
			"text":      {{Abstract: schema.Text}},
			"double":    {{Abstract: schema.Double}},
			"real":      {{Abstract: schema.Float}},
			"float":     {{Abstract: schema.Float}},
			"numeric":   {{Abstract: schema.Decimal}},
			"decimal":   {{Abstract: schema.Decimal}},
			"datetime":  {{Abstract: schema.Datetime}},
			"date":      {{Abstract: schema.Date}},
			"time":      {{Abstract: schema.Time}},
			"timestamp": {{Abstract: schema.Timestamp}},
			"blob":      {{Abstract: schema.Binary}},
		},
		ForbiddenDefaults: []string{"text", "blob"},
		SizedTypes:        []string{"varchar", "char"},
	}
}
