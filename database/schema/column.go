package schema

import (
	"slices"
	"strings"
)

// Column is one table column: an abstract type and its concrete rendering for the
// table's dialect.
type Column struct {
	state *State
	types *TypeMap

	name          string
	abstract      AbstractType
	typ           string
	size          int
	precision     int
	scale         int
	nullable      bool
	def           Default
	enumValues    []string
	autoIncrement bool
}

// NewColumn creates a detached nullable column with no type. Readers use it together
// with SetConcrete.
func NewColumn(name string, types *TypeMap) *Column {
	return &Column{name: name, types: types, nullable: true, abstract: Unknown}
}

func (c *Column) Name() string               { return c.name }
func (c *Column) AbstractType() AbstractType { return c.abstract }
func (c *Column) Type() string               { return c.typ }
func (c *Column) Size() int                  { return c.size }
func (c *Column) Precision() int             { return c.precision }
func (c *Column) Scale() int                 { return c.scale }
func (c *Column) IsNullable() bool           { return c.nullable }
func (c *Column) DefaultValue() Default      { return c.def }
func (c *Column) EnumValues() []string       { return slices.Clone(c.enumValues) }
func (c *Column) IsAutoIncrement() bool      { return c.autoIncrement }

// Table returns the owning table name, or "" for a detached column.
func (c *Column) Table() string {
	if c.state == nil {
		return ""
	}
	return c.state.name
}

// SetConcrete applies an introspected native type and resolves the abstract type through
// the reverse type table. Enum values, when present, make the column an enum.
func (c *Column) SetConcrete(desc TypeDescriptor, autoIncrement bool) *Column {
	c.typ = desc.Type
	c.size = desc.Size
	c.precision = desc.Precision
	c.scale = desc.Scale
	c.autoIncrement = autoIncrement
	c.enumValues = slices.Clone(desc.Values)

	if len(c.enumValues) > 0 {
		c.abstract = Enum
	} else {
		c.abstract = c.types.Abstract(desc.Type, desc.Size, autoIncrement)
	}
	c.def = c.normalizeDefault(c.def)
	return c
}

// SetType switches the column to an abstract type using the dialect's forward table.
func (c *Column) SetType(t AbstractType) *Column {
	def, ok := c.types.Definition(t)
	if !ok {
		def = TypeDefinition{Type: string(t)}
	}
	c.abstract = t
	c.typ = def.Type
	c.size = def.Size
	c.precision = def.Precision
	c.scale = def.Scale
	c.autoIncrement = def.AutoIncrement
	c.enumValues = nil

	if t == Primary || t == BigPrimary {
		c.nullable = false
		c.def = Default{}
		if c.state != nil && !slices.Contains(c.state.primaryKeys, c.name) {
			c.state.primaryKeys = append(c.state.primaryKeys, c.name)
		}
	}
	c.def = c.normalizeDefault(c.def)
	return c
}

func (c *Column) Primary() *Column     { return c.SetType(Primary) }
func (c *Column) BigPrimary() *Column  { return c.SetType(BigPrimary) }
func (c *Column) Boolean() *Column     { return c.SetType(Boolean) }
func (c *Column) Integer() *Column     { return c.SetType(Integer) }
func (c *Column) TinyInteger() *Column { return c.SetType(TinyInteger) }
func (c *Column) BigInteger() *Column  { return c.SetType(BigInteger) }
func (c *Column) Text() *Column        { return c.SetType(Text) }
func (c *Column) TinyText() *Column    { return c.SetType(TinyText) }
func (c *Column) LongText() *Column    { return c.SetType(LongText) }
func (c *Column) Double() *Column      { return c.SetType(Double) }
func (c *Column) Float() *Column       { return c.SetType(Float) }
func (c *Column) Datetime() *Column    { return c.SetType(Datetime) }
func (c *Column) Date() *Column        { return c.SetType(Date) }
func (c *Column) Time() *Column        { return c.SetType(Time) }
func (c *Column) Timestamp() *Column   { return c.SetType(Timestamp) }
func (c *Column) Binary() *Column      { return c.SetType(Binary) }
func (c *Column) TinyBinary() *Column  { return c.SetType(TinyBinary) }
func (c *Column) LongBinary() *Column  { return c.SetType(LongBinary) }
func (c *Column) JSON() *Column        { return c.SetType(JSON) }

// String makes the column a string of size characters; size <= 0 keeps the dialect
// default.
func (c *Column) String(size int) *Column {
	c.SetType(String)
	if size > 0 {
		c.size = size
	}
	return c
}

// Decimal makes the column a fixed point number.
func (c *Column) Decimal(precision, scale int) *Column {
	c.SetType(Decimal)
	c.precision, c.scale = precision, scale
	return c
}

// Enum restricts the column to values. Dialects without a native enum type store it as a
// string sized to the longest value.
func (c *Column) Enum(values ...string) *Column {
	c.SetType(Enum)
	c.enumValues = slices.Clone(values)
	if !strings.EqualFold(c.typ, "enum") {
		size := 0
		for _, v := range values {
			size = max(size, len(v))
		}
		c.size = size
	}
	return c
}

// Nullable sets whether NULL is accepted.
func (c *Column) Nullable(nullable bool) *Column {
	c.nullable = nullable
	return c
}

// Default sets the default value. Types that forbid defaults keep a null default and
// zero-date temporal defaults are replaced by EpochDateTime.
func (c *Column) Default(d Default) *Column {
	c.def = c.normalizeDefault(d)
	return c
}

func (c *Column) normalizeDefault(d Default) Default {
	if c.typ != "" && c.types != nil && c.types.ForbidsDefault(c.typ) {
		return Default{}
	}
	if d.kind == DefaultString && c.abstract.isTemporal() && isZeroDate(d.s) {
		return StringDefault(EpochDateTime)
	}
	return d
}

// Equal reports whether c and o render to the same column definition.
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || !strings.EqualFold(c.typ, o.typ) {
		return false
	}
	if c.abstract != o.abstract && (c.types == nil || !c.types.sameDefinition(c.abstract, o.abstract)) {
		return false
	}
	if c.types != nil && c.types.Sized(c.typ) && c.size != o.size {
		return false
	}
	if c.precision != o.precision || c.scale != o.scale {
		return false
	}
	if c.nullable != o.nullable || c.autoIncrement != o.autoIncrement {
		return false
	}
	if !slices.Equal(c.enumValues, o.enumValues) {
		return false
	}
	if c.types != nil && c.types.ForbidsDefault(c.typ) {
		return true
	}
	return c.def.Equal(o.def)
}

func (c *Column) clone(state *State) *Column {
	cp := *c
	cp.state = state
	cp.enumValues = slices.Clone(c.enumValues)
	return &cp
}
