// Package schema holds the abstract table model shared by every dialect: columns with an
// abstract type taxonomy, indexes, foreign keys and primary keys. It compares an
// introspected table state with a desired one and applies the difference as DDL through
// a dialect Handler.
package schema

import (
	"fmt"
	"slices"
	"strings"
)

// AbstractType is the dialect neutral column type.
type AbstractType string

const (
	Primary     AbstractType = "primary"
	BigPrimary  AbstractType = "bigPrimary"
	Boolean     AbstractType = "boolean"
	Integer     AbstractType = "integer"
	TinyInteger AbstractType = "tinyInteger"
	BigInteger  AbstractType = "bigInteger"
	String      AbstractType = "string"
	Text        AbstractType = "text"
	TinyText    AbstractType = "tinyText"
	LongText    AbstractType = "longText"
	Double      AbstractType = "double"
	Float       AbstractType = "float"
	Decimal     AbstractType = "decimal"
	Datetime    AbstractType = "datetime"
	Date        AbstractType = "date"
	Time        AbstractType = "time"
	Timestamp   AbstractType = "timestamp"
	Binary      AbstractType = "binary"
	TinyBinary  AbstractType = "tinyBinary"
	LongBinary  AbstractType = "longBinary"
	Enum        AbstractType = "enum"
	JSON        AbstractType = "json"

	// Unknown is reported for concrete types no reverse rule matches.
	Unknown AbstractType = "unknown"
)

// AbstractTypes returns the closed taxonomy in declaration order.
func AbstractTypes() []AbstractType {
	return []AbstractType{
		Primary, BigPrimary, Boolean, Integer, TinyInteger, BigInteger,
		String, Text, TinyText, LongText, Double, Float, Decimal,
		Datetime, Date, Time, Timestamp, Binary, TinyBinary, LongBinary, Enum, JSON,
	}
}

// ParseAbstractType resolves a type name case-insensitively.
func ParseAbstractType(name string) (AbstractType, error) {
	for _, t := range AbstractTypes() {
		if strings.EqualFold(string(t), name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown abstract type %q", name)
}

func (t AbstractType) isInteger() bool {
	switch t {
	case Primary, BigPrimary, Integer, TinyInteger, BigInteger:
		return true
	}
	return false
}

func (t AbstractType) isFloat() bool {
	return t == Double || t == Float || t == Decimal
}

func (t AbstractType) isTemporal() bool {
	return t == Datetime || t == Timestamp
}

// TypeDefinition is the concrete rendering of an abstract type.
type TypeDefinition struct {
	Type          string
	Size          int
	Precision     int
	Scale         int
	AutoIncrement bool
}

// ReverseRule maps a concrete type back to an abstract one. Rules for the same concrete
// type are tried in order; the first that matches wins.
type ReverseRule struct {
	Abstract AbstractType
	// Size restricts the rule to one size; zero matches any.
	Size int
	// AutoIncrement restricts the rule to auto incremented columns.
	AutoIncrement bool
}

// TypeMap is a dialect's forward (abstract → concrete) and reverse (concrete → abstract)
// type table.
type TypeMap struct {
	Forward map[AbstractType]TypeDefinition
	Reverse map[string][]ReverseRule
	// ForbiddenDefaults lists concrete types that cannot carry a DEFAULT clause.
	ForbiddenDefaults []string
	// SizedTypes lists concrete types whose size is significant when comparing columns.
	SizedTypes []string
}

// Definition returns the forward mapping of t.
func (m *TypeMap) Definition(t AbstractType) (TypeDefinition, bool) {
	def, ok := m.Forward[t]
	return def, ok
}

// Abstract resolves a concrete type into the abstract taxonomy.
func (m *TypeMap) Abstract(concrete string, size int, autoIncrement bool) AbstractType {
	for _, rule := range m.Reverse[strings.ToLower(concrete)] {
		if rule.Size != 0 && rule.Size != size {
			continue
		}
		if rule.AutoIncrement && !autoIncrement {
			continue
		}
		return rule.Abstract
	}
	return Unknown
}

// ForbidsDefault reports whether concrete cannot carry a default value.
func (m *TypeMap) ForbidsDefault(concrete string) bool {
	return slices.Contains(m.ForbiddenDefaults, strings.ToLower(concrete))
}

// Sized reports whether the size of concrete takes part in column comparison.
func (m *TypeMap) Sized(concrete string) bool {
	return slices.Contains(m.SizedTypes, strings.ToLower(concrete))
}

// sameDefinition reports whether a and b render to the same concrete type, as bigPrimary
// and primary do on engines with a single integer type.
func (m *TypeMap) sameDefinition(a, b AbstractType) bool {
	da, okA := m.Forward[a]
	db, okB := m.Forward[b]
	return okA && okB && strings.EqualFold(da.Type, db.Type) &&
		da.Size == db.Size && da.AutoIncrement == db.AutoIncrement
}
