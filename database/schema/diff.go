package schema

import (
	"fmt"
	"slices"

	"github.com/spiral-modules/dbal/database/types"
)

// OperationKind identifies one DDL step.
type OperationKind int

const (
	CreateTable OperationKind = iota
	DropTable
	AddColumn
	AlterColumn
	DropColumn
	AddIndex
	AlterIndex
	DropIndex
	AddForeignKey
	DropForeignKey
	// RebuildTable recreates the table from Initial into State, copying shared columns.
	RebuildTable
)

var operationNames = map[OperationKind]string{
	CreateTable:    "create table",
	DropTable:      "drop table",
	AddColumn:      "add column",
	AlterColumn:    "alter column",
	DropColumn:     "drop column",
	AddIndex:       "add index",
	AlterIndex:     "alter index",
	DropIndex:      "drop index",
	AddForeignKey:  "add foreign key",
	DropForeignKey: "drop foreign key",
	RebuildTable:   "rebuild table",
}

func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// Operation is one step of a schema diff. Only the fields relevant to Kind are set: the
// desired element in Column/Index/Reference, the introspected one in Initial* for
// alterations and drops, and whole snapshots for table level operations.
type Operation struct {
	Kind  OperationKind
	Table string

	Column        *Column
	InitialColumn *Column

	Index        *Index
	InitialIndex *Index

	Reference        *Reference
	InitialReference *Reference

	State   *State
	Initial *State
}

// Subject names the element the operation applies to.
func (op Operation) Subject() string {
	switch {
	case op.Column != nil:
		return op.Column.name
	case op.InitialColumn != nil:
		return op.InitialColumn.name
	case op.Index != nil:
		return op.Index.name
	case op.InitialIndex != nil:
		return op.InitialIndex.name
	case op.Reference != nil:
		return op.Reference.name
	case op.InitialReference != nil:
		return op.InitialReference.name
	}
	return ""
}

// String reads like "alter column users.email" or "create table users".
func (op Operation) String() string {
	if subject := op.Subject(); subject != "" {
		return fmt.Sprintf("%s %s.%s", op.Kind, op.Table, subject)
	}
	return fmt.Sprintf("%s %s", op.Kind, op.Table)
}

// Compare returns the operations turning initial into current. A nil initial means the
// table does not exist: the result is one CreateTable carrying every column, the primary
// key and the foreign keys, followed by one AddIndex per index.
//
// For an existing table operations are ordered foreign key drops, column drops, column
// alterations, column additions, index drops, alterations and additions, then foreign key
// creation. Indexes covering a dropped column are dropped ahead of the column. Changing
// the primary key of an existing table is not supported.
func Compare(initial, current *State) ([]Operation, error) {
	table := current.name
	if initial == nil {
		ops := []Operation{{Kind: CreateTable, Table: table, State: current}}
		for _, idx := range current.indexes {
			ops = append(ops, Operation{Kind: AddIndex, Table: table, Index: idx})
		}
		return ops, nil
	}

	if !slices.Equal(initial.primaryKeys, current.primaryKeys) {
		return nil, &types.SchemaError{
			Table:     table,
			Operation: "alter primary key " + table,
			Err:       types.ErrNotSupported,
		}
	}

	var ops []Operation

	for _, before := range initial.references {
		after := current.Reference(before.name)
		if after == nil || !after.Equal(before) {
			ops = append(ops, Operation{Kind: DropForeignKey, Table: table, InitialReference: before})
		}
	}

	// Indexes over dropped columns go before the columns: engines either refuse to drop an
	// indexed column or drop the index implicitly.
	var dropped []string
	for _, before := range initial.columns {
		if current.Column(before.name) == nil {
			dropped = append(dropped, before.name)
		}
	}
	covers := func(idx *Index) bool {
		return slices.ContainsFunc(idx.columns, func(c string) bool { return slices.Contains(dropped, c) })
	}
	for _, before := range initial.indexes {
		if current.Index(before.name) == nil && covers(before) {
			ops = append(ops, Operation{Kind: DropIndex, Table: table, InitialIndex: before})
		}
	}
	for _, name := range dropped {
		ops = append(ops, Operation{Kind: DropColumn, Table: table, InitialColumn: initial.Column(name)})
	}
	for _, after := range current.columns {
		before := initial.Column(after.name)
		if before != nil && !before.Equal(after) {
			ops = append(ops, Operation{Kind: AlterColumn, Table: table, Column: after, InitialColumn: before})
		}
	}
	for _, after := range current.columns {
		if initial.Column(after.name) == nil {
			ops = append(ops, Operation{Kind: AddColumn, Table: table, Column: after})
		}
	}

	for _, before := range initial.indexes {
		if current.Index(before.name) == nil && !covers(before) {
			ops = append(ops, Operation{Kind: DropIndex, Table: table, InitialIndex: before})
		}
	}
	for _, after := range current.indexes {
		before := initial.Index(after.name)
		if before != nil && !before.Equal(after) {
			ops = append(ops, Operation{Kind: AlterIndex, Table: table, Index: after, InitialIndex: before})
		}
	}
	for _, after := range current.indexes {
		if initial.Index(after.name) == nil {
			ops = append(ops, Operation{Kind: AddIndex, Table: table, Index: after})
		}
	}

	for _, after := range current.references {
		before := initial.Reference(after.name)
		if before == nil || !before.Equal(after) {
			ops = append(ops, Operation{Kind: AddForeignKey, Table: table, Reference: after})
		}
	}

	return ops, nil
}
