package schema

import "slices"

// State is one snapshot of a table: its columns, indexes, foreign keys and primary key in
// declaration order. Names are unique within each collection.
type State struct {
	name        string
	columns     []*Column
	indexes     []*Index
	references  []*Reference
	primaryKeys []string
}

// NewState creates an empty snapshot for table name.
func NewState(name string) *State {
	return &State{name: name}
}

func (s *State) Name() string { return s.name }

func (s *State) Columns() []*Column       { return slices.Clone(s.columns) }
func (s *State) Indexes() []*Index        { return slices.Clone(s.indexes) }
func (s *State) References() []*Reference { return slices.Clone(s.references) }
func (s *State) PrimaryKeys() []string    { return slices.Clone(s.primaryKeys) }

// Column returns the column called name, or nil.
func (s *State) Column(name string) *Column {
	for _, c := range s.columns {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Index returns the index called name, or nil.
func (s *State) Index(name string) *Index {
	for _, i := range s.indexes {
		if i.name == name {
			return i
		}
	}
	return nil
}

// Reference returns the foreign key called name, or nil.
func (s *State) Reference(name string) *Reference {
	for _, r := range s.references {
		if r.name == name {
			return r
		}
	}
	return nil
}

// RegisterColumn adds c, replacing a column with the same name in place.
func (s *State) RegisterColumn(c *Column) *Column {
	c.state = s
	for i, existing := range s.columns {
		if existing.name == c.name {
			s.columns[i] = c
			return c
		}
	}
	s.columns = append(s.columns, c)
	return c
}

// RegisterIndex adds idx, replacing an index with the same name in place.
func (s *State) RegisterIndex(idx *Index) *Index {
	idx.table = s.name
	for i, existing := range s.indexes {
		if existing.name == idx.name {
			s.indexes[i] = idx
			return idx
		}
	}
	s.indexes = append(s.indexes, idx)
	return idx
}

// RegisterReference adds ref, replacing a foreign key with the same name in place.
func (s *State) RegisterReference(ref *Reference) *Reference {
	ref.table = s.name
	for i, existing := range s.references {
		if existing.name == ref.name {
			s.references[i] = ref
			return ref
		}
	}
	s.references = append(s.references, ref)
	return ref
}

// SetPrimaryKeys replaces the primary key columns.
func (s *State) SetPrimaryKeys(columns ...string) {
	s.primaryKeys = slices.Clone(columns)
}

func (s *State) findIndex(columns []string) *Index {
	for _, i := range s.indexes {
		if slices.Equal(i.columns, columns) {
			return i
		}
	}
	return nil
}

func (s *State) findReference(column string) *Reference {
	for _, r := range s.references {
		if r.column == column {
			return r
		}
	}
	return nil
}

func (s *State) removeColumn(name string) {
	s.columns = slices.DeleteFunc(s.columns, func(c *Column) bool { return c.name == name })
	s.primaryKeys = slices.DeleteFunc(s.primaryKeys, func(c string) bool { return c == name })
}

func (s *State) removeIndex(name string) {
	s.indexes = slices.DeleteFunc(s.indexes, func(i *Index) bool { return i.name == name })
}

func (s *State) removeReference(name string) {
	s.references = slices.DeleteFunc(s.references, func(r *Reference) bool { return r.name == name })
}

// Renamed returns a deep copy describing table name.
func (s *State) Renamed(name string) *State {
	cp := s.Clone()
	cp.name = name
	return cp
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	cp := &State{name: s.name, primaryKeys: slices.Clone(s.primaryKeys)}
	for _, c := range s.columns {
		cp.columns = append(cp.columns, c.clone(cp))
	}
	for _, i := range s.indexes {
		cp.indexes = append(cp.indexes, i.clone())
	}
	for _, r := range s.references {
		cp.references = append(cp.references, r.clone())
	}
	return cp
}
