package schema

import "slices"

// Column is one attribute of a table.
type Column struct {
	Name    string `json:"name"`
	NotNull bool   `json:"not_null,omitempty"`
}

// ForeignKey states that Columns of the owning table reference RefColumns
// of RefTable.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns"`
}

// Table describes one relation.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	Unique      [][]string   `json:"unique,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Schema is an ordered set of tables.
type Schema struct {
	Tables []Table `json:"tables"`

	byName map[string]int
}

// New returns a schema over tables, in order. Later tables with a
// duplicate name shadow earlier ones for lookup; Validate reports them.
func New(tables ...Table) *Schema {
	s := &Schema{Tables: slices.Clone(tables), byName: make(map[string]int, len(tables))}
	for i, t := range s.Tables {
		s.byName[t.Name] = i
	}
	return s
}

// Empty returns a schema without tables.
func Empty() *Schema {
	return New()
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.Tables[i], true
}

// ReferencesTo returns every foreign key, with its owning table, that
// references table name.
func (s *Schema) ReferencesTo(name string) []Reference {
	if s == nil {
		return nil
	}
	var out []Reference
	for i := range s.Tables {
		for _, fk := range s.Tables[i].ForeignKeys {
			if fk.RefTable == name {
				out = append(out, Reference{From: &s.Tables[i], Key: fk})
			}
		}
	}
	return out
}

// Reference is a foreign key together with the table declaring it.
type Reference struct {
	From *Table
	Key  ForeignKey
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// UniqueKeys returns the primary key (if any) followed by the unique
// constraints.
func (t *Table) UniqueKeys() [][]string {
	var out [][]string
	if len(t.PrimaryKey) > 0 {
		out = append(out, t.PrimaryKey)
	}
	return append(out, t.Unique...)
}

// HasKey reports whether t declares any unique key.
func (t *Table) HasKey() bool {
	return len(t.PrimaryKey) > 0 || len(t.Unique) > 0
}

// IsUnique reports whether cols contains some unique key of t.
func (t *Table) IsUnique(cols []string) bool {
	for _, k := range t.UniqueKeys() {
		if isSubset(k, cols) {
			return true
		}
	}
	return false
}

// IsNotNull reports whether col can never hold NULL: it is declared
// not_null or belongs to the primary key.
func (t *Table) IsNotNull(col string) bool {
	if slices.Contains(t.PrimaryKey, col) {
		return true
	}
	c, ok := t.Column(col)
	return ok && c.NotNull
}

func isSubset(sub, of []string) bool {
	for _, s := range sub {
		if !slices.Contains(of, s) {
			return false
		}
	}
	return true
}
