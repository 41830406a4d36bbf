package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a malformed schema value.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile converts a CUE value holding a "table" struct into a Schema.
// A value without tables compiles to an empty schema.
//
//	ctx := cuecontext.New()
//	s, err := Compile(ctx.CompileString(`table: R: columns: [{name: "a"}]`))
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return Empty(), nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tables []Table
	for iter.Next() {
		t, err := compileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return New(tables...), nil
}

func compileTable(name string, v cue.Value) (Table, error) {
	t := Table{Name: name}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return t, &CompileError{
			Field:   "table." + name + ".columns",
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := colsVal.List()
	if err != nil {
		return t, formatCUEError(err)
	}
	for iter.Next() {
		col, err := compileColumn(name, iter.Value())
		if err != nil {
			return t, err
		}
		t.Columns = append(t.Columns, col)
	}

	if t.PrimaryKey, err = stringList(v, "primary_key"); err != nil {
		return t, err
	}

	uniqueVal := v.LookupPath(cue.ParsePath("unique"))
	if uniqueVal.Exists() {
		ui, err := uniqueVal.List()
		if err != nil {
			return t, formatCUEError(err)
		}
		for ui.Next() {
			var key []string
			if err := ui.Value().Decode(&key); err != nil {
				return t, formatCUEError(err)
			}
			t.Unique = append(t.Unique, key)
		}
	}

	fkVal := v.LookupPath(cue.ParsePath("foreign_keys"))
	if fkVal.Exists() {
		fi, err := fkVal.List()
		if err != nil {
			return t, formatCUEError(err)
		}
		for fi.Next() {
			fk, err := compileForeignKey(name, fi.Value())
			if err != nil {
				return t, err
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}

	return t, nil
}

func compileColumn(table string, v cue.Value) (Column, error) {
	// Bare strings are accepted as nullable columns.
	if s, err := v.String(); err == nil {
		return Column{Name: s}, nil
	}

	var col Column
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return col, &CompileError{
			Field:   "table." + table + ".columns",
			Message: "column name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return col, formatCUEError(err)
	}
	col.Name = name

	if nn := v.LookupPath(cue.ParsePath("not_null")); nn.Exists() {
		b, err := nn.Bool()
		if err != nil {
			return col, formatCUEError(err)
		}
		col.NotNull = b
	}
	return col, nil
}

func compileForeignKey(table string, v cue.Value) (ForeignKey, error) {
	var fk ForeignKey
	var err error
	if fk.Columns, err = stringList(v, "columns"); err != nil {
		return fk, err
	}
	ref := v.LookupPath(cue.ParsePath("references"))
	if !ref.Exists() {
		return fk, &CompileError{
			Field:   "table." + table + ".foreign_keys",
			Message: "references is required",
			Pos:     v.Pos(),
		}
	}
	refTable := ref.LookupPath(cue.ParsePath("table"))
	if fk.RefTable, err = refTable.String(); err != nil {
		return fk, &CompileError{
			Field:   "table." + table + ".foreign_keys.references.table",
			Message: "referenced table name is required",
			Pos:     ref.Pos(),
		}
	}
	if fk.RefColumns, err = stringList(ref, "columns"); err != nil {
		return fk, err
	}
	return fk, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	var out []string
	if err := lv.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
