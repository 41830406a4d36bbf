package schema

import (
	"fmt"
	"slices"
)

// Validation error codes (E200-E299)
const (
	ErrNoColumns        = "E201" // table declares no columns
	ErrDuplicateColumn  = "E202" // column declared twice
	ErrUnknownKeyColumn = "E203" // key names a column the table lacks
	ErrUnknownRefTable  = "E204" // foreign key references a missing table
	ErrRefArity         = "E205" // foreign key column counts differ
	ErrRefNotUnique     = "E206" // referenced columns are not a unique key
	ErrDuplicateTable   = "E207" // table declared twice
	ErrEmptyKey         = "E208" // key with no columns
	ErrUnknownRefColumn = "E209" // foreign key references a missing column
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks s for internal consistency. All problems are reported.
func Validate(s *Schema) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   "table." + t.Name,
				Message: "table declared more than once",
				Code:    ErrDuplicateTable,
			})
		}
		seen[t.Name] = true
		errs = append(errs, validateTable(s, t)...)
	}
	return errs
}

func validateTable(s *Schema, t *Table) []ValidationError {
	var errs []ValidationError
	field := "table." + t.Name

	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{Field: field + ".columns", Message: "at least one column is required", Code: ErrNoColumns})
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".columns",
				Message: fmt.Sprintf("duplicate column %q", c.Name),
				Code:    ErrDuplicateColumn,
			})
		}
		cols[c.Name] = true
	}

	checkKey := func(kind string, key []string) {
		if len(key) == 0 {
			errs = append(errs, ValidationError{Field: field + "." + kind, Message: "key has no columns", Code: ErrEmptyKey})
			return
		}
		for _, k := range key {
			if !cols[k] {
				errs = append(errs, ValidationError{
					Field:   field + "." + kind,
					Message: fmt.Sprintf("unknown column %q", k),
					Code:    ErrUnknownKeyColumn,
				})
			}
		}
	}
	if t.PrimaryKey != nil {
		checkKey("primary_key", t.PrimaryKey)
	}
	for _, u := range t.Unique {
		checkKey("unique", u)
	}

	for _, fk := range t.ForeignKeys {
		checkKey("foreign_keys", fk.Columns)
		errs = append(errs, validateReference(s, field, fk)...)
	}
	return errs
}

func validateReference(s *Schema, field string, fk ForeignKey) []ValidationError {
	field += ".foreign_keys"
	ref, ok := s.Table(fk.RefTable)
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("unknown table %q", fk.RefTable),
			Code:    ErrUnknownRefTable,
		}}
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%d columns reference %d columns", len(fk.Columns), len(fk.RefColumns)),
			Code:    ErrRefArity,
		}}
	}
	var errs []ValidationError
	for _, c := range fk.RefColumns {
		if !slices.Contains(ref.ColumnNames(), c) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("table %s has no column %q", ref.Name, c),
				Code:    ErrUnknownRefColumn,
			})
		}
	}
	if len(errs) == 0 && !ref.IsUnique(fk.RefColumns) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("columns %v of %s are not a unique key", fk.RefColumns, ref.Name),
			Code:    ErrRefNotUnique,
		})
	}
	return errs
}
