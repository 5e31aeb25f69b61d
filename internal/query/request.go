package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Field string `json:"field"`
	Asc   bool   `json:"asc"`
}

// QueryRequest describes a SELECT over one or more tables.
type QueryRequest struct {
	Tables     []string  `json:"tables"`
	Columns    []string  `json:"columns,omitempty"`
	Conditions *Group    `json:"conditions,omitempty"`
	OrderBy    []OrderBy `json:"orderBy,omitempty"`
	// Limit caps the number of rows; zero means unbounded.
	Limit int `json:"limit,omitempty"`
	// ForUpdate locks the selected rows until the transaction ends. Stores
	// without row locks clear it before building.
	ForUpdate bool `json:"-"`
}

// InsertRequest inserts one row.
type InsertRequest struct {
	Table  string         `json:"table"`
	Values map[string]any `json:"values"`
}

// UpdateRequest updates the rows of Table matching Conditions.
type UpdateRequest struct {
	Table      string         `json:"table"`
	Values     map[string]any `json:"values"`
	Conditions *Group         `json:"conditions,omitempty"`
}

// Statement is rendered SQL text plus its bound arguments.
type Statement struct {
	Text string
	Args []any
}

// Build renders q as a SELECT statement.
func (q QueryRequest) Build() (Statement, error) {
	if len(q.Tables) == 0 {
		return Statement{}, fmt.Errorf("%w: tables must not be empty", ErrMalformed)
	}
	if q.Limit < 0 {
		return Statement{}, fmt.Errorf("%w: limit must not be negative, got %d", ErrMalformed, q.Limit)
	}
	if err := checkIdentifiers(q.Tables); err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteByte('*')
	} else {
		if err := checkIdentifiers(q.Columns); err != nil {
			return Statement{}, err
		}
		sb.WriteString(strings.Join(q.Columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(strings.Join(q.Tables, ", "))

	var args []any
	if q.Conditions != nil {
		where, whereArgs, err := Compile(*q.Conditions)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = whereArgs
	}

	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if err := checkIdentifier(o.Field); err != nil {
				return Statement{}, err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.Field)
			if o.Asc {
				sb.WriteString(" ASC")
			} else {
				sb.WriteString(" DESC")
			}
		}
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}
	if q.ForUpdate {
		sb.WriteString(" FOR UPDATE")
	}

	return Statement{Text: sb.String(), Args: args}, nil
}

// Build renders r as an INSERT statement. Columns are sorted so the text is
// stable for a given set of fields.
func (r InsertRequest) Build() (Statement, error) {
	if err := checkIdentifier(r.Table); err != nil {
		return Statement{}, err
	}
	fields, args, err := sortedValues(r.Values)
	if err != nil {
		return Statement{}, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.Table, strings.Join(fields, ", "), placeholders)
	return Statement{Text: text, Args: args}, nil
}

// Build renders r as an UPDATE statement. Without conditions every row of the
// table is updated.
func (r UpdateRequest) Build() (Statement, error) {
	if err := checkIdentifier(r.Table); err != nil {
		return Statement{}, err
	}
	fields, args, err := sortedValues(r.Values)
	if err != nil {
		return Statement{}, err
	}

	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = f + " = ?"
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(r.Table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))

	if r.Conditions != nil {
		where, whereArgs, err := Compile(*r.Conditions)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = append(args, whereArgs...)
	}

	return Statement{Text: sb.String(), Args: args}, nil
}

func sortedValues(values map[string]any) ([]string, []any, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: values must not be empty", ErrMalformed)
	}
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	args := make([]any, len(fields))
	for i, f := range fields {
		if err := checkIdentifier(f); err != nil {
			return nil, nil, err
		}
		if _, err := KindOf(values[f]); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f, err)
		}
		args[i] = values[f]
	}
	return fields, args, nil
}

func checkIdentifiers(names []string) error {
	for _, n := range names {
		if err := checkIdentifier(n); err != nil {
			return err
		}
	}
	return nil
}
