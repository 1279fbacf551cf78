package reconcile

import (
	"fmt"
	"strings"
	"time"

	"task-mirror/core/utils"
)

// Kind selects how a remote value is converted into its column value.
type Kind int

const (
	// Verbatim copies the remote value unchanged.
	Verbatim Kind = iota
	// Int converts JSON numbers and numeric strings to int64.
	Int
	// Bool converts booleans, numbers and "true"/"1" strings.
	Bool
	// String converts scalars to their string form.
	String
	// DateTime parses an ISO-8601 timestamp into a UTC time.Time.
	DateTime
	// Date parses a calendar date (YYYY-MM-DD) into a UTC midnight time.Time.
	Date
)

func (k Kind) String() string {
	switch k {
	case Verbatim:
		return "verbatim"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "string"
	case DateTime:
		return "datetime"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field pairs one remote record key with one local column.
type Field struct {
	// Remote is the key in the remote record. Defaults to Column.
	Remote string

	// Column is the local column name.
	Column string

	// Kind controls value conversion.
	Kind Kind

	// Nullable fields map absent or null values to nil instead of the
	// Kind's zero value.
	Nullable bool

	// Relation marks a foreign key. A relation field is also matched by
	// its name with the "_id" suffix toggled.
	Relation bool

	// Default replaces an absent or null value when set.
	Default any
}

// Schema is the mapping table of one entity type. Build it once with
// NewSchema and share it; it is read-only afterwards.
type Schema struct {
	table   string
	fields  []Field
	aliases [][]string
}

// NewSchema builds the mapping table for table.
//
// A remote key ending in "_id" is also matched by its unsuffixed name
// ("list_id" accepts "list"), and a Relation field without the suffix is
// also matched by "<name>_id". The declared key always wins over an alias.
func NewSchema(table string, fields ...Field) *Schema {
	s := &Schema{
		table:   table,
		fields:  make([]Field, len(fields)),
		aliases: make([][]string, len(fields)),
	}

	for i, f := range fields {
		if f.Remote == "" {
			f.Remote = f.Column
		}
		if f.Column == "" {
			f.Column = f.Remote
		}
		s.fields[i] = f

		keys := []string{f.Remote}
		switch {
		case strings.HasSuffix(f.Remote, "_id") && f.Remote != "_id":
			keys = append(keys, strings.TrimSuffix(f.Remote, "_id"))
		case f.Relation:
			keys = append(keys, f.Remote+"_id")
		}
		s.aliases[i] = keys
	}

	return s
}

// Table returns the local table name.
func (s *Schema) Table() string {
	return s.table
}

// Fields returns a copy of the declared fields.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Columns returns the local column names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.Column
	}
	return cols
}

// Map converts a remote record into column values. Every declared column is
// present in the result; remote keys without a field are ignored.
func (s *Schema) Map(rec Record) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))

	for i, f := range s.fields {
		raw, ok := lookup(rec, s.aliases[i])
		if !ok || raw == nil {
			out[f.Column] = absent(f)
			continue
		}

		val, err := convert(f.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.table, f.Column, err)
		}
		if val == nil {
			val = absent(f)
		}
		out[f.Column] = val
	}

	return out, nil
}

func lookup(rec Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func absent(f Field) any {
	if f.Default != nil {
		return f.Default
	}
	if f.Nullable {
		return nil
	}
	switch f.Kind {
	case Int:
		return int64(0)
	case Bool:
		return false
	case String:
		return ""
	case DateTime, Date:
		return time.Time{}
	default:
		return nil
	}
}

func convert(kind Kind, raw any) (any, error) {
	switch kind {
	case Int:
		return utils.ToInt64(raw), nil
	case Bool:
		return utils.ToBool(raw), nil
	case String:
		return utils.ToString(raw), nil
	case DateTime:
		return parseTime(raw, false)
	case Date:
		return parseTime(raw, true)
	default:
		return raw, nil
	}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses remote timestamps. An empty string is treated as null.
func parseTime(raw any, dateOnly bool) (any, error) {
	var text string
	switch v := raw.(type) {
	case time.Time:
		return normalize(v, dateOnly), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return normalize(*v, dateOnly), nil
	case string:
		text = strings.TrimSpace(v)
	default:
		return nil, fmt.Errorf("cannot parse %T as time", raw)
	}

	if text == "" {
		return nil, nil
	}

	if dateOnly && len(text) >= 10 {
		if t, err := time.Parse("2006-01-02", text[:10]); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return normalize(t, dateOnly), nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", text)
}

func normalize(t time.Time, dateOnly bool) time.Time {
	t = t.UTC()
	if dateOnly {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return t
}
