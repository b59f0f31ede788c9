// Package table reads delimited text into typed, column-oriented tables.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ColumnType is the declared type inferred for a column.
type ColumnType string

const (
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
	TypeObject  ColumnType = "object"
)

// IsNumeric reports whether the type belongs to the number family.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

// Column holds the cells of one column.
type Column struct {
	Name    string
	Type    ColumnType
	Raw     []string
	Missing []bool
	// Numbers is populated for numeric columns; missing cells are NaN.
	Numbers []float64
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	return len(c.Raw)
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Present returns the non-missing numeric values and their row indices.
// It returns nil slices for non-numeric columns.
func (c *Column) Present() ([]float64, []int) {
	if !c.Type.IsNumeric() {
		return nil, nil
	}
	vals := make([]float64, 0, len(c.Numbers))
	rows := make([]int, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if c.Missing[i] {
			continue
		}
		vals = append(vals, v)
		rows = append(rows, i)
	}
	return vals, rows
}

// Table is a parsed CSV file.
type Table struct {
	Columns []*Column
	rows    int
	index   map[string]int
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return t.rows
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Names returns the column names in file order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Types returns the declared type of each column keyed by name.
func (t *Table) Types() map[string]string {
	types := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		types[c.Name] = string(c.Type)
	}
	return types
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// ErrTooManyFields is returned when a row has more fields than the header.
var ErrTooManyFields = errors.New("too many fields")

// Read parses every row of r.
func Read(r io.Reader) (*Table, error) {
	return read(r, -1)
}

// ReadSample parses the header and at most n data rows of r.
func ReadSample(r io.Reader, n int) (*Table, error) {
	if n < 0 {
		n = 0
	}
	return read(r, n)
}

func read(r io.Reader, limit int) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{index: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := normalizeHeader(header)

	raw := make([][]string, len(names))
	missing := make([][]bool, len(names))
	rows := 0
	for limit < 0 || rows < limit {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d: %w", line, len(names), len(rec), ErrTooManyFields)
		}
		for j := range names {
			var v string
			if j < len(rec) {
				v = rec[j]
			}
			raw[j] = append(raw[j], v)
			missing[j] = append(missing[j], j >= len(rec) || IsMissing(v))
		}
		rows++
	}

	t := &Table{
		Columns: make([]*Column, len(names)),
		rows:    rows,
		index:   make(map[string]int, len(names)),
	}
	for j, name := range names {
		col := &Column{Name: name, Raw: raw[j], Missing: missing[j]}
		if col.Raw == nil {
			col.Raw = []string{}
			col.Missing = []bool{}
		}
		inferColumn(col)
		t.Columns[j] = col
		t.index[name] = j
	}
	return t, nil
}

// normalizeHeader strips a UTF-8 BOM, names blank headers and
// de-duplicates repeated names with numeric suffixes.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	dups := make(map[string]int)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			dups[h]++
			name = fmt.Sprintf("%s.%d", h, dups[h])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(v string) bool {
	_, ok := naValues[v]
	return ok
}

var boolValues = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// inferColumn sets the declared type of col and, for numeric
// columns, its parsed values.
func inferColumn(col *Column) {
	present := 0
	allInt, allFloat, allBool := true, true, true
	for i, v := range col.Raw {
		if col.Missing[i] {
			continue
		}
		present++
		s := strings.TrimSpace(v)
		if allInt && !isInteger(s) {
			allInt = false
		}
		if allFloat {
			if _, ok := parseFloat(s); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := boolValues[s]; !ok {
				allBool = false
			}
		}
	}
	hasMissing := present < len(col.Raw)

	switch {
	case present == 0:
		col.Type = TypeFloat64
	case allInt && !hasMissing:
		col.Type = TypeInt64
	case allFloat:
		col.Type = TypeFloat64
	case allBool && !hasMissing:
		col.Type = TypeBool
	default:
		col.Type = TypeObject
	}

	if !col.Type.IsNumeric() {
		return
	}
	col.Numbers = make([]float64, len(col.Raw))
	for i, v := range col.Raw {
		if col.Missing[i] {
			col.Numbers[i] = math.NaN()
			continue
		}
		f, _ := parseFloat(strings.TrimSpace(v))
		col.Numbers[i] = f
	}
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// parseFloat accepts plain decimal notation only; hex floats and
// underscore separators are treated as text.
func parseFloat(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
