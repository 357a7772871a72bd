package addressbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// TransformKind selects how a ColumnTransform builds its output column.
type TransformKind int

const (
	// SingleColumn copies one input column.
	SingleColumn TransformKind = iota
	// CombinedColumns joins several input columns with spaces under a new
	// header. With no indices it yields an empty column.
	CombinedColumns
)

// ColumnTransform produces one output column of a filtered CSV.
type ColumnTransform struct {
	Kind    TransformKind
	Index   int    // SingleColumn
	Indices []int  // CombinedColumns
	Header  string // CombinedColumns
}

// Single returns a transform copying column i.
func Single(i int) ColumnTransform {
	return ColumnTransform{Kind: SingleColumn, Index: i}
}

// Combined returns a transform joining columns under header.
func Combined(header string, indices ...int) ColumnTransform {
	return ColumnTransform{Kind: CombinedColumns, Indices: indices, Header: header}
}

func (t ColumnTransform) header(in []string) string {
	if t.Kind == CombinedColumns {
		return t.Header
	}
	return field(in, t.Index)
}

func (t ColumnTransform) apply(row []string) string {
	if t.Kind == SingleColumn {
		if t.Index < len(row) {
			return row[t.Index]
		}
		return ""
	}
	var parts []string
	for _, i := range t.Indices {
		if v := field(row, i); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Filter copies r to w, keeping only the columns the transforms produce.
// It returns the number of data rows written.
func Filter(r io.Reader, w io.Writer, transforms []ColumnTransform) (int, error) {
	if len(transforms) == 0 {
		return 0, fmt.Errorf("no columns selected")
	}

	reader := csv.NewReader(textReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	writer := csv.NewWriter(w)

	header, err := reader.Read()
	if err == io.EOF {
		return 0, ErrEmptyCSV
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}

	out := make([]string, len(transforms))
	for i, t := range transforms {
		out[i] = t.header(header)
	}
	if err := writer.Write(out); err != nil {
		return 0, err
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		for i, t := range transforms {
			out[i] = t.apply(record)
		}
		if err := writer.Write(out); err != nil {
			return rows, err
		}
		rows++
	}
	writer.Flush()
	return rows, writer.Error()
}

// dmrColumns are the RadioID.net export columns DMRTransform needs.
var dmrColumns = []string{"RADIO_ID", "CALLSIGN", "FIRST_NAME", "LAST_NAME", "CITY", "STATE", "COUNTRY"}

// DMRTransform returns the transforms that reshape a RadioID.net user
// export for the radio: the full name goes in FIRST_NAME while LAST_NAME
// and CITY are emptied to save flash.
func DMRTransform(header []string) ([]ColumnTransform, error) {
	idx := make(map[string]int, len(dmrColumns))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range dmrColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s (available: %s)",
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	return []ColumnTransform{
		Single(idx["RADIO_ID"]),
		Single(idx["CALLSIGN"]),
		Combined("FIRST_NAME", idx["FIRST_NAME"], idx["LAST_NAME"]),
		Combined("LAST_NAME"),
		Combined("CITY"),
		Single(idx["STATE"]),
		Single(idx["COUNTRY"]),
	}, nil
}

// SelectColumns parses a column selection such as "1,3,5-7,Name" against
// header. Numbers are 1-based; names match case-insensitively. The result
// is sorted, deduplicated and 0-based. Unknown entries are returned as an
// error after every valid entry has been collected.
func SelectColumns(header []string, selection string) ([]ColumnTransform, error) {
	if strings.EqualFold(strings.TrimSpace(selection), "all") {
		out := make([]ColumnTransform, len(header))
		for i := range header {
			out[i] = Single(i)
		}
		return out, nil
	}

	seen := map[int]bool{}
	var bad []string
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(lo)
			b, errB := strconv.Atoi(hi)
			if errA == nil && errB == nil {
				for i := a; i <= b; i++ {
					if i >= 1 && i <= len(header) {
						seen[i-1] = true
					}
				}
				continue
			}
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n >= 1 && n <= len(header) {
				seen[n-1] = true
			} else {
				bad = append(bad, part)
			}
			continue
		}
		found := false
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), part) {
				seen[i] = true
				found = true
				break
			}
		}
		if !found {
			bad = append(bad, part)
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	out := make([]ColumnTransform, len(indices))
	for i, idx := range indices {
		out[i] = Single(idx)
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("unknown columns: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

// ReadHeader returns the header row of a CSV.
func ReadHeader(r io.Reader) ([]string, error) {
	reader := csv.NewReader(textReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	return header, err
}
