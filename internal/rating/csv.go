package rating

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned when a CSV row cannot be parsed into a Record.
var ErrMalformedRecord = errors.New("malformed rating record")

// fieldCount is the number of columns in a rating row: source, target, rating, time.
const fieldCount = 4

// columnNames names each CSV column for error messages.
var columnNames = [fieldCount]string{"source", "target", "rating", "time"}

// ParseError reports the position of a row that could not be parsed.
type ParseError struct {
	Line   int    // 1-based line in the input
	Column string // column name, empty when the row shape is wrong
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadCSV reads a headerless CSV stream of source,target,rating,time rows and
// returns the records in input order. Time may be written as an integer or
// as decimal seconds; the fractional part is dropped. Ratings are not range
// checked.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rating: read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads the rating history stored at path.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rating: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseRow(row []string, line int) (Record, error) {
	if len(row) != fieldCount {
		return Record{}, &ParseError{
			Line: line,
			Err:  fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRecord, fieldCount, len(row)),
		}
	}

	var ids [3]int
	for i := range ids {
		v, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			return Record{}, &ParseError{
				Line:   line,
				Column: columnNames[i],
				Err:    fmt.Errorf("%w: %q is not an integer", ErrMalformedRecord, row[i]),
			}
		}
		ids[i] = v
	}

	ts, err := parseTime(strings.TrimSpace(row[3]))
	if err != nil {
		return Record{}, &ParseError{Line: line, Column: columnNames[3], Err: err}
	}

	return Record{Source: ids[0], Target: ids[1], Rating: ids[2], Time: ts}, nil
}

// parseTime accepts "1289241911" and "1289241911.72836".
func parseTime(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q is not a timestamp", ErrMalformedRecord, s)
	}
	return int64(f), nil
}
