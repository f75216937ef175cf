// Package row provides the detached, typed view over query results.
//
// A Snapshot copies every column of a wire row into an immutable,
// name-indexed container at construction time. It never reads from the
// driver afterward, so snapshots can be retained after the originating
// stream is exhausted or the connection released.
//
// Typed accessors coerce the stored driver-native value to the requested
// type using a fixed rule table (see coerce.go). A NULL column coerces
// to the zero value of the requested type with no error; use IsNull to
// distinguish NULL from a genuine zero.
package row

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

// Snapshot is an immutable copy of one result row. Column names are
// uppercased at construction; lookups by name are case-insensitive.
type Snapshot struct {
	names  []string // uppercased, in driver order
	vals   []any    // parallel to names
	byName map[string]any
}

// NewSnapshot captures a wire row into a detached Snapshot. When two
// columns share an uppercased name, the first occurrence wins for
// name-based lookups; index-based access still sees both.
func NewSnapshot(r driver.Row, md driver.RowMetadata) (*Snapshot, error) {
	cols := md.Columns()
	s := &Snapshot{
		names:  make([]string, len(cols)),
		vals:   make([]any, len(cols)),
		byName: make(map[string]any, len(cols)),
	}
	for i, col := range cols {
		v, err := r.Get(i)
		if err != nil {
			return nil, fmt.Errorf("reading column %q: %w", col.Name(), err)
		}
		name := strings.ToUpper(col.Name())
		s.names[i] = name
		s.vals[i] = v
		if _, exists := s.byName[name]; !exists {
			s.byName[name] = v
		}
	}
	return s, nil
}

// FromMap builds a Snapshot from a plain map, uppercasing the keys.
// Column order follows Go map iteration and is unspecified; intended for
// tests and in-memory drivers.
func FromMap(values map[string]any) *Snapshot {
	s := &Snapshot{byName: make(map[string]any, len(values))}
	for name, v := range values {
		upper := strings.ToUpper(name)
		s.names = append(s.names, upper)
		s.vals = append(s.vals, v)
		s.byName[upper] = v
	}
	return s
}

// Len returns the number of columns.
func (s *Snapshot) Len() int { return len(s.names) }

// Columns returns the uppercased column names in driver order.
func (s *Snapshot) Columns() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Value returns the raw driver-native value of the named column and
// whether the column exists.
func (s *Snapshot) Value(name string) (any, bool) {
	v, ok := s.byName[strings.ToUpper(name)]
	return v, ok
}

// ValueAt returns the raw driver-native value at index (0-based).
func (s *Snapshot) ValueAt(index int) (any, error) {
	if index < 0 || index >= len(s.vals) {
		return nil, fmt.Errorf("column index %d out of range [0, %d)", index, len(s.vals))
	}
	return s.vals[index], nil
}

// Has reports whether the named column exists.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.byName[strings.ToUpper(name)]
	return ok
}

// IsNull reports whether the named column holds SQL NULL. A missing
// column also reports true.
func (s *Snapshot) IsNull(name string) bool {
	v, ok := s.Value(name)
	return !ok || v == nil
}

func (s *Snapshot) lookup(name string) (any, string, error) {
	v, ok := s.Value(name)
	if !ok {
		return nil, name, fmt.Errorf("no such column %q", name)
	}
	return v, strings.ToUpper(name), nil
}

func (s *Snapshot) lookupAt(index int) (any, string, error) {
	v, err := s.ValueAt(index)
	if err != nil {
		return nil, "", err
	}
	return v, s.names[index], nil
}

// String returns the named column coerced to text.
func (s *Snapshot) String(name string) (string, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	return coerceString(col, v)
}

// StringAt returns the column at index coerced to text.
func (s *Snapshot) StringAt(index int) (string, error) {
	v, col, err := s.lookupAt(index)
	if err != nil {
		return "", err
	}
	return coerceString(col, v)
}

// Bool returns the named column coerced to a boolean. Numeric values
// test their float64 bit pattern against zero, so NaN is true and both
// zeros are handled consistently.
func (s *Snapshot) Bool(name string) (bool, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	return coerceBool(col, v)
}

// BoolAt returns the column at index coerced to a boolean.
func (s *Snapshot) BoolAt(index int) (bool, error) {
	v, col, err := s.lookupAt(index)
	if err != nil {
		return false, err
	}
	return coerceBool(col, v)
}

// Int returns the named column coerced to an int.
func (s *Snapshot) Int(name string) (int, error) {
	n, err := s.Int64(name)
	return int(n), err
}

// Int64 returns the named column coerced to an int64.
func (s *Snapshot) Int64(name string) (int64, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return coerceInt64(col, v)
}

// Int64At returns the column at index coerced to an int64.
func (s *Snapshot) Int64At(index int) (int64, error) {
	v, col, err := s.lookupAt(index)
	if err != nil {
		return 0, err
	}
	return coerceInt64(col, v)
}

// Float64 returns the named column coerced to a float64.
func (s *Snapshot) Float64(name string) (float64, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return coerceFloat64(col, v)
}

// Float64At returns the column at index coerced to a float64.
func (s *Snapshot) Float64At(index int) (float64, error) {
	v, col, err := s.lookupAt(index)
	if err != nil {
		return 0, err
	}
	return coerceFloat64(col, v)
}

// Bytes returns the named column as a byte slice. Only a native byte
// sequence coerces; the returned slice is a copy and never aliases the
// snapshot's storage.
func (s *Snapshot) Bytes(name string) ([]byte, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return coerceBytes(col, v)
}

// Time returns the named column coerced to a full date-time.
func (s *Snapshot) Time(name string) (time.Time, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	return coerceTime(col, v, granDateTime)
}

// TimeAt returns the column at index coerced to a full date-time.
func (s *Snapshot) TimeAt(index int) (time.Time, error) {
	v, col, err := s.lookupAt(index)
	if err != nil {
		return time.Time{}, err
	}
	return coerceTime(col, v, granDateTime)
}

// Date returns the named column coerced to date granularity: the clock
// part is truncated to midnight.
func (s *Snapshot) Date(name string) (time.Time, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	return coerceTime(col, v, granDate)
}

// TimeOfDay returns the named column coerced to time-of-day granularity:
// the date part is normalized to the zero date.
func (s *Snapshot) TimeOfDay(name string) (time.Time, error) {
	v, col, err := s.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	return coerceTime(col, v, granTime)
}
