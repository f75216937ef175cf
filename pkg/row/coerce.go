package row

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

// CoercionError reports that a stored value could not be converted to
// the requested target type.
type CoercionError struct {
	Column string
	Source string // run-time type of the stored value
	Target string // requested target type
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %s: cannot coerce %s to %s", e.Column, e.Source, e.Target)
}

func coercionErr(col string, v any, target string) error {
	return &CoercionError{Column: col, Source: fmt.Sprintf("%T", v), Target: target}
}

// asInt64 matches integral driver values.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint64:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint:
		return int64(x), true
	}
	return 0, false
}

// asFloat64 matches floating-point driver values.
func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func coerceString(col string, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case driver.Lob:
		// Large-object streaming is not supported yet; render as empty
		// text rather than failing.
		return "", nil
	}
	if n, ok := asInt64(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if f, ok := asFloat64(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", coercionErr(col, v, "string")
}

// coerceBool tests numeric values by their float64 bit pattern rather
// than a plain != 0 comparison, so NaN is true and 0.0 is false
// regardless of sign handling upstream. Textual values parse to float64
// and use the same bit test.
func coerceBool(col string, v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	}
	if n, ok := asInt64(v); ok {
		return math.Float64bits(float64(n)) != 0, nil
	}
	if f, ok := asFloat64(v); ok {
		return math.Float64bits(f) != 0, nil
	}
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return false, coercionErr(col, v, "bool")
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(text)); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return false, coercionErr(col, v, "bool")
	}
	return math.Float64bits(f) != 0, nil
}

func coerceInt64(col string, v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	if n, ok := asInt64(v); ok {
		return n, nil
	}
	if f, ok := asFloat64(v); ok {
		return int64(f), nil
	}
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return 0, coercionErr(col, v, "int64")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, coercionErr(col, v, "int64")
	}
	return n, nil
}

func coerceFloat64(col string, v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	if n, ok := asInt64(v); ok {
		return float64(n), nil
	}
	if f, ok := asFloat64(v); ok {
		return f, nil
	}
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return 0, coercionErr(col, v, "float64")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, coercionErr(col, v, "float64")
	}
	return f, nil
}

func coerceBytes(col string, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out, nil
	}
	return nil, coercionErr(col, v, "[]byte")
}

type granularity int

const (
	granDateTime granularity = iota
	granDate
	granTime
)

func (g granularity) String() string {
	switch g {
	case granDate:
		return "date"
	case granTime:
		return "time"
	default:
		return "date-time"
	}
}

// Textual layouts accepted for date/time values, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

// coerceTime accepts date-only, time-only, zoned, numeric epoch
// millisecond, or textual (epoch digits or ISO) values, normalizing to
// the requested granularity. Epoch values are interpreted in the local
// zone.
func coerceTime(col string, v any, g granularity) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return normalizeTime(x, g), nil
	}
	if n, ok := asInt64(v); ok {
		return normalizeTime(time.UnixMilli(n).In(time.Local), g), nil
	}
	if f, ok := asFloat64(v); ok {
		return normalizeTime(time.UnixMilli(int64(f)).In(time.Local), g), nil
	}
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return time.Time{}, coercionErr(col, v, g.String())
	}
	text = strings.TrimSpace(text)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return normalizeTime(time.UnixMilli(n).In(time.Local), g), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return normalizeTime(t, g), nil
		}
	}
	return time.Time{}, coercionErr(col, v, g.String())
}

func normalizeTime(t time.Time, g granularity) time.Time {
	switch g {
	case granDate:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case granTime:
		return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	default:
		return t
	}
}
