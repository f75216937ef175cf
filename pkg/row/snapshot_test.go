package row

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowsql/pkg/driver"
)

type fakeRow struct {
	vals []any
}

func (r *fakeRow) Get(index int) (any, error) { return r.vals[index], nil }

type fakeMetadata struct {
	names []string
}

func (m *fakeMetadata) Columns() []driver.ColumnMetadata {
	cols := make([]driver.ColumnMetadata, len(m.names))
	for i, name := range m.names {
		cols[i] = fakeColumn(name)
	}
	return cols
}

type fakeColumn string

func (c fakeColumn) Name() string     { return string(c) }
func (c fakeColumn) TypeName() string { return "" }

func snap(t *testing.T, names []string, vals []any) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(&fakeRow{vals: vals}, &fakeMetadata{names: names})
	require.NoError(t, err)
	return s
}

func TestSnapshotCapture(t *testing.T) {
	s := snap(t, []string{"id", "Name", "ACTIVE"}, []any{int64(1), "vince", int64(1)})

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"ID", "NAME", "ACTIVE"}, s.Columns())

	id, err := s.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	name, err := s.String("NAME")
	require.NoError(t, err)
	assert.Equal(t, "vince", name)

	active, err := s.Bool("active")
	require.NoError(t, err)
	assert.True(t, active)

	idText, err := s.String("ID")
	require.NoError(t, err)
	assert.Equal(t, "1", idText)
}

func TestSnapshotNameLookupIsCaseInsensitive(t *testing.T) {
	s := snap(t, []string{"total_salary"}, []any{int64(500)})

	for _, name := range []string{"total_salary", "TOTAL_SALARY", "Total_Salary"} {
		v, ok := s.Value(name)
		assert.True(t, ok, name)
		assert.Equal(t, int64(500), v)
	}
	assert.False(t, s.Has("salary"))
}

func TestSnapshotDuplicateNamesFirstWins(t *testing.T) {
	s := snap(t, []string{"id", "ID"}, []any{int64(1), int64(2)})

	v, ok := s.Value("id")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	second, err := s.ValueAt(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestSnapshotIsDetached(t *testing.T) {
	vals := []any{int64(7)}
	s := snap(t, []string{"n"}, vals)

	vals[0] = int64(99)

	n, err := s.Int64("n")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestSnapshotMissingColumn(t *testing.T) {
	s := snap(t, []string{"id"}, []any{int64(1)})

	_, err := s.String("nope")
	assert.ErrorContains(t, err, `no such column "nope"`)

	_, err = s.ValueAt(5)
	assert.ErrorContains(t, err, "out of range")
}

func TestSnapshotNullHandling(t *testing.T) {
	s := snap(t, []string{"v"}, []any{nil})

	assert.True(t, s.IsNull("v"))
	assert.True(t, s.IsNull("missing"))

	str, err := s.String("v")
	require.NoError(t, err)
	assert.Equal(t, "", str)

	b, err := s.Bool("v")
	require.NoError(t, err)
	assert.False(t, b)

	n, err := s.Int64("v")
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := s.Float64("v")
	require.NoError(t, err)
	assert.Zero(t, f)

	raw, err := s.Bytes("v")
	require.NoError(t, err)
	assert.Nil(t, raw)

	ts, err := s.Time("v")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestSnapshotBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	s := FromMap(map[string]any{"blob": src})

	out, err := s.Bytes("blob")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)

	out[0] = 42
	again, err := s.Bytes("blob")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestCoerceString(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", "hello"},
		{"int", int64(42), "42"},
		{"float", 2.5, "2.5"},
		{"time", ts, "2024-03-01T10:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromMap(map[string]any{"v": tt.in})
			got, err := s.String("v")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceStringRejectsBool(t *testing.T) {
	s := FromMap(map[string]any{"v": true})
	_, err := s.String("v")
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "V", ce.Column)
	assert.Equal(t, "string", ce.Target)
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"true", true, true},
		{"false", false, false},
		{"int zero", int64(0), false},
		{"int nonzero", int64(3), true},
		{"float zero", 0.0, false},
		{"negative zero", math.Copysign(0, -1), true},
		{"nan", math.NaN(), true},
		{"text true", "true", true},
		{"text numeric", "2.5", true},
		{"text zero", "0", false},
		{"bytes", []byte("1"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromMap(map[string]any{"v": tt.in})
			got, err := s.Bool("v")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceBoolRejectsNonNumericText(t *testing.T) {
	s := FromMap(map[string]any{"v": "maybe"})
	_, err := s.Bool("v")
	var ce *CoercionError
	assert.ErrorAs(t, err, &ce)
}

func TestCoerceInt64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int64", int64(9), 9},
		{"int32", int32(-4), -4},
		{"uint8", uint8(255), 255},
		{"float truncates", 3.9, 3},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"text", "  17 ", 17},
		{"bytes", []byte("-2"), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromMap(map[string]any{"v": tt.in})
			got, err := s.Int64("v")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceFloat64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float64", 1.25, 1.25},
		{"float32", float32(0.5), 0.5},
		{"int", int64(3), 3},
		{"bool", true, 1},
		{"text", "2.75", 2.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromMap(map[string]any{"v": tt.in})
			got, err := s.Float64("v")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceRejectsUnknownSource(t *testing.T) {
	s := FromMap(map[string]any{"v": struct{}{}})

	_, err := s.Int64("v")
	assert.ErrorContains(t, err, "cannot coerce")
	_, err = s.Float64("v")
	assert.ErrorContains(t, err, "cannot coerce")
	_, err = s.Bytes("v")
	assert.ErrorContains(t, err, "cannot coerce")
	_, err = s.Time("v")
	assert.ErrorContains(t, err, "cannot coerce")
}

func TestCoerceTime(t *testing.T) {
	ref := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	t.Run("native time", func(t *testing.T) {
		s := FromMap(map[string]any{"v": ref})
		got, err := s.Time("v")
		require.NoError(t, err)
		assert.True(t, ref.Equal(got))
	})

	t.Run("epoch millis", func(t *testing.T) {
		s := FromMap(map[string]any{"v": ref.UnixMilli()})
		got, err := s.Time("v")
		require.NoError(t, err)
		assert.Equal(t, ref.UnixMilli(), got.UnixMilli())
	})

	t.Run("epoch digit string", func(t *testing.T) {
		s := FromMap(map[string]any{"v": "1718461845000"})
		got, err := s.Time("v")
		require.NoError(t, err)
		assert.Equal(t, int64(1718461845000), got.UnixMilli())
	})

	t.Run("iso text", func(t *testing.T) {
		s := FromMap(map[string]any{"v": "2024-06-15 14:30:45"})
		got, err := s.Time("v")
		require.NoError(t, err)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 14, got.Hour())
	})
}

func TestDateTruncatesClock(t *testing.T) {
	s := FromMap(map[string]any{"v": time.Date(2024, 6, 15, 14, 30, 45, 123, time.UTC)})

	got, err := s.Date("v")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestTimeOfDayDropsDate(t *testing.T) {
	s := FromMap(map[string]any{"v": time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)})

	got, err := s.TimeOfDay("v")
	require.NoError(t, err)
	assert.Equal(t, time.Date(0, time.January, 1, 14, 30, 45, 0, time.UTC), got)
}
