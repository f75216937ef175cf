package expr

// Type is the semantic SQL type of a bound parameter or declared column.
// Drivers use it as a binding hint; coercion of result values is handled
// separately by pkg/row.
type Type int

const (
	TypeUnknown Type = iota
	TypeBoolean
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeVarchar
	TypeBlob
	TypeDate
	TypeTime
	TypeTimestamp
)

// String returns the type name used in logs and error messages.
func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeDecimal:
		return "decimal"
	case TypeVarchar:
		return "varchar"
	case TypeBlob:
		return "blob"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}
