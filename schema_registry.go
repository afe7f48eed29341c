package formadmin

// ValueType represents supported column value types.
type ValueType string

const (
	ValueTypeText     ValueType = "text"
	ValueTypeSmallInt ValueType = "smallint"
	ValueTypeInteger  ValueType = "integer"
	ValueTypeBigInt   ValueType = "bigint"
	ValueTypeNumeric  ValueType = "numeric"  // double precision
	ValueTypeDate     ValueType = "date"     // for JSON properties with format `date`
	ValueTypeDateTime ValueType = "datetime" // for JSON properties with format `date-time`
	ValueTypeUUID     ValueType = "uuid"
	ValueTypeBool     ValueType = "bool"
)

// IsInteger reports whether the type only holds whole numbers.
func (t ValueType) IsInteger() bool {
	switch t {
	case ValueTypeSmallInt, ValueTypeInteger, ValueTypeBigInt:
		return true
	default:
		return false
	}
}

// SQLType returns the Postgres column type used by init-db.
func (t ValueType) SQLType() string {
	switch t {
	case ValueTypeSmallInt:
		return "SMALLINT"
	case ValueTypeInteger:
		return "INTEGER"
	case ValueTypeBigInt:
		return "BIGINT"
	case ValueTypeNumeric:
		return "DOUBLE PRECISION"
	case ValueTypeDate:
		return "DATE"
	case ValueTypeDateTime:
		return "TIMESTAMPTZ"
	case ValueTypeUUID:
		return "UUID"
	case ValueTypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// ModelRegistry provides model lookup operations.
// Implementations can load definitions from files or other sources.
type ModelRegistry interface {
	// GetModel returns a NotFound AdminError for unknown names
	GetModel(name string) (*Model, error)
	// ListModels returns the registered model names in sorted order
	ListModels() []string
}
