package formadmin

import "testing"

func TestValueTypeIsInteger(t *testing.T) {
	tests := []struct {
		valueType ValueType
		expected  bool
	}{
		{ValueTypeSmallInt, true},
		{ValueTypeInteger, true},
		{ValueTypeBigInt, true},
		{ValueTypeNumeric, false},
		{ValueTypeText, false},
		{ValueTypeBool, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.valueType), func(t *testing.T) {
			if got := tt.valueType.IsInteger(); got != tt.expected {
				t.Fatalf("IsInteger() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValueTypeSQLType(t *testing.T) {
	tests := []struct {
		valueType ValueType
		expected  string
	}{
		{ValueTypeText, "TEXT"},
		{ValueTypeInteger, "INTEGER"},
		{ValueTypeBigInt, "BIGINT"},
		{ValueTypeNumeric, "DOUBLE PRECISION"},
		{ValueTypeDateTime, "TIMESTAMPTZ"},
		{ValueTypeUUID, "UUID"},
		{ValueTypeBool, "BOOLEAN"},
		{ValueType("custom"), "TEXT"},
	}

	for _, tt := range tests {
		t.Run(string(tt.valueType), func(t *testing.T) {
			if got := tt.valueType.SQLType(); got != tt.expected {
				t.Fatalf("SQLType() = %s, want %s", got, tt.expected)
			}
		})
	}
}
