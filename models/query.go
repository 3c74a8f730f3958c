package models

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// AttributeType enum for the primitive types DynamoDB allows on key attributes
type AttributeType int

const (
	StringType AttributeType = iota
	NumberType
	BinaryType
)

// String returns the DynamoDB type letter (S, N or B)
func (t AttributeType) String() string {
	switch t {
	case NumberType:
		return string(types.ScalarAttributeTypeN)
	case BinaryType:
		return string(types.ScalarAttributeTypeB)
	default:
		return string(types.ScalarAttributeTypeS)
	}
}

// ParseAttributeType maps a DynamoDB scalar attribute type to an AttributeType.
// The second return value is false for anything other than S, N or B.
func ParseAttributeType(t types.ScalarAttributeType) (AttributeType, bool) {
	switch t {
	case types.ScalarAttributeTypeS:
		return StringType, true
	case types.ScalarAttributeTypeN:
		return NumberType, true
	case types.ScalarAttributeTypeB:
		return BinaryType, true
	}
	return StringType, false
}

// KeyTypeHints maps a column name to the declared type of that key attribute.
// Columns that are not key attributes are absent.
type KeyTypeHints map[string]AttributeType

// Lookup returns the hint for a column, or nil if the column has none
func (h KeyTypeHints) Lookup(column string) *AttributeType {
	if t, ok := h[column]; ok {
		return &t
	}
	return nil
}
