package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is one write item: column name to attribute value. The SDK's
// types.AttributeValue is a sealed interface whose members each carry exactly
// one tag, so an Item can never hold a value with zero or two tags set.
type Item map[string]types.AttributeValue

// EncodedRow pairs a source row with the item built from it
type EncodedRow struct {
	Line int
	Row  []string
	Item Item
}

// MarshalAttributeValue renders a single attribute value as DynamoDB JSON,
// e.g. {"N":"1.50"} or {"SS":["a","b"]}.
func MarshalAttributeValue(av types.AttributeValue) ([]byte, error) {
	v, err := toJSONValue(av)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// MarshalItem renders an item as a DynamoDB JSON object with sorted keys
func MarshalItem(item Item) ([]byte, error) {
	out := make(map[string]any, len(item))
	for name, av := range item {
		v, err := toJSONValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = v
	}
	return json.Marshal(out)
}

// UnmarshalAttributeValue decodes DynamoDB JSON produced by MarshalAttributeValue
func UnmarshalAttributeValue(data []byte) (types.AttributeValue, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttributeJSON, err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one tag, got %d", ErrInvalidAttributeJSON, len(tagged))
	}

	for tag, raw := range tagged {
		return fromTagged(tag, raw)
	}
	return nil, ErrInvalidAttributeJSON
}

// UnmarshalItem decodes a DynamoDB JSON object produced by MarshalItem
func UnmarshalItem(data []byte) (Item, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttributeJSON, err)
	}
	item := make(Item, len(raw))
	for name, value := range raw {
		av, err := UnmarshalAttributeValue(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func toJSONValue(av types.AttributeValue) (map[string]any, error) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": true}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": tv.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{"N": tv.Value}, nil
	case *types.AttributeValueMemberS:
		return map[string]any{"S": tv.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{"B": tv.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": tv.Value}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": tv.Value}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": tv.Value}, nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(tv.Value))
		for _, elem := range tv.Value {
			v, err := toJSONValue(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return map[string]any{"L": list}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(tv.Value))
		for k, elem := range tv.Value {
			v, err := toJSONValue(elem)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return map[string]any{"M": m}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", av)
	}
}

func fromTagged(tag string, raw json.RawMessage) (types.AttributeValue, error) {
	var err error
	switch tag {
	case "NULL":
		var v bool
		if err = json.Unmarshal(raw, &v); err == nil && v {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
	case "BOOL":
		var v bool
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberBOOL{Value: v}, nil
		}
	case "N":
		var v string
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberN{Value: v}, nil
		}
	case "S":
		var v string
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberS{Value: v}, nil
		}
	case "B":
		var v []byte
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberB{Value: v}, nil
		}
	case "SS":
		var v []string
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberSS{Value: v}, nil
		}
	case "NS":
		var v []string
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberNS{Value: v}, nil
		}
	case "BS":
		var v [][]byte
		if err = json.Unmarshal(raw, &v); err == nil {
			return &types.AttributeValueMemberBS{Value: v}, nil
		}
	case "L":
		var elems []json.RawMessage
		if err = json.Unmarshal(raw, &elems); err == nil {
			list := make([]types.AttributeValue, 0, len(elems))
			for _, elem := range elems {
				av, err := UnmarshalAttributeValue(elem)
				if err != nil {
					return nil, err
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		}
	case "M":
		var members map[string]json.RawMessage
		if err = json.Unmarshal(raw, &members); err == nil {
			m := make(map[string]types.AttributeValue, len(members))
			for k, elem := range members {
				av, err := UnmarshalAttributeValue(elem)
				if err != nil {
					return nil, err
				}
				m[k] = av
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrInvalidAttributeJSON, tag)
	}

	if err == nil {
		err = fmt.Errorf("bad value %s", bytes.TrimSpace(raw))
	}
	return nil, fmt.Errorf("%w: tag %s: %v", ErrInvalidAttributeJSON, tag, err)
}

// SourceRow is one data row of the source file with its line number
type SourceRow struct {
	Line  int
	Cells []string
}

// SourceTable holds the header and data rows read from the source file
type SourceTable struct {
	Header []string
	Rows   []SourceRow
}
