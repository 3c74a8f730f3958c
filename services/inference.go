package services

import (
	"math/big"
	"regexp"
	"strings"

	"csv-to-dynamodb/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tidwall/gjson"
)

// InferenceOptions controls how untyped values are converted
type InferenceOptions struct {
	// AllowSet converts JSON arrays of distinct strings or numbers to SS / NS
	AllowSet bool
	// AllowNull keeps null values (as NULL) instead of dropping them
	AllowNull bool
}

// textRule is one step of the inference precedence. Rules are tried in order
// and the first one whose match returns true builds the value.
type textRule struct {
	name  string
	match func(text string) bool
	build func(e *InferenceEngine, text string) types.AttributeValue
}

// inferenceRules is the fixed precedence for cells without a key hint:
// null, number, bool, structured (JSON array/object), string.
var inferenceRules = []textRule{
	{name: "null", match: IsNullText, build: buildNull},
	{name: "number", match: IsDecimalText, build: buildNumber},
	{name: "bool", match: isBoolText, build: buildBool},
	{name: "structured", match: IsStructuredText, build: (*InferenceEngine).decodeStructured},
	{name: "string", match: func(string) bool { return true }, build: buildString},
}

var decimalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// InferenceEngine turns a text cell into a DynamoDB attribute value.
// It holds no mutable state and is safe to share.
type InferenceEngine struct {
	opts InferenceOptions
}

// NewInferenceEngine creates a new inference engine
func NewInferenceEngine(opts InferenceOptions) *InferenceEngine {
	return &InferenceEngine{opts: opts}
}

// Options returns the options the engine was built with
func (e *InferenceEngine) Options() InferenceOptions {
	return e.opts
}

// Infer converts text to an attribute value. When hint is non-nil it fully
// determines the encoding; otherwise the inference rules are applied in order.
// Infer never fails: anything unrecognised becomes a string.
func (e *InferenceEngine) Infer(hint *models.AttributeType, text string) types.AttributeValue {
	if hint != nil {
		switch *hint {
		case models.NumberType:
			return &types.AttributeValueMemberN{Value: text}
		case models.BinaryType:
			return &types.AttributeValueMemberB{Value: []byte(text)}
		default:
			return &types.AttributeValueMemberS{Value: text}
		}
	}

	return ruleFor(text).build(e, text)
}

// ruleFor returns the first rule matching text. The last rule matches anything.
func ruleFor(text string) textRule {
	for _, rule := range inferenceRules {
		if rule.match(text) {
			return rule
		}
	}
	return inferenceRules[len(inferenceRules)-1]
}

// IsNullText reports whether text is the literal null
func IsNullText(text string) bool {
	return text == "null"
}

// IsDecimalText reports whether text is a plain decimal number, optionally
// signed and with an exponent. NaN, Inf and hex notation are not numbers.
func IsDecimalText(text string) bool {
	return decimalPattern.MatchString(text)
}

// ParseBoolText parses true/false in any letter case
func ParseBoolText(text string) (value bool, ok bool) {
	switch {
	case strings.EqualFold(text, "true"):
		return true, true
	case strings.EqualFold(text, "false"):
		return false, true
	}
	return false, false
}

func isBoolText(text string) bool {
	_, ok := ParseBoolText(text)
	return ok
}

// IsStructuredText reports whether text is a valid JSON array or object
func IsStructuredText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') {
		return false
	}
	return gjson.Valid(trimmed)
}

func buildNull(_ *InferenceEngine, _ string) types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

func buildNumber(_ *InferenceEngine, text string) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: text}
}

func buildBool(_ *InferenceEngine, text string) types.AttributeValue {
	value, _ := ParseBoolText(text)
	return &types.AttributeValueMemberBOOL{Value: value}
}

func buildString(_ *InferenceEngine, text string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: text}
}

func (e *InferenceEngine) decodeStructured(text string) types.AttributeValue {
	return e.decodeJSON(gjson.Parse(strings.TrimSpace(text)))
}

// decodeJSON maps a parsed JSON value to an attribute value. Numbers keep
// their literal text from the source.
func (e *InferenceEngine) decodeJSON(value gjson.Result) types.AttributeValue {
	switch value.Type {
	case gjson.Null:
		return &types.AttributeValueMemberNULL{Value: true}
	case gjson.True, gjson.False:
		return &types.AttributeValueMemberBOOL{Value: value.Bool()}
	case gjson.Number:
		return &types.AttributeValueMemberN{Value: value.Raw}
	case gjson.String:
		return &types.AttributeValueMemberS{Value: value.Str}
	}

	if value.IsArray() {
		return e.decodeArray(value.Array())
	}
	return e.decodeObject(value)
}

type arrayKind int

const (
	listKind arrayKind = iota
	stringSetKind
	numberSetKind
)

func (e *InferenceEngine) decodeArray(elems []gjson.Result) types.AttributeValue {
	switch e.arrayKind(elems) {
	case stringSetKind:
		set := make([]string, 0, len(elems))
		for _, elem := range elems {
			set = append(set, elem.Str)
		}
		return &types.AttributeValueMemberSS{Value: set}
	case numberSetKind:
		set := make([]string, 0, len(elems))
		for _, elem := range elems {
			set = append(set, elem.Raw)
		}
		return &types.AttributeValueMemberNS{Value: set}
	}

	list := make([]types.AttributeValue, 0, len(elems))
	for _, elem := range elems {
		if elem.Type == gjson.Null && !e.opts.AllowNull {
			continue
		}
		list = append(list, e.decodeJSON(elem))
	}
	return &types.AttributeValueMemberL{Value: list}
}

func (e *InferenceEngine) decodeObject(value gjson.Result) types.AttributeValue {
	members := make(map[string]types.AttributeValue)
	value.ForEach(func(key, member gjson.Result) bool {
		if member.Type == gjson.Null && !e.opts.AllowNull {
			return true
		}
		members[key.Str] = e.decodeJSON(member)
		return true
	})
	return &types.AttributeValueMemberM{Value: members}
}

// arrayKind decides between a list and a set. A set needs AllowSet, at least
// one element, elements that are all strings or all numbers, and no
// duplicates (numbers compare by value, so 1 and 1.0 collide).
func (e *InferenceEngine) arrayKind(elems []gjson.Result) arrayKind {
	if !e.opts.AllowSet || len(elems) == 0 {
		return listKind
	}

	switch elems[0].Type {
	case gjson.String:
		seen := make(map[string]struct{}, len(elems))
		for _, elem := range elems {
			if elem.Type != gjson.String {
				return listKind
			}
			if _, dup := seen[elem.Str]; dup {
				return listKind
			}
			seen[elem.Str] = struct{}{}
		}
		return stringSetKind
	case gjson.Number:
		seen := make(map[string]struct{}, len(elems))
		for _, elem := range elems {
			if elem.Type != gjson.Number {
				return listKind
			}
			key := numericKey(elem.Raw)
			if _, dup := seen[key]; dup {
				return listKind
			}
			seen[key] = struct{}{}
		}
		return numberSetKind
	}
	return listKind
}

// numericKey normalises a JSON number so equal values share a key
func numericKey(raw string) string {
	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return raw
	}
	return r.RatString()
}
