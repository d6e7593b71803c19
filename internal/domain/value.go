package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is the tagged union used for condition operands and custom user attributes.
type Value struct {
	kind   ValueKind
	str    string
	num    decimal.Decimal
	flag   bool
	fields map[string]Value
}

func StringValue(s string) Value          { return Value{kind: KindString, str: s} }
func NumberValue(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func IntValue(n int64) Value              { return NumberValue(decimal.NewFromInt(n)) }
func BoolValue(b bool) Value              { return Value{kind: KindBool, flag: b} }

func ObjectValue(fields map[string]Value) Value {
	copied := make(map[string]Value, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Value{kind: KindObject, fields: copied}
}

// ValueFromAny converts decoded JSON/YAML scalars and maps into a Value.
func ValueFromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		return v, nil
	case string:
		return StringValue(v), nil
	case bool:
		return BoolValue(v), nil
	case int:
		return IntValue(int64(v)), nil
	case int32:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case uint64:
		return NumberValue(decimal.NewFromUint64(v)), nil
	case float32:
		return NumberValue(decimal.NewFromFloat32(v)), nil
	case float64:
		return NumberValue(decimal.NewFromFloat(v)), nil
	case decimal.Decimal:
		return NumberValue(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return NumberValue(d), nil
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for key, item := range v {
			converted, err := ValueFromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", key, err)
			}
			fields[key] = converted
		}
		return Value{kind: KindObject, fields: fields}, nil
	case nil:
		return Value{}, fmt.Errorf("null values are not supported")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsValid() bool   { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsNumber() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// Field returns a direct child of an object value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	child, ok := v.fields[name]
	return child, ok
}

// Fields returns a copy of an object value's children.
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	out := make(map[string]Value, len(v.fields))
	for k, child := range v.fields {
		out[k] = child
	}
	return out
}

// Equal compares kind and content. Numbers compare by value, so 1 equals 1.0.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num.Equal(other.num)
	case KindBool:
		return v.flag == other.flag
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, child := range v.fields {
			o, ok := other.fields[k]
			if !ok || !child.Equal(o) {
				return false
			}
		}
		return true
	default:
		return other.kind == KindInvalid
	}
}

// Any converts back to plain Go values for encoders.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.num.IsInteger() {
			return v.num.IntPart()
		}
		f, _ := v.num.Float64()
		return f
	case KindBool:
		return v.flag
	case KindObject:
		out := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			out[k] = child.Any()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.flag {
			return "true"
		}
		return "false"
	case KindObject:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+v.fields[k].String())
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "<invalid>"
	}
}
