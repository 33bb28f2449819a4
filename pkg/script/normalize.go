package script

import (
	"fmt"
	"math"
	"strconv"
)

// maxListItems bounds list outputs so degenerate scripts cannot return
// millions of entries under the byte limit.
const maxListItems = 4096

// normalizeOutput validates a script's exported return value against the
// output schema and produces the typed Output. Any deviation is an
// OutputValidationError; nothing is silently defaulted or coerced beyond the
// documented primitive-to-string rule.
func normalizeOutput(exported any, maxBytes int) (*Output, *Error) {
	obj, ok := exported.(map[string]any)
	if !ok {
		return nil, outputErrorf("script must return an output object literal, got %s", describeValue(exported))
	}

	kindRaw, ok := obj["type"]
	if !ok {
		return nil, outputErrorf("output is missing the type field; expected one of %q, %q, %q", KindText, KindList, KindShape)
	}
	kind, ok := kindRaw.(string)
	if !ok {
		return nil, outputErrorf("output type must be a string, got %s", describeValue(kindRaw))
	}

	var out *Output
	var oerr *Error
	switch Kind(kind) {
	case KindText:
		out, oerr = normalizeText(obj)
	case KindList:
		out, oerr = normalizeList(obj)
	case KindShape:
		out, oerr = normalizeShape(obj)
	default:
		return nil, outputErrorf("unknown output type %q; expected one of %q, %q, %q", kind, KindText, KindList, KindShape)
	}
	if oerr != nil {
		return nil, oerr
	}

	if size := outputSize(out); size > maxBytes {
		return nil, outputErrorf("output size %d exceeds the %d byte limit", size, maxBytes)
	}
	return out, nil
}

func normalizeText(obj map[string]any) (*Output, *Error) {
	raw, ok := obj["value"]
	if !ok {
		return nil, outputErrorf("text output is missing the value field")
	}
	s, ok := coerceString(raw)
	if !ok {
		return nil, outputErrorf("text value must be a string, number or boolean, got %s", describeValue(raw))
	}
	return &Output{Kind: KindText, Value: s}, nil
}

func normalizeList(obj map[string]any) (*Output, *Error) {
	raw, ok := obj["items"]
	if !ok {
		return nil, outputErrorf("list output is missing the items field")
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, outputErrorf("list items must be an array, got %s", describeValue(raw))
	}
	if len(arr) > maxListItems {
		return nil, outputErrorf("list has %d items, limit is %d", len(arr), maxListItems)
	}
	items := make([]Item, 0, len(arr))
	for i, el := range arr {
		entry, ok := el.(map[string]any)
		if !ok {
			return nil, outputErrorf("list item %d must be an object with a value field, got %s", i, describeValue(el))
		}
		v, ok := entry["value"]
		if !ok {
			return nil, outputErrorf("list item %d is missing the value field", i)
		}
		s, ok := coerceString(v)
		if !ok {
			return nil, outputErrorf("list item %d value must be a string, number or boolean, got %s", i, describeValue(v))
		}
		items = append(items, Item{Value: s})
	}
	return &Output{Kind: KindList, Items: items}, nil
}

func normalizeShape(obj map[string]any) (*Output, *Error) {
	raw, ok := obj["shape"]
	if !ok {
		return nil, outputErrorf("shape output is missing the shape field")
	}
	name, ok := raw.(string)
	if !ok {
		return nil, outputErrorf("shape must be a string, got %s", describeValue(raw))
	}
	shape := Shape(name)
	if !ValidShape(shape) {
		return nil, outputErrorf("unknown shape %q; expected one of %q, %q, %q, %q, %q",
			name, ShapeCircle, ShapeRectangle, ShapeEllipse, ShapeCapsule, ShapeTriangle)
	}
	return &Output{Kind: KindShape, Shape: shape}, nil
}

// coerceString converts a primitive script value to its display string.
// Objects, arrays, null and undefined do not coerce.
func coerceString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return formatNumber(x), true
	}
	return "", false
}

// formatNumber renders a float the way JavaScript String(n) does for the
// common cases: no trailing zeros, NaN and Infinity spelled out.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// describeValue names a script value's type for error messages.
func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null or undefined"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int, int64, float64:
		return "a number"
	}
	return fmt.Sprintf("%T", v)
}

// outputSize approximates the rendered byte size of an output.
func outputSize(o *Output) int {
	n := len(o.Value) + len(o.Shape)
	for _, it := range o.Items {
		n += len(it.Value)
	}
	return n
}

func outputErrorf(format string, args ...any) *Error {
	return &Error{Kind: OutputValidationError, Message: fmt.Sprintf(format, args...)}
}
