package stac

import (
	"strconv"
	"strings"
)

// NotAvailable is the display text for values that cannot be shown.
const NotAvailable = "N/A"

// Extract walks root one path segment at a time. While the current value is
// an object the named member is followed; once a non-object value is reached
// the walk stops and that value is returned, even if segments remain.
// A missing root or a missing member inside an object yields false.
func Extract(path []string, root *Value) (Value, bool) {
	if root == nil {
		return Value{}, false
	}
	current := *root
	for _, segment := range path {
		if current.kind != KindObject {
			return current, true
		}
		next, ok := current.obj[segment]
		if !ok {
			return Value{}, false
		}
		current = next
	}
	return current, true
}

// Resolve is the strict form of Extract: every segment must be looked up
// inside an object. A path that runs past a leaf yields false.
func Resolve(path []string, root *Value) (Value, bool) {
	if root == nil {
		return Value{}, false
	}
	current := *root
	for _, segment := range path {
		next, ok := current.Get(segment)
		if !ok {
			return Value{}, false
		}
		current = next
	}
	return current, true
}

// ResolveString resolves path and returns the result only when it is a string.
func ResolveString(path []string, root *Value) (string, bool) {
	v, ok := Resolve(path, root)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Stringify converts an extracted value into display text. Scalars render as
// their JSON text (strings unquoted), arrays join their elements with ", ",
// and objects or null render as NotAvailable. ok=false passes through.
func Stringify(v Value, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	return display(v), true
}

// Display is Stringify for callers that want NotAvailable for missing values.
func Display(v Value, ok bool) string {
	if s, ok := Stringify(v, ok); ok {
		return s
	}
	return NotAvailable
}

func display(v Value) string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = display(item)
		}
		return strings.Join(parts, ", ")
	default:
		return NotAvailable
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
