package pug

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// escape replaces the characters that are significant in HTML text and
// double-quoted attribute values.
func escape(s string) string {
	return htmlEscaper.Replace(s)
}

// truthy reports whether v counts as true in a condition. nil, false, zero
// numbers, NaN, empty strings, and nil pointers, maps, and slices are false;
// everything else, including empty non-nil slices and maps, is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// stringify converts v to the text written to the output. nil is the empty
// string, and slices are joined with commas.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ""
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// classValue flattens the value of a class attribute: strings are used as
// they are, slices are joined with spaces, and maps contribute the keys
// whose values are truthy.
func classValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return ""
	case string:
		return val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var classes []string
		for i := 0; i < rv.Len(); i++ {
			if class := classValue(rv.Index(i).Interface()); class != "" {
				classes = append(classes, class)
			}
		}
		return strings.Join(classes, " ")
	case reflect.Map:
		var classes []string
		for _, entry := range mapEntries(rv) {
			if truthy(entry.value) {
				classes = append(classes, stringify(entry.key))
			}
		}
		return strings.Join(classes, " ")
	}
	return stringify(v)
}

// styleValue renders a map as CSS declarations, sorted by property name.
// Anything else is used as it is.
func styleValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return stringify(v)
	}
	var out strings.Builder
	for _, entry := range mapEntries(rv) {
		if entry.value == nil {
			continue
		}
		out.WriteString(stringify(entry.key))
		out.WriteByte(':')
		out.WriteString(stringify(entry.value))
		out.WriteByte(';')
	}
	return out.String()
}

type entry struct {
	key   any
	value any
}

// entries returns the elements of a collection for an each loop. Slices and
// arrays are keyed by index; maps are ordered by key so output is stable.
func entries(v any) ([]entry, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		results := make([]entry, rv.Len())
		for i := range results {
			results[i] = entry{key: i, value: rv.Index(i).Interface()}
		}
		return results, nil
	case reflect.Map:
		return mapEntries(rv), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("can't iterate over %T", v)
}

func mapEntries(rv reflect.Value) []entry {
	results := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		results = append(results, entry{key: iter.Key().Interface(), value: iter.Value().Interface()})
	}
	slices.SortFunc(results, func(a, b entry) int {
		return compareKeys(a.key, b.key)
	})
	return results
}

func compareKeys(a, b any) int {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case av.CanInt() && bv.CanInt():
		return cmp.Compare(av.Int(), bv.Int())
	case av.CanUint() && bv.CanUint():
		return cmp.Compare(av.Uint(), bv.Uint())
	case av.CanFloat() && bv.CanFloat():
		return cmp.Compare(av.Float(), bv.Float())
	}
	return strings.Compare(stringify(a), stringify(b))
}
