// Package value defines the dynamic value domain shared by the kernel and
// the language runtime: integers, floats, strings, booleans, none, statuses,
// and compounds (maps and lists). Arithmetic and comparison never panic;
// undefined combinations yield the none value.
package value

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/logica-lang/logica/domain/expression"
)

// Render returns the display form of a value: what `speak` prints.
func Render(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "none"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	case expression.Status:
		return string(t)
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, Repr(t[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Repr(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Repr returns the readable representation used in ledger action payloads:
// like Render but with strings quoted.
func Repr(v interface{}) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return Render(v)
}

// Truthy reduces a value to a condition result. None, false, zero, the
// empty string, empty compounds, and non-active statuses are false.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case expression.Status:
		return t == expression.StatusActive
	case map[string]interface{}:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// Equal compares two values, treating int and float64 as one numeric domain.
func Equal(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Binary applies an arithmetic or comparison operator. Division and modulus
// by zero yield none rather than failing.
func Binary(op string, a, b interface{}) interface{} {
	switch op {
	case "+":
		return add(a, b)
	case "-":
		return numeric(a, b, func(x, y int) interface{} { return x - y },
			func(x, y float64) interface{} { return x - y })
	case "*":
		return numeric(a, b, func(x, y int) interface{} { return x * y },
			func(x, y float64) interface{} { return x * y })
	case "/":
		return divide(a, b)
	case "%":
		return modulo(a, b)
	case "==":
		return Equal(a, b)
	case "!=":
		return !Equal(a, b)
	case "<", ">", "<=", ">=":
		return compare(op, a, b)
	case "and":
		if !Truthy(a) {
			return a
		}
		return b
	case "or":
		if Truthy(a) {
			return a
		}
		return b
	default:
		return nil
	}
}

// Negate applies unary minus.
func Negate(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return -t
	case float64:
		return -t
	default:
		return nil
	}
}

// Index retrieves an element from a compound value.
func Index(obj, idx interface{}) interface{} {
	switch t := obj.(type) {
	case map[string]interface{}:
		if key, ok := idx.(string); ok {
			return t[key]
		}
		return nil
	case []interface{}:
		if i, ok := idx.(int); ok && i >= 0 && i < len(t) {
			return t[i]
		}
		return nil
	default:
		return nil
	}
}

// Member retrieves a named field from a compound value.
func Member(obj interface{}, name string) interface{} {
	if m, ok := obj.(map[string]interface{}); ok {
		return m[name]
	}
	return nil
}

func add(a, b interface{}) interface{} {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as + bs
		}
		return nil
	}
	return numeric(a, b, func(x, y int) interface{} { return x + y },
		func(x, y float64) interface{} { return x + y })
}

// divide follows the source-language rule: division always produces a float.
func divide(a, b interface{}) interface{} {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok || bf == 0 {
		return nil
	}
	return af / bf
}

func modulo(a, b interface{}) interface{} {
	ai, aok := a.(int)
	bi, bok := b.(int)
	if aok && bok {
		if bi == 0 {
			return nil
		}
		return ai % bi
	}
	return nil
}

func compare(op string, a, b interface{}) interface{} {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch op {
			case "<":
				return af < bf
			case ">":
				return af > bf
			case "<=":
				return af <= bf
			case ">=":
				return af >= bf
			}
		}
		return nil
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case ">":
			return as > bs
		case "<=":
			return as <= bs
		case ">=":
			return as >= bs
		}
	}
	return nil
}

func numeric(a, b interface{},
	ints func(x, y int) interface{},
	floats func(x, y float64) interface{}) interface{} {
	ai, aIsInt := a.(int)
	bi, bIsInt := b.(int)
	if aIsInt && bIsInt {
		return ints(ai, bi)
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil
	}
	return floats(af, bf)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
