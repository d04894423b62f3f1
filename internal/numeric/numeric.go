// Package numeric coerces raw statement scalars into finite float64 values.
//
// Upstream providers hand back numbers as floats, integers, strings, JSON
// numbers, decimals or nothing at all. Everything downstream of this package
// operates on finite numbers only.
package numeric

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ToFloat converts v to a finite float64. The second return value is false
// when v is missing, not numeric, NaN or infinite.
func ToFloat(v any) (float64, bool) {
	var f float64

	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case *float64:
		if x == nil {
			return 0, false
		}
		f = *x
	case decimal.Decimal:
		f = x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return 0, false
		}
		f = x.Decimal.InexactFloat64()
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		return 0, false
	default:
		parsed, ok := reflectFloat(reflect.ValueOf(v))
		if !ok {
			return 0, false
		}
		f = parsed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// reflectFloat handles the numeric kinds not listed in ToFloat: narrow
// integers, named numeric types and pointers to any supported value.
func reflectFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return 0, false
		}
		return ToFloat(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return ToFloat(rv.String())
	}
	return 0, false
}

// SafeFloat returns v as a finite float64, or def when v cannot be converted
// or converts to NaN or ±Inf.
func SafeFloat(v any, def float64) float64 {
	if f, ok := ToFloat(v); ok {
		return f
	}
	return def
}

// Finite returns f, or 0 when f is NaN or infinite.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Ratio returns num/den, or 0 when den is not positive.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return Finite(num / den)
}

// Pct returns num/den*100, or 0 when den is not positive.
func Pct(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return Finite(num / den * 100)
}
