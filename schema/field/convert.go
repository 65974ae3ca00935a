package field

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when a temporal value arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

// ConversionError is returned when a value cannot be coerced into the
// requested property type.
type ConversionError struct {
	From   reflect.Type
	To     reflect.Type
	Reason string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	from := "nil"
	if e.From != nil {
		from = e.From.String()
	}
	if e.Reason != "" {
		return fmt.Sprintf("field: cannot convert %s to %s: %s", from, e.To, e.Reason)
	}
	return fmt.Sprintf("field: cannot convert %s to %s", from, e.To)
}

// Convert coerces a value read from a driver into a value assignable to
// target. Numeric values are widened or narrowed with an overflow check,
// booleans are accepted from numbers and text, and time values are parsed
// from text or unix seconds and truncated to the given temporal category.
// NULL becomes the zero value of target.
func Convert(src any, target reflect.Type, temporal Temporal) (reflect.Value, error) {
	if target.Kind() == reflect.Pointer {
		if src == nil {
			return reflect.Zero(target), nil
		}
		v, err := Convert(src, target.Elem(), temporal)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	if src == nil {
		return reflect.Zero(target), nil
	}
	if target == timeType {
		t, err := toTime(src)
		if err != nil {
			return reflect.Value{}, &ConversionError{From: reflect.TypeOf(src), To: target, Reason: err.Error()}
		}
		return reflect.ValueOf(Truncate(t, temporal)), nil
	}
	if reflect.PointerTo(target).Implements(scannerType) {
		p := reflect.New(target)
		if err := p.Interface().(sql.Scanner).Scan(src); err != nil {
			return reflect.Value{}, &ConversionError{From: reflect.TypeOf(src), To: target, Reason: err.Error()}
		}
		return p.Elem(), nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type() == target {
		return sv, nil
	}
	out := reflect.New(target).Elem()
	fail := func(reason string) (reflect.Value, error) {
		return reflect.Value{}, &ConversionError{From: sv.Type(), To: target, Reason: reason}
	}
	switch target.Kind() {
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return fail(err.Error())
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return fail(err.Error())
		}
		if out.OverflowInt(n) {
			return fail(fmt.Sprintf("value %d overflows", n))
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(src)
		if err != nil {
			return fail(err.Error())
		}
		if out.OverflowUint(n) {
			return fail(fmt.Sprintf("value %d overflows", n))
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(src)
		if err != nil {
			return fail(err.Error())
		}
		if out.OverflowFloat(f) {
			return fail(fmt.Sprintf("value %g overflows", f))
		}
		out.SetFloat(f)
	case reflect.String:
		s, err := toString(src)
		if err != nil {
			return fail(err.Error())
		}
		out.SetString(s)
	case reflect.Slice:
		if target.Elem().Kind() != reflect.Uint8 {
			if sv.Type().ConvertibleTo(target) {
				return sv.Convert(target), nil
			}
			return fail("unsupported slice type")
		}
		switch v := src.(type) {
		case []byte:
			out.SetBytes(append([]byte(nil), v...))
		case string:
			out.SetBytes([]byte(v))
		default:
			return fail("unsupported source")
		}
	default:
		if sv.Type().ConvertibleTo(target) {
			return sv.Convert(target), nil
		}
		return fail("unsupported target")
	}
	return out, nil
}

// ParseString coerces the textual form of a value, as returned by key
// generators, into target.
func ParseString(s string, target reflect.Type) (reflect.Value, error) {
	return Convert(s, target, TemporalNone)
}

// Bind returns the driver value for a property value. Nil pointers bind
// as NULL and time values are truncated to the temporal category.
func Bind(v reflect.Value, temporal Temporal) any {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		// Valuers with pointer receivers are left to database/sql.
		if v.Type().Implements(valuerType) {
			return v.Interface()
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if v.Type() == timeType {
		return Truncate(v.Interface().(time.Time), temporal)
	}
	return v.Interface()
}

// Truncate drops the parts of t not carried by the temporal category.
func Truncate(t time.Time, temporal Temporal) time.Time {
	switch temporal {
	case TemporalDate:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case TemporalTime:
		return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	default:
		return t
	}
}

func toTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported source")
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

func toBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	}
	return false, fmt.Errorf("unsupported source")
}

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows", rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("value %g is not integral", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("unsupported source")
}

func toUint64(src any) (uint64, error) {
	switch v := src.(type) {
	case []byte:
		return strconv.ParseUint(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	}
	n, err := toInt64(src)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return uint64(n), nil
}

func toFloat64(src any) (float64, error) {
	switch v := src.(type) {
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("unsupported source")
}

func toString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return "", fmt.Errorf("unsupported source")
}
