// Package field describes how mapped property values travel to and from the
// database driver.
//
// Every column carries a bind Type derived from its Go property type and an
// optional Temporal category:
//
//	field.TypeOf(reflect.TypeOf(int64(0))) // field.TypeInt64
//	field.TypeOf(reflect.TypeOf(time.Time{})) // field.TypeTime
//
// Values read from a driver are coerced with Convert, which performs numeric
// widening and narrowing, boolean-from-number coercion and date/time parsing:
//
//	v, err := field.Convert(int64(1), reflect.TypeOf(false), field.TemporalNone)
//	// v.Bool() == true
//
// Values sent to a driver go through Bind, which truncates time values to the
// declared temporal category.
package field
