package field

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A Type represents a bind type of a mapped column. It may differ from the
// property type, e.g. a time.Time property bound as a date.
type Type uint8

// List of bind types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeJSON
	TypeUUID
	TypeBytes
	TypeEnum
	TypeString
	TypeOther
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeTime:    "time.Time",
	TypeJSON:    "json.RawMessage",
	TypeUUID:    "uuid.UUID",
	TypeBytes:   "[]byte",
	TypeEnum:    "string",
	TypeString:  "string",
	TypeOther:   "other",
	TypeInt:     "int",
	TypeInt8:    "int8",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeUint:    "uint",
	TypeUint8:   "uint8",
	TypeUint16:  "uint16",
	TypeUint32:  "uint32",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeDecimal: "decimal.Decimal",
}

var constNames = [...]string{
	TypeBool:    "TypeBool",
	TypeTime:    "TypeTime",
	TypeJSON:    "TypeJSON",
	TypeUUID:    "TypeUUID",
	TypeBytes:   "TypeBytes",
	TypeEnum:    "TypeEnum",
	TypeString:  "TypeString",
	TypeOther:   "TypeOther",
	TypeInt:     "TypeInt",
	TypeInt8:    "TypeInt8",
	TypeInt16:   "TypeInt16",
	TypeInt32:   "TypeInt32",
	TypeInt64:   "TypeInt64",
	TypeUint:    "TypeUint",
	TypeUint8:   "TypeUint8",
	TypeUint16:  "TypeUint16",
	TypeUint32:  "TypeUint32",
	TypeUint64:  "TypeUint64",
	TypeFloat32: "TypeFloat32",
	TypeFloat64: "TypeFloat64",
	TypeDecimal: "TypeDecimal",
}

// String returns the Go type name of the bind type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt8 && t < endTypes
}

// Integer reports if the given type is an integer type.
func (t Type) Integer() bool {
	return t >= TypeInt8 && t <= TypeUint64
}

// Valid reports if the given type is a known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// ConstName returns the constant name of the type, used by code generators.
func (t Type) ConstName() string {
	if !t.Valid() {
		return "invalid"
	}
	return constNames[t]
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	bytesType   = reflect.TypeOf([]byte(nil))
	rawJSONType = reflect.TypeOf(json.RawMessage(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// TypeOf returns the bind type for the given property type. Pointer
// types are resolved to their element type.
func TypeOf(t reflect.Type) Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return TypeTime
	case uuidType:
		return TypeUUID
	case decimalType:
		return TypeDecimal
	case rawJSONType:
		return TypeJSON
	case bytesType:
		return TypeBytes
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.String:
		// Named string types are treated as enums.
		if t.PkgPath() != "" {
			return TypeEnum
		}
		return TypeString
	case reflect.Int:
		return TypeInt
	case reflect.Int8:
		return TypeInt8
	case reflect.Int16:
		return TypeInt16
	case reflect.Int32:
		return TypeInt32
	case reflect.Int64:
		return TypeInt64
	case reflect.Uint:
		return TypeUint
	case reflect.Uint8:
		return TypeUint8
	case reflect.Uint16:
		return TypeUint16
	case reflect.Uint32:
		return TypeUint32
	case reflect.Uint64:
		return TypeUint64
	case reflect.Float32:
		return TypeFloat32
	case reflect.Float64:
		return TypeFloat64
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBytes
		}
	}
	return TypeOther
}

// Temporal is the calendar category of a time-valued column.
type Temporal uint8

// Temporal categories.
const (
	TemporalNone Temporal = iota
	TemporalDate
	TemporalTime
	TemporalTimestamp
)

// String implements the fmt.Stringer interface.
func (t Temporal) String() string {
	switch t {
	case TemporalDate:
		return "date"
	case TemporalTime:
		return "time"
	case TemporalTimestamp:
		return "timestamp"
	default:
		return ""
	}
}

// ConstName returns the constant name of the category, used by code generators.
func (t Temporal) ConstName() string {
	switch t {
	case TemporalDate:
		return "TemporalDate"
	case TemporalTime:
		return "TemporalTime"
	case TemporalTimestamp:
		return "TemporalTimestamp"
	default:
		return "TemporalNone"
	}
}

// ParseTemporal parses a temporal category name.
func ParseTemporal(s string) (Temporal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TemporalNone, nil
	case "date":
		return TemporalDate, nil
	case "time":
		return TemporalTime, nil
	case "timestamp", "datetime":
		return TemporalTimestamp, nil
	default:
		return TemporalNone, fmt.Errorf("field: unknown temporal category %q", s)
	}
}
