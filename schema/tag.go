package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sqldao/schema/field"
)

// TagKey is the struct tag key read by the reflective extractor.
const TagKey = "db"

// Tag is the parsed form of a `db` struct tag:
//
//	ID      int64  `db:"ID,id,generated=identity"`
//	Name    string `db:"FULL_NAME"`
//	Born    time.Time `db:",temporal=date"`
//	Version int    `db:",version"`
//	Team    *Team  `db:",ref"`
//	Cache   string `db:"-"`
//
// On the embedded Table marker the same syntax carries table options:
//
//	schema.Table `db:"ACCOUNTS,schema=billing,access=property"`
type Tag struct {
	Name      string
	Skip      bool
	ID        bool
	IDOrdinal int
	Version   bool
	Generated bool
	Strategy  Strategy
	Generator string
	Temporal  field.Temporal
	Ref       bool
	Schema    string
	Access    Access
}

// ParseTag parses the value of a `db` struct tag.
func ParseTag(value string) (Tag, error) {
	var tag Tag
	value = strings.TrimSpace(value)
	if value == "-" {
		tag.Skip = true
		return tag, nil
	}
	parts := strings.Split(value, ",")
	tag.Name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		key, val, hasVal := strings.Cut(strings.TrimSpace(opt), "=")
		key, val = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(val)
		switch key {
		case "":
		case "id":
			tag.ID = true
			if hasVal {
				n, err := strconv.Atoi(val)
				if err != nil || n < 1 {
					return tag, fmt.Errorf("invalid id ordinal %q", val)
				}
				tag.IDOrdinal = n
			}
		case "version":
			tag.Version = true
		case "generated":
			s, err := ParseStrategy(val)
			if err != nil {
				return tag, err
			}
			tag.Generated = s != StrategyNone
			tag.Strategy = s
		case "generator":
			if val == "" {
				return tag, fmt.Errorf("empty generator name")
			}
			tag.Generator = val
		case "temporal":
			t, err := field.ParseTemporal(val)
			if err != nil {
				return tag, err
			}
			tag.Temporal = t
		case "ref":
			tag.Ref = true
		case "transient":
			tag.Skip = true
		case "schema":
			tag.Schema = val
		case "access":
			a, err := ParseAccess(val)
			if err != nil {
				return tag, err
			}
			tag.Access = a
		default:
			return tag, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return tag, nil
}
