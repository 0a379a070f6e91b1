// Package dictator converts Go structs to ArangoDB documents and back.
//
// Field handling is driven by a Schema, a set of markers per Go field name.
// A schema can be built explicitly:
//
//	schema := dictator.Schema{}.Ignore("Session").IgnoreNull("Nickname")
//
// or read from struct tags once per type:
//
//	type User struct {
//		Name     string  `json:"name"`
//		Nickname *string `json:"nickname" dictator:"ignorenull"`
//		Session  string  `dictator:"ignore"`
//	}
//	schema := dictator.SchemaOf(User{})
package dictator

import (
	"reflect"
	"strings"
	"sync"
)

const tagName = "dictator"

// Marker customizes how a single field is converted.
type Marker uint8

const (
	// IgnoreField skips the field in both directions.
	IgnoreField Marker = 1 << iota
	// IgnoreNullValue omits the field from the document while it is nil and
	// leaves it untouched when the document holds null.
	IgnoreNullValue
)

// Schema maps Go field names to their markers. The zero value has no markers.
type Schema map[string]Marker

func (s Schema) with(field string, m Marker) Schema {
	out := make(Schema, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[field] |= m
	return out
}

// Ignore returns a copy of s with field marked IgnoreField.
func (s Schema) Ignore(field string) Schema {
	return s.with(field, IgnoreField)
}

// IgnoreNull returns a copy of s with field marked IgnoreNullValue.
func (s Schema) IgnoreNull(field string) Schema {
	return s.with(field, IgnoreNullValue)
}

// Has reports whether field carries marker m.
func (s Schema) Has(field string, m Marker) bool {
	return s[field]&m != 0
}

var schemaCache sync.Map // reflect.Type -> Schema

// SchemaOf reads the dictator tags of v's struct type. Recognized tag values
// are "ignore" and "ignorenull", comma separated. Results are cached per type.
func SchemaOf(v interface{}) Schema {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return Schema{}
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(Schema).Merge(nil)
	}

	schema := Schema{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			for k, m := range SchemaOf(reflect.Zero(field.Type).Interface()) {
				schema[k] |= m
			}
		}
		for _, opt := range strings.Split(field.Tag.Get(tagName), ",") {
			switch strings.TrimSpace(opt) {
			case "ignore":
				schema[field.Name] |= IgnoreField
			case "ignorenull":
				schema[field.Name] |= IgnoreNullValue
			}
		}
	}

	schemaCache.Store(t, schema)
	return schema.Merge(nil)
}

// Merge combines the markers of both schemas.
func (s Schema) Merge(other Schema) Schema {
	out := make(Schema, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] |= v
	}
	return out
}
