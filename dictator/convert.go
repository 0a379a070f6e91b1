package dictator

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Document is the JSON object form of a database record.
type Document map[string]interface{}

var (
	ErrNilObject  = errors.New("object is nil")
	ErrNotAStruct = errors.New("object is not a struct")

	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// ToDocument converts a struct (or pointer to one) into a Document. The
// markers of schema are combined with the dictator tags of obj's type.
// Document keys are the json tag names, or the Go field names when untagged;
// the json omitempty option is honoured.
func ToDocument(obj interface{}, schema Schema) (Document, error) {
	v, err := structValue(obj)
	if err != nil {
		return nil, err
	}
	return toDocument(v, SchemaOf(obj).Merge(schema)), nil
}

func toDocument(v reflect.Value, schema Schema) Document {
	doc := Document{}
	walkFields(v.Type(), func(index []int, field reflect.StructField, key string) {
		fv := v.FieldByIndex(index)
		if schema.Has(field.Name, IgnoreField) {
			return
		}
		if schema.Has(field.Name, IgnoreNullValue) && isNull(fv) {
			return
		}
		if omitEmpty(field) && isEmpty(fv) {
			return
		}
		doc[key] = documentValue(fv)
	})
	return doc
}

// ToObject copies the fields of doc into the struct out points to. Ignored
// fields are never touched; IgnoreNullValue fields keep their value when the
// document holds null for them.
func ToObject(doc Document, out interface{}, schema Schema) error {
	rv := reflect.ValueOf(out)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Wrap(ErrNilObject, "decoding target must be a non-nil pointer")
	}
	if rv.Elem().Kind() != reflect.Struct {
		return errors.Wrapf(ErrNotAStruct, "decoding into %s", rv.Elem().Type())
	}

	input := filterDocument(doc, rv.Elem().Type(), SchemaOf(out).Merge(schema))

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		Result:  out,
		TagName: "json",
		Squash:  true,
	})
	if err != nil {
		return errors.Wrap(err, "creating document decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return errors.Wrap(err, "decoding document")
	}
	return nil
}

// filterDocument returns a copy of doc without the keys the markers of t
// exclude, recursing into nested struct fields.
func filterDocument(doc map[string]interface{}, t reflect.Type, schema Schema) map[string]interface{} {
	input := make(map[string]interface{}, len(doc))
	for k, val := range doc {
		input[k] = val
	}

	walkFields(t, func(_ []int, field reflect.StructField, key string) {
		switch {
		case schema.Has(field.Name, IgnoreField):
			// mapstructure matches names case-insensitively, so must we.
			for k := range input {
				if strings.EqualFold(k, key) || strings.EqualFold(k, field.Name) {
					delete(input, k)
				}
			}
			return
		case schema.Has(field.Name, IgnoreNullValue):
			if val, ok := input[key]; ok && val == nil {
				delete(input, key)
				return
			}
		}

		if val, ok := input[key]; ok {
			input[key] = filterValue(val, field.Type)
		}
	})
	return input
}

// filterValue applies the markers of t to a decoded JSON value, following
// struct fields, slice and array elements and map values.
func filterValue(val interface{}, t reflect.Type) interface{} {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isMarshaler(t) {
		return val
	}

	switch t.Kind() {
	case reflect.Struct:
		switch nested := val.(type) {
		case map[string]interface{}:
			return filterDocument(nested, t, SchemaOf(reflect.Zero(t).Interface()))
		case Document:
			return filterDocument(nested, t, SchemaOf(reflect.Zero(t).Interface()))
		}
	case reflect.Slice, reflect.Array:
		if items, ok := val.([]interface{}); ok {
			out := make([]interface{}, len(items))
			for i, item := range items {
				out[i] = filterValue(item, t.Elem())
			}
			return out
		}
	case reflect.Map:
		var entries map[string]interface{}
		switch m := val.(type) {
		case map[string]interface{}:
			entries = m
		case Document:
			entries = m
		default:
			return val
		}
		out := make(map[string]interface{}, len(entries))
		for k, item := range entries {
			out[k] = filterValue(item, t.Elem())
		}
		return out
	}
	return val
}

func structValue(obj interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, ErrNilObject
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, ErrNilObject
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, errors.Wrapf(ErrNotAStruct, "converting %s", v.Type())
	}
	return v, nil
}

// walkFields visits the exported fields of t, flattening untagged embedded
// structs the way encoding/json does.
func walkFields(t reflect.Type, fn func(index []int, field reflect.StructField, key string)) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, skip := documentKey(field)
		if skip {
			continue
		}

		if field.Anonymous && field.IsExported() && field.Tag.Get("json") == "" {
			if ft := field.Type; ft.Kind() == reflect.Struct {
				walkFields(ft, func(index []int, inner reflect.StructField, key string) {
					fn(append([]int{i}, index...), inner, key)
				})
				continue
			}
		}

		if !field.IsExported() {
			continue
		}
		fn([]int{i}, field, name)
	}
}

func documentKey(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return field.Name, false
}

func omitEmpty(field reflect.StructField) bool {
	_, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			return true
		}
	}
	return false
}

// isEmpty follows the encoding/json definition of an empty value.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	default:
		return isNull(v)
	}
}

func isNull(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func isMarshaler(t reflect.Type) bool {
	return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) ||
		reflect.PointerTo(t).Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}

// carriesStructs reports whether values of t hold structs the markers apply
// to, directly or through pointers, slices, arrays and maps.
func carriesStructs(t reflect.Type) bool {
	if isMarshaler(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
		return carriesStructs(t.Elem())
	default:
		return false
	}
}

// documentValue converts nested structs into Documents, also inside slices,
// arrays and maps, and leaves every other value for the JSON encoder.
func documentValue(v reflect.Value) interface{} {
	if isNull(v) {
		return nil
	}
	if v.Kind() == reflect.Interface {
		return documentValue(v.Elem())
	}
	t := v.Type()
	if !carriesStructs(t) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Ptr:
		return documentValue(v.Elem())
	case reflect.Struct:
		return toDocument(v, SchemaOf(v.Interface()))
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = documentValue(v.Index(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = documentValue(iter.Value())
		}
		return out
	}
	return v.Interface()
}

// mapKey renders a map key the way encoding/json does.
func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if b, err := tm.MarshalText(); err == nil {
			return string(b)
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return fmt.Sprint(k.Interface())
}
