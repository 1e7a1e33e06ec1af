// Package editor maps section records to editable form values and back.
//
// Form values are nested maps addressed by dotted paths such as
// "items.1.features.0.value". Lists of plain strings are edited as lists of
// {"value": ...} entries so every list row has the same shape.
package editor

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-viper/mapstructure/v2"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

// Values is the form representation of one section record.
type Values map[string]any

// ValueKey is the field name used for entries of plain-string lists.
const ValueKey = "value"

// ToFormShape converts a section record (value or pointer) to form values.
// Every list becomes a non-nil []any.
func ToFormShape(key model.SectionKey, record any) (Values, error) {
	var probe model.Content
	if err := probe.SetSection(key, record); err != nil {
		return nil, err
	}
	rec, err := probe.Section(key)
	if err != nil {
		return nil, err
	}
	return Values(toForm(reflect.ValueOf(rec)).(map[string]any)), nil
}

// ToStorageShape converts form values back to the section record type,
// returned as a value. Numeric fields accept strings, absent fields take the
// zero value and every list is non-nil.
func ToStorageShape(key model.SectionKey, values Values) (any, error) {
	ptr, err := model.NewRecord(key)
	if err != nil {
		return nil, err
	}
	t := reflect.TypeOf(ptr).Elem()
	plain := fromForm(t, map[string]any(values))

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           ptr,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(plain); err != nil {
		return nil, fmt.Errorf("decode %s form: %w", key, err)
	}
	rv := reflect.ValueOf(ptr).Elem()
	normalizeLists(rv)
	return rv.Interface(), nil
}

func toForm(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name := model.JSONName(t.Field(i))
			if name == "" || !t.Field(i).IsExported() {
				continue
			}
			out[name] = toForm(v.Field(i))
		}
		return out
	case reflect.Slice:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			el := v.Index(i)
			if el.Kind() == reflect.String {
				out = append(out, map[string]any{ValueKey: el.String()})
				continue
			}
			out = append(out, toForm(el))
		}
		return out
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int())
	default:
		return v.Interface()
	}
}

// fromForm undoes the string-list wrapping so the result decodes into t.
func fromForm(t reflect.Type, v any) any {
	switch t.Kind() {
	case reflect.Struct:
		src, ok := asMap(v)
		if !ok {
			return v
		}
		out := make(map[string]any, len(src))
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := model.JSONName(f)
			if name == "" {
				continue
			}
			if fv, ok := src[name]; ok {
				out[name] = fromForm(f.Type, fv)
			}
		}
		return out
	case reflect.Slice:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		if t.Elem().Kind() == reflect.String {
			out := make([]string, 0, len(items))
			for _, item := range items {
				out = append(out, unwrapString(item))
			}
			return out
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, fromForm(t.Elem(), item))
		}
		return out
	default:
		return v
	}
}

func unwrapString(item any) string {
	if m, ok := asMap(item); ok {
		item = m[ValueKey]
	}
	switch s := item.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Values:
		return m, true
	}
	return nil, false
}

func normalizeLists(v reflect.Value) {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				normalizeLists(v.Field(i))
			}
		}
	case reflect.Slice:
		if v.IsNil() {
			v.Set(reflect.MakeSlice(v.Type(), 0, 0))
			return
		}
		for i := 0; i < v.Len(); i++ {
			normalizeLists(v.Index(i))
		}
	}
}

// typeAt resolves the Go type addressed by path segments below t.
func typeAt(t reflect.Type, segs []string) (reflect.Type, error) {
	for _, seg := range segs {
		switch t.Kind() {
		case reflect.Struct:
			f, ok := fieldByJSONName(t, seg)
			if !ok {
				return nil, fmt.Errorf("%w: no field %q", ErrPath, seg)
			}
			t = f.Type
		case reflect.Slice:
			if _, err := strconv.Atoi(seg); err != nil {
				return nil, fmt.Errorf("%w: %q is not a list index", ErrPath, seg)
			}
			t = t.Elem()
		case reflect.String:
			if seg == ValueKey {
				continue
			}
			return nil, fmt.Errorf("%w: %q below a text field", ErrPath, seg)
		default:
			return nil, fmt.Errorf("%w: %q below a scalar field", ErrPath, seg)
		}
	}
	return t, nil
}

func fieldByJSONName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if model.JSONName(t.Field(i)) == name {
			return t.Field(i), true
		}
	}
	return reflect.StructField{}, false
}

// blankEntry returns the form value appended by Append for a list of elem.
func blankEntry(elem reflect.Type) any {
	if elem.Kind() == reflect.String {
		return map[string]any{ValueKey: ""}
	}
	return toForm(reflect.New(elem).Elem())
}

// ListPaths returns the repeatable lists of a section in declaration order,
// with list indices written as "*".
func ListPaths(key model.SectionKey) ([]string, error) {
	ptr, err := model.NewRecord(key)
	if err != nil {
		return nil, err
	}
	var out []string
	collectLists(reflect.TypeOf(ptr).Elem(), "", &out)
	return out, nil
}

func collectLists(t reflect.Type, prefix string, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := model.JSONName(f)
		if name == "" {
			continue
		}
		path := join(prefix, name)
		switch f.Type.Kind() {
		case reflect.Struct:
			collectLists(f.Type, path, out)
		case reflect.Slice:
			*out = append(*out, path)
			if f.Type.Elem().Kind() == reflect.Struct {
				collectLists(f.Type.Elem(), path+".*", out)
			}
		}
	}
}
