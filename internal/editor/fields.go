package editor

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindNumber   Kind = "number"
	KindIcon     Kind = "icon"
	KindGroup    Kind = "group"
	KindList     Kind = "list"
)

// long text fields get a textarea
var textareas = []string{"description", "sub_description", "quote"}

// Field is one node of the editor page. Groups and lists carry children in
// Fields; list entries are groups with Index set.
type Field struct {
	Path    string
	Name    string
	Label   string
	Kind    Kind
	Value   string
	Options []string
	Index   int
	Fields  []Field
}

// Fields lays out the form's current values in record declaration order.
func Fields(f *Form) []Field {
	return structFields(f.typ, "", map[string]any(f.values))
}

func structFields(t reflect.Type, prefix string, src map[string]any) []Field {
	out := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := model.JSONName(sf)
		if name == "" || !sf.IsExported() {
			continue
		}
		out = append(out, buildField(sf.Type, join(prefix, name), name, src[name]))
	}
	return out
}

func buildField(t reflect.Type, path, name string, v any) Field {
	fd := Field{Path: path, Name: name, Label: Label(name)}
	switch t.Kind() {
	case reflect.Struct:
		fd.Kind = KindGroup
		m, _ := asMap(v)
		fd.Fields = structFields(t, path, m)
	case reflect.Slice:
		fd.Kind = KindList
		items, _ := v.([]any)
		for i, item := range items {
			entryPath := join(path, fmt.Sprint(i))
			entry := Field{
				Path:  entryPath,
				Name:  fmt.Sprint(i),
				Label: fmt.Sprintf("#%d", i+1),
				Kind:  KindGroup,
				Index: i,
			}
			if t.Elem().Kind() == reflect.String {
				entry.Fields = []Field{{
					Path:  join(entryPath, ValueKey),
					Name:  ValueKey,
					Label: fd.Label,
					Kind:  KindText,
					Value: unwrapString(item),
				}}
			} else {
				m, _ := asMap(item)
				entry.Fields = structFields(t.Elem(), entryPath, m)
			}
			fd.Fields = append(fd.Fields, entry)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fd.Kind = KindNumber
		fd.Value = scalar(v)
	default:
		fd.Value = scalar(v)
		switch {
		case name == "icon":
			fd.Kind = KindIcon
			fd.Options = iconOptions(fd.Value)
		case slices.Contains(textareas, name):
			fd.Kind = KindTextarea
		default:
			fd.Kind = KindText
		}
	}
	return fd
}

// iconOptions lists the known icons, keeping an unknown current value
// selectable so opening a form never changes it.
func iconOptions(current string) []string {
	opts := slices.Clone(model.Icons)
	if current != "" && !slices.Contains(opts, current) {
		opts = append([]string{current}, opts...)
	}
	return opts
}

// Label turns a field name such as "cta_primary" into "Cta Primary".
func Label(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func scalar(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
