package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed defaults.yaml
var bundledDefaults []byte

var parseBundled = sync.OnceValues(func() (*Content, error) {
	return ParseDefaults(bundledDefaults)
})

// Defaults returns a fresh copy of the dataset shipped with the binary.
func Defaults() (*Content, error) {
	c, err := parseBundled()
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// ParseDefaults parses a YAML document shaped like Content.
func ParseDefaults(data []byte) (*Content, error) {
	var c Content
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("error unmarshalling default content: %w", err)
	}
	return &c, nil
}

// LoadDefaults reads defaults from path, or returns the bundled dataset when
// path is empty.
func LoadDefaults(path string) (*Content, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading defaults file %s: %w", path, err)
	}
	return ParseDefaults(data)
}

// Coverage describes how a row set mapped onto the section enumeration.
type Coverage struct {
	// Missing lists sections that had no row and were filled from defaults.
	Missing []SectionKey
	// Ignored lists row keys outside the enumeration.
	Ignored []string
}

// FromRows assembles content from hosted rows. Each row is decoded over the
// matching default record; sections without a row keep their defaults and
// are reported in Coverage.Missing. Malformed data fails the whole set.
func FromRows(rows []Row, defaults *Content) (*Content, Coverage, error) {
	out := defaults.Clone()
	if out == nil {
		out = &Content{}
	}
	var cov Coverage
	seen := make(map[SectionKey]bool, len(sectionKeys))
	for _, row := range rows {
		key, err := ParseSectionKey(row.Key)
		if err != nil {
			cov.Ignored = append(cov.Ignored, row.Key)
			continue
		}
		if err := decodeSection(out, key, row.Data, defaults); err != nil {
			return nil, Coverage{}, fmt.Errorf("section %s: %w", key, err)
		}
		seen[key] = true
	}
	for _, key := range sectionKeys {
		if !seen[key] {
			cov.Missing = append(cov.Missing, key)
		}
	}
	return out, cov, nil
}

// Decode parses a serialized Content document and applies the same defaulting
// as FromRows.
func Decode(data []byte, defaults *Content) (*Content, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if sections == nil {
		return nil, fmt.Errorf("decode content: empty document")
	}
	out := defaults.Clone()
	if out == nil {
		out = &Content{}
	}
	for _, key := range sectionKeys {
		raw, ok := sections[key.String()]
		if !ok {
			continue
		}
		if err := decodeSection(out, key, raw, defaults); err != nil {
			return nil, fmt.Errorf("section %s: %w", key, err)
		}
	}
	return out, nil
}

// decodeSection replaces dst's record for key with raw. Top-level fields that
// are absent or null in raw take the default record's value.
func decodeSection(dst *Content, key SectionKey, raw []byte, defaults *Content) error {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return err
	}
	rec, err := NewRecord(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return err
	}
	if defaults != nil {
		def, err := defaults.Section(key)
		if err != nil {
			return err
		}
		fillAbsent(reflect.ValueOf(rec).Elem(), reflect.ValueOf(def), present)
	}
	return dst.SetSection(key, rec)
}

func fillAbsent(dst, def reflect.Value, present map[string]json.RawMessage) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		name := JSONName(t.Field(i))
		if name == "" {
			continue
		}
		if raw, ok := present[name]; ok && string(raw) != "null" {
			continue
		}
		dst.Field(i).Set(deepCopy(def.Field(i)))
	}
}

// JSONName returns the wire name of a struct field, or "" when it is skipped.
func JSONName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
