package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// SectionKey names one independently editable block of site content.
type SectionKey string

const (
	SectionHero         SectionKey = "hero"
	SectionAbout        SectionKey = "about"
	SectionServices     SectionKey = "services"
	SectionProcess      SectionKey = "process"
	SectionTestimonials SectionKey = "testimonials"
	SectionCTA          SectionKey = "cta"
	SectionHeader       SectionKey = "header"
	SectionFooter       SectionKey = "footer"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrRecordType     = errors.New("record does not match section")
)

var sectionKeys = []SectionKey{
	SectionHero,
	SectionAbout,
	SectionServices,
	SectionProcess,
	SectionTestimonials,
	SectionCTA,
	SectionHeader,
	SectionFooter,
}

// Sections returns every section key in page order.
func Sections() []SectionKey {
	return slices.Clone(sectionKeys)
}

func (k SectionKey) String() string { return string(k) }

func (k SectionKey) Valid() bool {
	return slices.Contains(sectionKeys, k)
}

// ParseSectionKey accepts a key case-insensitively.
func ParseSectionKey(s string) (SectionKey, error) {
	k := SectionKey(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	return k, nil
}

// NewRecord returns a pointer to a zero record of the section's type.
func NewRecord(key SectionKey) (any, error) {
	switch key {
	case SectionHero:
		return &Hero{}, nil
	case SectionAbout:
		return &About{}, nil
	case SectionServices:
		return &Services{}, nil
	case SectionProcess:
		return &Process{}, nil
	case SectionTestimonials:
		return &Testimonials{}, nil
	case SectionCTA:
		return &CTA{}, nil
	case SectionHeader:
		return &Header{}, nil
	case SectionFooter:
		return &Footer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// field returns a pointer to the section's field inside c.
func (c *Content) field(key SectionKey) (any, error) {
	switch key {
	case SectionHero:
		return &c.Hero, nil
	case SectionAbout:
		return &c.About, nil
	case SectionServices:
		return &c.Services, nil
	case SectionProcess:
		return &c.Process, nil
	case SectionTestimonials:
		return &c.Testimonials, nil
	case SectionCTA:
		return &c.CTA, nil
	case SectionHeader:
		return &c.Header, nil
	case SectionFooter:
		return &c.Footer, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// Section returns a deep copy of the section's record (a value, not a pointer).
func (c *Content) Section(key SectionKey) (any, error) {
	ptr, err := c.field(key)
	if err != nil {
		return nil, err
	}
	return deepCopy(reflect.ValueOf(ptr).Elem()).Interface(), nil
}

// SetSection replaces the whole record stored under key. record may be the
// section type or a pointer to it; it is copied, never aliased.
func (c *Content) SetSection(key SectionKey, record any) error {
	ptr, err := c.field(key)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(record)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("%w: %s got nil %T", ErrRecordType, key, record)
		}
		rv = rv.Elem()
	}
	dst := reflect.ValueOf(ptr).Elem()
	if !rv.IsValid() || rv.Type() != dst.Type() {
		return fmt.Errorf("%w: %s got %T", ErrRecordType, key, record)
	}
	dst.Set(deepCopy(rv))
	return nil
}

// Clone returns a deep copy of c.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := deepCopy(reflect.ValueOf(*c)).Interface().(Content)
	return &out
}

// deepCopy copies structs and slices recursively; the model holds nothing else
// that could alias.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			out.Field(i).Set(deepCopy(v.Field(i)))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	default:
		return v
	}
}
