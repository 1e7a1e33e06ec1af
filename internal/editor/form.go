package editor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

var (
	ErrPath     = errors.New("invalid form path")
	ErrNotDirty = errors.New("no changes to save")
)

// Updater applies a section record; *store.Store implements it.
type Updater interface {
	Update(ctx context.Context, key model.SectionKey, record any) store.UpdateResult
}

type blankFunc func(n int, entry map[string]any)

func withIcon(icon string) blankFunc {
	return func(_ int, entry map[string]any) { entry["icon"] = icon }
}

// blanks overrides the zero entry appended to a list. Keys are list paths
// with indices written as "*".
var blanks = map[model.SectionKey]map[string]blankFunc{
	model.SectionAbout: {
		"values": withIcon("Shield"),
	},
	model.SectionServices: {
		"items":    withIcon("Briefcase"),
		"benefits": withIcon("Star"),
	},
	model.SectionProcess: {
		"steps": func(n int, entry map[string]any) {
			entry["number"] = "0" + strconv.Itoa(n+1)
			entry["icon"] = "CheckCircle"
		},
	},
	model.SectionTestimonials: {
		"items": func(_ int, entry map[string]any) { entry["rating"] = 5 },
	},
}

// Form is the editable state of one section: the baseline it was opened
// with and the current, possibly unsaved, values.
type Form struct {
	key     model.SectionKey
	typ     reflect.Type
	initial Values
	values  Values
}

// NewForm opens a form on record, which becomes the clean baseline.
func NewForm(key model.SectionKey, record any) (*Form, error) {
	vals, err := ToFormShape(key, record)
	if err != nil {
		return nil, err
	}
	ptr, err := model.NewRecord(key)
	if err != nil {
		return nil, err
	}
	return &Form{
		key:     key,
		typ:     reflect.TypeOf(ptr).Elem(),
		initial: vals,
		values:  cloneValues(vals),
	}, nil
}

// NewFormFromPost rebuilds a form from a submitted page: record is the
// baseline and posted holds the current values.
func NewFormFromPost(key model.SectionKey, record any, posted url.Values) (*Form, error) {
	f, err := NewForm(key, record)
	if err != nil {
		return nil, err
	}
	f.values = ParseValues(posted)
	return f, nil
}

func (f *Form) Key() model.SectionKey { return f.key }

// Values returns a copy of the current values.
func (f *Form) Values() Values { return cloneValues(f.values) }

func (f *Form) Get(path string) (any, bool) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	return get(map[string]any(f.values), segs)
}

// Set stores value at path. The path must name a field of the record type.
func (f *Form) Set(path string, value any) error {
	segs, err := f.resolve(path)
	if err != nil {
		return err
	}
	return put(f.values, segs, value)
}

// Append adds a blank entry at the end of the list at path.
func (f *Form) Append(path string) error {
	segs, err := f.resolve(path)
	if err != nil {
		return err
	}
	t, _ := typeAt(f.typ, segs)
	if t.Kind() != reflect.Slice {
		return fmt.Errorf("%w: %s is not a list", ErrPath, path)
	}
	list, err := f.list(segs)
	if err != nil {
		return err
	}
	entry := blankEntry(t.Elem())
	if m, ok := entry.(map[string]any); ok {
		if fn := blanks[f.key][pattern(segs)]; fn != nil {
			fn(len(list), m)
		}
	}
	return put(f.values, segs, append(slices.Clip(list), entry))
}

// Remove deletes the entry at index from the list at path.
func (f *Form) Remove(path string, index int) error {
	segs, err := f.resolve(path)
	if err != nil {
		return err
	}
	list, err := f.list(segs)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: %s has no entry %d", ErrPath, path, index)
	}
	return put(f.values, segs, slices.Delete(slices.Clone(list), index, index+1))
}

// Dirty reports whether the current values differ from the baseline once both
// are normalized. Values that cannot be converted count as changed.
func (f *Form) Dirty() bool {
	current, err := canonical(f.key, f.values)
	if err != nil {
		return true
	}
	return !cmp.Equal(current, f.initial)
}

// Record converts the current values to the section record.
func (f *Form) Record() (any, error) {
	return ToStorageShape(f.key, f.values)
}

// Reset discards unsaved changes.
func (f *Form) Reset() {
	f.values = cloneValues(f.initial)
}

// Submit saves a dirty form through u. A confirmed update makes the submitted
// values the new baseline; any other outcome leaves the form dirty.
func (f *Form) Submit(ctx context.Context, u Updater) (store.UpdateResult, error) {
	if !f.Dirty() {
		return store.UpdateResult{}, ErrNotDirty
	}
	rec, err := f.Record()
	if err != nil {
		return store.UpdateResult{}, err
	}
	res := u.Update(ctx, f.key, rec)
	if res.OK() {
		if vals, err := ToFormShape(f.key, rec); err == nil {
			f.initial = vals
		}
	}
	return res, nil
}

func (f *Form) resolve(path string) ([]string, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := typeAt(f.typ, segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func (f *Form) list(segs []string) ([]any, error) {
	v, ok := get(map[string]any(f.values), segs)
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T, not a list", ErrPath, strings.Join(segs, "."), v)
	}
	return list, nil
}

// ParseValues turns posted dotted-path fields into form values. Fields whose
// name starts with "_" are control fields and skipped. Numeric path segments
// become list positions, compacted in numeric order.
func ParseValues(posted url.Values) Values {
	root := make(map[string]any)
	for name, vs := range posted {
		if strings.HasPrefix(name, "_") {
			continue
		}
		segs, err := splitPath(name)
		if err != nil {
			continue
		}
		val := ""
		if len(vs) > 0 {
			val = vs[len(vs)-1]
		}
		insert(root, segs, val)
	}
	return Values(compact(root).(map[string]any))
}

func insert(m map[string]any, segs []string, val string) {
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	last := segs[len(segs)-1]
	if _, isGroup := m[last].(map[string]any); isGroup {
		return
	}
	m[last] = val
}

// compact converts maps keyed only by indices into lists.
func compact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = compact(child)
	}
	if len(m) == 0 {
		return m
	}
	idx := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return m
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	list := make([]any, 0, len(idx))
	for _, i := range idx {
		list = append(list, m[strconv.Itoa(i)])
	}
	return list
}

func canonical(key model.SectionKey, vals Values) (Values, error) {
	rec, err := ToStorageShape(key, vals)
	if err != nil {
		return nil, err
	}
	return ToFormShape(key, rec)
}

func splitPath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrPath, path)
		}
	}
	return segs, nil
}

func pattern(segs []string) string {
	out := make([]string, len(segs))
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			s = "*"
		}
		out[i] = s
	}
	return strings.Join(out, ".")
}

func get(root any, segs []string) (any, bool) {
	cur := root
	for _, seg := range segs {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Values:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// put writes val at segs, creating missing groups along the way.
func put(root Values, segs []string, val any) error {
	var cur any = map[string]any(root)
	for i, seg := range segs {
		last := i == len(segs)-1
		switch c := cur.(type) {
		case map[string]any:
			if last {
				c[seg] = val
				return nil
			}
			next, ok := c[seg]
			if !ok || next == nil {
				if _, err := strconv.Atoi(segs[i+1]); err == nil {
					return fmt.Errorf("%w: %s has no entry %s", ErrPath, seg, segs[i+1])
				}
				next = make(map[string]any)
				c[seg] = next
			}
			cur = next
		case []any:
			n, err := strconv.Atoi(seg)
			if err != nil || n < 0 || n >= len(c) {
				return fmt.Errorf("%w: no entry %s", ErrPath, seg)
			}
			if last {
				c[n] = val
				return nil
			}
			cur = c[n]
		default:
			return fmt.Errorf("%w: %s is not a group", ErrPath, strings.Join(segs[:i], "."))
		}
	}
	return nil
}

func cloneValues(v Values) Values {
	if v == nil {
		return nil
	}
	return Values(cloneAny(map[string]any(v)).(map[string]any))
}

func cloneAny(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, x := range c {
			out[k] = cloneAny(x)
		}
		return out
	case Values:
		return cloneAny(map[string]any(c))
	case []any:
		out := make([]any, len(c))
		for i, x := range c {
			out[i] = cloneAny(x)
		}
		return out
	default:
		return v
	}
}
