// Package render executes the site and admin layouts. Layouts ship embedded
// in the binary; a layouts directory, when configured, overrides them file
// by file.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

//go:embed layouts
var embedded embed.FS

const (
	baseLayout  = "base.html"
	rootName    = "layouts"
	partialsDir = "partials"

	PageHome      = "home.html"
	PagePreview   = "preview.html"
	PageLogin     = "admin/login.html"
	PageDashboard = "admin/dashboard.html"
	PageEditor    = "admin/editor.html"
)

var pages = []string{PageHome, PagePreview, PageLogin, PageDashboard, PageEditor}

var ErrUnknownPage = errors.New("unknown page")

// Renderer holds one parsed template set per page.
type Renderer struct {
	dir    string
	log    *zap.Logger
	layout fs.FS
	md     goldmark.Markdown

	mu  sync.RWMutex
	set map[string]*template.Template
}

type Option func(*Renderer)

// WithLayoutsDir overlays layouts found in dir on the embedded ones.
func WithLayoutsDir(dir string) Option {
	return func(r *Renderer) { r.dir = strings.TrimSpace(dir) }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// New parses every page and fails if any layout is broken.
func New(opts ...Option) (*Renderer, error) {
	sub, err := fs.Sub(embedded, "layouts")
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		log:    zap.NewNop(),
		layout: sub,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("module", "render"))
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the overlay directory, or "" when only embedded layouts are used.
func (r *Renderer) Dir() string { return r.dir }

// Reload re-parses all layouts. On error the previous templates stay active.
func (r *Renderer) Reload() error {
	// the root must not share a name with any layout file, or parsing that
	// file would replace it and drop the funcs
	base := template.New(rootName).Funcs(r.funcs())
	if err := r.parse(base, baseLayout); err != nil {
		return err
	}
	partials, err := r.partials()
	if err != nil {
		return err
	}
	for _, p := range partials {
		if err := r.parse(base, p); err != nil {
			return err
		}
	}

	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone base layout for %s: %w", page, err)
		}
		if err := r.parse(t, page); err != nil {
			return err
		}
		set[page] = t
	}

	r.mu.Lock()
	r.set = set
	r.mu.Unlock()
	r.log.Debug("layouts parsed", zap.Int("pages", len(set)), zap.Int("partials", len(partials)), zap.String("dir", r.dir))
	return nil
}

func (r *Renderer) parse(t *template.Template, name string) error {
	data, err := r.readLayout(name)
	if err != nil {
		return err
	}
	if _, err := t.New(name).Parse(string(data)); err != nil {
		return fmt.Errorf("failed to parse layout %s: %w", name, err)
	}
	return nil
}

// readLayout prefers the overlay directory over the embedded copy.
func (r *Renderer) readLayout(name string) ([]byte, error) {
	if r.dir != "" {
		data, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read layout %s: %w", name, err)
		}
	}
	data, err := fs.ReadFile(r.layout, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", name, err)
	}
	return data, nil
}

// partials lists partial files from both sources, each name once.
func (r *Renderer) partials() ([]string, error) {
	seen := map[string]bool{}
	collect := func(fsys fs.FS) error {
		entries, err := fs.ReadDir(fsys, partialsDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".html") {
				seen[path.Join(partialsDir, e.Name())] = true
			}
		}
		return nil
	}
	if err := collect(r.layout); err != nil {
		return nil, fmt.Errorf("failed to list partials: %w", err)
	}
	if r.dir != "" {
		if err := collect(os.DirFS(r.dir)); err != nil {
			return nil, fmt.Errorf("failed to list partials in %s: %w", r.dir, err)
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": r.markdown,
		"icon":     model.IconOrDefault,
		"title": func(s string) string {
			return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
		},
		"inc": func(i int) int { return i + 1 },
		"stars": func(n int) []int {
			n = max(0, min(n, 5))
			return make([]int, n)
		},
	}
}

func (r *Renderer) markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(s), &buf); err != nil {
		r.log.Warn("failed to convert markdown", zap.Error(err))
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(buf.String())
}

func (r *Renderer) execute(w io.Writer, page, name string, data any) error {
	r.mu.RLock()
	t, ok := r.set[page]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	// render into a buffer so a failing template never leaves half a page
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s for %s: %w", name, page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Home renders the public landing page.
func (r *Renderer) Home(w io.Writer, page model.PageData) error {
	return r.execute(w, PageHome, "base", page)
}

// Section renders one section's partial with record.
func (r *Renderer) Section(w io.Writer, key model.SectionKey, record any) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownSection, key)
	}
	return r.execute(w, PageHome, "section-"+key.String(), record)
}

// PreviewData is handed to the preview page.
type PreviewData struct {
	model.PageData
	Section model.SectionKey
	HTML    template.HTML
}

// Preview renders record, typically unsaved editor state, through the same
// partial the public page uses.
func (r *Renderer) Preview(w io.Writer, page model.PageData, key model.SectionKey, record any) error {
	html, err := r.SectionHTML(key, record)
	if err != nil {
		return err
	}
	page.Preview = true
	return r.execute(w, PagePreview, "base", PreviewData{PageData: page, Section: key, HTML: html})
}

// SectionHTML renders a section partial to a string for embedding.
func (r *Renderer) SectionHTML(key model.SectionKey, record any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Section(&buf, key, record); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Admin renders one of the admin pages.
func (r *Renderer) Admin(w io.Writer, page string, data AdminPage) error {
	switch page {
	case PageLogin, PageDashboard, PageEditor:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	return r.execute(w, page, "admin", data)
}
