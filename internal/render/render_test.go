package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aselya-coder/PraktisiMengajar/internal/editor"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

func content(t *testing.T) *model.Content {
	t.Helper()
	c, err := model.Defaults()
	require.NoError(t, err)
	return c
}

func page(c *model.Content) model.PageData {
	return model.PageData{SiteTitle: "Praktisi Mengajar", Content: c}
}

func TestNewParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, p := range pages {
		assert.Contains(t, r.set, p)
	}
	assert.NotNil(t, r.set[PageHome].Lookup("section-hero"), "partials share the funcs of the root")
}

func TestNewWithBaseOnlyOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(
		`{{define "base"}}<html class="overlay">{{block "body" .}}{{end}}</html>{{end}}`+
			`{{define "admin"}}<html class="overlay-admin">{{block "main" .}}{{end}}</html>{{end}}`), 0o644))

	r, err := New(WithLayoutsDir(dir))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, page(content(t))))
	assert.Contains(t, buf.String(), `<html class="overlay">`)
	assert.Contains(t, buf.String(), `id="hero"`)
	assert.Contains(t, buf.String(), `class="icon`, "icon func still available to partials")
}

func TestHomeRendersEverySection(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	c := content(t)
	c.Hero.Title = "Belajar dari Praktisi"
	c.Footer.ServicesList = []string{"Kuliah Tamu", "Workshop"}

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, page(c)))
	out := buf.String()

	assert.Contains(t, out, "<title>Praktisi Mengajar</title>")
	assert.Contains(t, out, "Belajar dari Praktisi")
	for _, id := range []string{`id="hero"`, `id="about"`, `id="services"`, `id="process"`, `id="testimonials"`, `id="contact"`, `class="site-header"`, `class="site-footer"`} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "<li>Kuliah Tamu</li>")
	assert.NotContains(t, out, "preview-banner")
}

func TestHomeEscapesText(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	c := content(t)
	c.Hero.Title = "<script>alert(1)</script>"
	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, page(c)))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestUnknownIconFallsBackToStar(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	svc := model.Services{Items: []model.ServiceItem{{Title: "Consulting", Icon: "Briefcase"}}}
	html, err := r.SectionHTML(model.SectionServices, svc)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-icon="Star"`)
	assert.NotContains(t, string(html), "Briefcase")
}

func TestMarkdownDescriptions(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.SectionHTML(model.SectionAbout, model.About{Description: "Kami **berpengalaman**"})
	require.NoError(t, err)
	assert.Contains(t, string(html), "<strong>berpengalaman</strong>")

	// raw HTML in markdown is not passed through
	html, err = r.SectionHTML(model.SectionAbout, model.About{Description: "<iframe src=x></iframe>"})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<iframe")
}

func TestTestimonialStars(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.SectionHTML(model.SectionTestimonials, model.Testimonials{
		Items: []model.TestimonialItem{{Name: "A", Rating: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(html), `data-icon="Star"`))
}

func TestSectionRejectsUnknownKey(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	err = r.Section(&bytes.Buffer{}, "users", nil)
	assert.ErrorIs(t, err, model.ErrUnknownSection)
}

func TestPreviewRendersUnsavedRecord(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Preview(&buf, page(content(t)), model.SectionCTA, model.CTA{Title: "Unsaved CTA"})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "preview-banner")
	assert.Contains(t, out, "Unsaved CTA")
	assert.Contains(t, out, `data-section="cta"`)
	assert.NotContains(t, out, `id="hero"`)
}

func TestLayoutsDirOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "section-hero.html"),
		[]byte(`{{define "section-hero"}}<section id="hero" class="custom">{{.Title}} {{template "extra"}}</section>{{end}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "extra.html"),
		[]byte(`{{define "extra"}}<em>extra</em>{{end}}`), 0o644))

	r, err := New(WithLayoutsDir(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, r.Dir())

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, page(content(t))))
	assert.Contains(t, buf.String(), `class="custom"`)
	assert.Contains(t, buf.String(), "<em>extra</em>")
	assert.Contains(t, buf.String(), `id="about"`, "sections without an override use the embedded layout")
}

func TestReloadKeepsPreviousTemplatesOnError(t *testing.T) {
	dir := t.TempDir()
	r, err := New(WithLayoutsDir(dir))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.html"), []byte(`{{define "body"}}{{if}}{{end}}`), 0o644))
	require.Error(t, r.Reload())

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, page(content(t))))
	assert.Contains(t, buf.String(), `id="hero"`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.html"), []byte(`{{define "body"}}reloaded{{end}}`), 0o644))
	require.NoError(t, r.Reload())
	buf.Reset()
	require.NoError(t, r.Home(&buf, page(content(t))))
	assert.Contains(t, buf.String(), "reloaded")
}

func TestNewFailsOnBrokenOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(`{{define "base"}}`), 0o644))
	_, err := New(WithLayoutsDir(dir))
	assert.Error(t, err)
}

func TestAdminPages(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	base := AdminPage{SiteTitle: "Praktisi Mengajar", Sections: model.Sections()}

	t.Run("login", func(t *testing.T) {
		p := base
		p.PageTitle = "Sign in"
		p.Login = &LoginView{Username: "admin", Error: "Invalid username or password"}
		var buf bytes.Buffer
		require.NoError(t, r.Admin(&buf, PageLogin, p))
		assert.Contains(t, buf.String(), "Invalid username or password")
		assert.Contains(t, buf.String(), `value="admin"`)
		assert.NotContains(t, buf.String(), "admin-nav", "navigation needs a signed-in user")
	})

	t.Run("dashboard", func(t *testing.T) {
		p := base
		p.User = "Admin"
		p.PageTitle = "Dashboard"
		p.Notice = &Notice{OK: true, Message: "Content refreshed"}
		p.Dashboard = &DashboardView{Source: "remote", Loaded: true, Counts: Counts(content(t))}
		var buf bytes.Buffer
		require.NoError(t, r.Admin(&buf, PageDashboard, p))
		out := buf.String()
		assert.Contains(t, out, "notice-ok")
		assert.Contains(t, out, "Content refreshed")
		assert.Contains(t, out, "<strong>remote</strong>")
		assert.Contains(t, out, "Process Steps")
		assert.Contains(t, out, `href="/admin/sections/testimonials"`)
	})

	t.Run("editor", func(t *testing.T) {
		f, err := editor.NewForm(model.SectionFooter, model.Footer{ServicesList: []string{"A", "B"}})
		require.NoError(t, err)
		p := base
		p.User = "Admin"
		p.Active = model.SectionFooter
		p.Editor = &EditorView{Section: model.SectionFooter, Fields: editor.Fields(f)}
		var buf bytes.Buffer
		require.NoError(t, r.Admin(&buf, PageEditor, p))
		out := buf.String()
		assert.Contains(t, out, `name="services_list.1.value" value="B"`)
		assert.Contains(t, out, `value="append:services_list"`)
		assert.Contains(t, out, `value="remove:services_list:1"`)
		assert.Contains(t, out, `class="active"`)
	})

	err = r.Admin(&bytes.Buffer{}, PageHome, base)
	assert.ErrorIs(t, err, ErrUnknownPage)
}

func TestCounts(t *testing.T) {
	c := content(t)
	counts := Counts(c)
	require.Len(t, counts, 4)
	assert.Equal(t, len(c.Services.Items), counts[0].Value)
	assert.Nil(t, Counts(nil))
}
