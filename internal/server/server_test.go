package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aselya-coder/PraktisiMengajar/internal/auth"
	"github.com/aselya-coder/PraktisiMengajar/internal/cache"
	"github.com/aselya-coder/PraktisiMengajar/internal/editor"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/remote"
	"github.com/aselya-coder/PraktisiMengajar/internal/render"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

type fixture struct {
	srv    *httptest.Server
	store  *store.Store
	remote *remote.Store
	client *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	db, err := remote.Open("sqlite", filepath.Join(dir, "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureSchema(ctx))

	defaults, err := model.Defaults()
	require.NoError(t, err)
	seeded := defaults.Clone()
	seeded.Hero.Title = "Seeded hero"
	rows, err := seeded.Rows()
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, db.Upsert(ctx, row))
	}

	fc, err := cache.NewFile(filepath.Join(dir, "cache", "content.json"))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	st := store.New(db, fc, defaults,
		store.WithMetrics(store.NewMetrics(reg)))
	st.Load(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := auth.New([]auth.Credential{{Username: "admin", Name: "Admin", PasswordHash: string(hash)}}, "secret", time.Hour)
	require.NoError(t, err)

	r, err := render.New()
	require.NoError(t, err)

	static := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "site.css"), []byte("body{}"), 0o644))

	s := New(st, r, a,
		WithSite("Praktisi Mengajar", ""),
		WithStaticDir(static),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &fixture{srv: srv, store: st, remote: db, client: client}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (f *fixture) post(t *testing.T, path string, form url.Values, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	return f.do(t, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", cookie)
}

func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	resp, _ := f.post(t, "/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

// formFor posts the section exactly as the editor page would render it.
func formFor(t *testing.T, key model.SectionKey, record any) url.Values {
	t.Helper()
	vals, err := editor.ToFormShape(key, record)
	require.NoError(t, err)
	out := url.Values{}
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch c := v.(type) {
		case editor.Values:
			walk(prefix, map[string]any(c))
		case map[string]any:
			for k, x := range c {
				if prefix != "" {
					k = prefix + "." + k
				}
				walk(k, x)
			}
		case []any:
			for i, x := range c {
				walk(prefix+"."+strconv.Itoa(i), x)
			}
		default:
			out.Set(prefix, fmt.Sprint(c))
		}
	}
	walk("", vals)
	return out
}

func TestHomePage(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/", nil, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote", resp.Header.Get(SourceHeader))
	assert.Contains(t, body, "Seeded hero")

	resp, _ = f.do(t, http.MethodGet, "/nope", nil, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentAPI(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/content", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Content
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, f.store.Content(), &got)

	resp, body = f.do(t, http.MethodGet, "/api/content/Hero", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hero model.Hero
	require.NoError(t, json.Unmarshal([]byte(body), &hero))
	assert.Equal(t, "Seeded hero", hero.Title)

	resp, _ = f.do(t, http.MethodGet, "/api/content/users", nil, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/content", strings.NewReader("{}"), "application/json", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "the public API is read-only")
}

func TestHealthMetricsStatic(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/healthz", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","source":"remote","loaded":true}`, body)

	resp, body = f.do(t, http.MethodGet, "/metrics", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `sitecontent_loads_total{source="remote"} 1`)

	resp, body = f.do(t, http.MethodGet, "/static/site.css", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", body)
}

func TestAdminRequiresSession(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/admin", "/admin/sections/hero"} {
		resp, _ := f.do(t, http.MethodGet, path, nil, "", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/admin/login", resp.Header.Get("Location"))
	}

	resp, _ := f.do(t, http.MethodPut, "/admin/api/sections/hero", strings.NewReader(`{}`), "application/json", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bogus := &http.Cookie{Name: auth.CookieName, Value: "not-a-token"}
	resp, _ = f.do(t, http.MethodGet, "/admin", nil, "", bogus)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/admin/login", nil, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/admin/login"`)

	resp, body = f.post(t, "/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")

	cookie := f.login(t)
	resp, _ = f.do(t, http.MethodGet, "/admin/login", nil, "", cookie)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	resp, _ = f.post(t, "/admin/logout", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestDashboardAndRefresh(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	resp, body := f.do(t, http.MethodGet, "/admin", nil, "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>remote</strong>")
	assert.Contains(t, body, "Log out (Admin)")

	resp, body = f.post(t, "/admin/refresh", url.Values{}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Content refreshed from the database")

	require.NoError(t, f.remote.Close())
	resp, body = f.post(t, "/admin/refresh", url.Values{}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "showing cache content")
	assert.Equal(t, store.SourceCache, f.store.Source())
}

func TestEditorSave(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	resp, body := f.do(t, http.MethodGet, "/admin/sections/footer", nil, "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="services_list.0.value"`)

	footer := f.store.Content().Footer
	footer.ServicesList = []string{"A", "B"}
	form := formFor(t, model.SectionFooter, footer)
	form.Set("_action", "save")

	resp, body = f.post(t, "/admin/sections/footer", form, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "footer updated successfully")
	assert.Equal(t, []string{"A", "B"}, f.store.Content().Footer.ServicesList)

	// a fresh store over the same table sees the saved record
	defaults, err := model.Defaults()
	require.NoError(t, err)
	fresh := store.New(f.remote, nil, defaults)
	require.Equal(t, store.SourceRemote, fresh.Load(context.Background()).Source)
	assert.Equal(t, []string{"A", "B"}, fresh.Content().Footer.ServicesList)

	resp, body = f.post(t, "/admin/sections/footer", form, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No changes to save")
}

func TestEditorSaveFailure(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	hero := f.store.Content().Hero
	hero.Title = "Never stored"
	form := formFor(t, model.SectionHero, hero)
	form.Set("_action", "save")

	require.NoError(t, f.remote.Close())
	resp, body := f.post(t, "/admin/sections/hero", form, cookie)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Failed to update hero")
	assert.Equal(t, "Seeded hero", f.store.Content().Hero.Title, "reconciled from the cache")
}

func TestEditorListActions(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	form := formFor(t, model.SectionFooter, model.Footer{ServicesList: []string{"A", "B"}})

	form.Set("_action", "append:services_list")
	resp, body := f.post(t, "/admin/sections/footer", form, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="services_list.2.value" value=""`)

	form.Set("_action", "remove:services_list:0")
	resp, body = f.post(t, "/admin/sections/footer", form, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="services_list.0.value" value="B"`)
	assert.NotContains(t, body, `name="services_list.1.value"`)

	form.Set("_action", "remove:services_list:9")
	resp, _ = f.post(t, "/admin/sections/footer", form, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	form.Set("_action", "explode")
	resp, _ = f.post(t, "/admin/sections/footer", form, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// list actions never write
	assert.NotEqual(t, []string{"A", "B"}, f.store.Content().Footer.ServicesList)
}

func TestEditorPreview(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	cta := f.store.Content().CTA
	cta.Title = "Unsaved title"
	form := formFor(t, model.SectionCTA, cta)
	form.Set("_action", "preview")

	resp, body := f.post(t, "/admin/sections/cta", form, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "editor-preview")
	assert.Contains(t, body, "<h2>Unsaved title</h2>")
	assert.NotEqual(t, "Unsaved title", f.store.Content().CTA.Title)
}

func TestEditorUnknownSection(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	resp, _ := f.do(t, http.MethodGet, "/admin/sections/users", nil, "", cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSectionPut(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	resp, body := f.do(t, http.MethodPut, "/admin/api/sections/hero",
		strings.NewReader(`{"title":"From the API","benefits":["one"]}`), "application/json", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"section":"hero","status":"confirmed","message":"hero updated successfully"}`, body)
	assert.Equal(t, "From the API", f.store.Content().Hero.Title)

	resp, _ = f.do(t, http.MethodPut, "/admin/api/sections/hero",
		strings.NewReader(`{"headline":"x"}`), "application/json", cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/admin/api/sections/users",
		strings.NewReader(`{}`), "application/json", cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, f.remote.Close())
	resp, body = f.do(t, http.MethodPut, "/admin/api/sections/hero",
		strings.NewReader(`{"title":"Lost"}`), "application/json", cookie)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var got updateBody
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "cache", got.Source)
	assert.Equal(t, "From the API", f.store.Content().Hero.Title)
}
