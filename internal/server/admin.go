package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/auth"
	"github.com/aselya-coder/PraktisiMengajar/internal/editor"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/render"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

type userKey struct{}

func userFrom(ctx context.Context) auth.User {
	u, _ := ctx.Value(userKey{}).(auth.User)
	return u
}

// requireUser lets requests with a valid session through. Browsers are sent
// to the login page, API clients get 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.sessionUser(r)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/admin/api/") {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

func (s *Server) sessionUser(r *http.Request) (auth.User, error) {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return auth.User{}, err
	}
	return s.auth.Verify(c.Value)
}

func (s *Server) adminPage(r *http.Request, title string) render.AdminPage {
	return render.AdminPage{
		SiteTitle: s.siteTitle,
		PageTitle: title,
		User:      userFrom(r.Context()).DisplayName(),
		Sections:  model.Sections(),
	}
}

func (s *Server) renderAdmin(w http.ResponseWriter, status int, page string, data render.AdminPage) {
	var buf bytes.Buffer
	if err := s.renderer.Admin(&buf, page, data); err != nil {
		s.log.Error("failed to render admin page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessionUser(r); err == nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	p := s.adminPage(r, "Sign in")
	p.Login = &render.LoginView{}
	s.renderAdmin(w, http.StatusOK, render.PageLogin, p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	u, err := s.auth.Login(username, r.PostForm.Get("password"))
	if err != nil {
		p := s.adminPage(r, "Sign in")
		p.Login = &render.LoginView{Username: username, Error: "Invalid username or password"}
		if !s.auth.Enabled() {
			p.Login.Error = "No admin users are configured"
		}
		s.renderAdmin(w, http.StatusUnauthorized, render.PageLogin, p)
		return
	}
	token, exp, err := s.auth.Issue(u)
	if err != nil {
		s.log.Error("failed to issue session", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, exp, s.secureCookies))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearCookie(s.secureCookies))
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, status int, notice *render.Notice) {
	p := s.adminPage(r, "Dashboard")
	p.Notice = notice
	p.Dashboard = &render.DashboardView{
		Source: string(s.store.Source()),
		Loaded: s.store.Loaded(),
		Counts: render.Counts(s.store.Content()),
	}
	s.renderAdmin(w, status, render.PageDashboard, p)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.dashboard(w, r, http.StatusOK, nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res := s.store.Load(r.Context())
	notice := &render.Notice{OK: res.Source == store.SourceRemote}
	if notice.OK {
		notice.Message = "Content refreshed from the database"
	} else {
		notice.Message = fmt.Sprintf("Database unavailable, showing %s content", res.Source)
	}
	s.dashboard(w, r, http.StatusOK, notice)
}

func (s *Server) sectionKey(w http.ResponseWriter, r *http.Request) (model.SectionKey, bool) {
	key, err := model.ParseSectionKey(r.PathValue("section"))
	if err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return key, true
}

func (s *Server) editorPage(w http.ResponseWriter, r *http.Request, status int, form *editor.Form, notice *render.Notice, preview template.HTML) {
	key := form.Key()
	p := s.adminPage(r, "Edit "+editor.Label(key.String()))
	p.Active = key
	p.Notice = notice
	p.Editor = &render.EditorView{
		Section: key,
		Fields:  editor.Fields(form),
		Dirty:   form.Dirty(),
		Preview: preview,
	}
	s.renderAdmin(w, status, render.PageEditor, p)
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sectionKey(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Section(key)
	if err == nil {
		var form *editor.Form
		if form, err = editor.NewForm(key, rec); err == nil {
			s.editorPage(w, r, http.StatusOK, form, nil, "")
			return
		}
	}
	s.log.Error("failed to open editor", zap.Stringer("section", key), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// handleEditorPost applies one editor action. The posted fields are the
// current form state; the stored record is the baseline for dirty tracking.
func (s *Server) handleEditorPost(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sectionKey(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	rec, err := s.store.Section(key)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	form, err := editor.NewFormFromPost(key, rec, r.PostForm)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	action := r.PostForm.Get("_action")
	var (
		status  = http.StatusOK
		notice  *render.Notice
		preview template.HTML
	)
	switch {
	case action == "" || action == "save":
		res, err := form.Submit(r.Context(), s.store)
		switch {
		case errors.Is(err, editor.ErrNotDirty):
			notice = &render.Notice{OK: true, Message: "No changes to save"}
		case err != nil:
			status = http.StatusUnprocessableEntity
			notice = &render.Notice{Message: fmt.Sprintf("Failed to update %s: %v", key, err)}
		default:
			notice = &render.Notice{OK: res.OK(), Message: res.Message()}
			if !res.OK() {
				status = http.StatusBadGateway
			}
		}
	case action == "preview":
		rec, err := form.Record()
		if err == nil {
			preview, err = s.renderer.SectionHTML(key, rec)
		}
		if err != nil {
			status = http.StatusUnprocessableEntity
			notice = &render.Notice{Message: fmt.Sprintf("Cannot preview %s: %v", key, err)}
		}
	case strings.HasPrefix(action, "append:"):
		if err := form.Append(strings.TrimPrefix(action, "append:")); err != nil {
			status = http.StatusBadRequest
			notice = &render.Notice{Message: err.Error()}
		}
	case strings.HasPrefix(action, "remove:"):
		if err := removeAction(form, strings.TrimPrefix(action, "remove:")); err != nil {
			status = http.StatusBadRequest
			notice = &render.Notice{Message: err.Error()}
		}
	default:
		status = http.StatusBadRequest
		notice = &render.Notice{Message: fmt.Sprintf("unknown action %q", action)}
	}
	s.editorPage(w, r, status, form, notice, preview)
}

// removeAction handles "<path>:<index>".
func removeAction(form *editor.Form, arg string) error {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return fmt.Errorf("%w: %q", editor.ErrPath, arg)
	}
	index, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		return fmt.Errorf("%w: %q", editor.ErrPath, arg)
	}
	return form.Remove(arg[:i], index)
}

type updateBody struct {
	Section string `json:"section"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// handleSectionPut replaces a section from a JSON record.
func (s *Server) handleSectionPut(w http.ResponseWriter, r *http.Request) {
	key, err := model.ParseSectionKey(r.PathValue("section"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rec, err := model.NewRecord(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode %s: %v", key, err))
		return
	}

	res := s.store.Update(r.Context(), key, rec)
	body := updateBody{Section: key.String(), Status: res.Status.String(), Message: res.Message()}
	status := http.StatusOK
	switch res.Status {
	case store.StatusRejected:
		status = http.StatusBadRequest
	case store.StatusFailed:
		status = http.StatusBadGateway
		if res.Reconciled != nil {
			body.Source = string(res.Reconciled.Source)
		}
	}
	writeJSON(w, status, body)
}
