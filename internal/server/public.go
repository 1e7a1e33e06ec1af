package server

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

// SourceHeader reports which source the served content came from.
const SourceHeader = "X-Content-Source"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.renderer.Home(&buf, s.page(s.store.Content())); err != nil {
		s.log.Error("failed to render home page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(SourceHeader, string(s.store.Source()))
	_, _ = buf.WriteTo(w)
}

type healthBody struct {
	Status string `json:"status"`
	Source string `json:"source"`
	Loaded bool   `json:"loaded"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status: "ok",
		Source: string(s.store.Source()),
		Loaded: s.store.Loaded(),
	})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(SourceHeader, string(s.store.Source()))
	writeJSON(w, http.StatusOK, s.store.Content())
}

func (s *Server) handleContentSection(w http.ResponseWriter, r *http.Request) {
	key, err := model.ParseSectionKey(r.PathValue("section"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rec, err := s.store.Section(key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrUnknownSection) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	w.Header().Set(SourceHeader, string(s.store.Source()))
	writeJSON(w, http.StatusOK, rec)
}
