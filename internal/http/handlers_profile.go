package http

import (
	"io"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.Profiles.Profile(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(newProfileView(profile)).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, bodyError(err))
		return
	}

	profile, err := s.deps.Profiles.UpdateName(r.Context(), userID(r.Context()), p.Get("name"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(newProfileView(profile)).Write(w)
}

// handleUploadPhoto takes the raw image bytes as the request body.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, services.MaxPhotoBytes+1))
	if err != nil {
		writeError(w, r, applog.OpUpload, bodyError(err))
		return
	}

	url, err := s.deps.Profiles.UploadPhoto(r.Context(), userID(r.Context()), data, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, applog.OpUpload, err)
		return
	}
	NewJSONResponse().JSON(map[string]string{"photoURL": url}).Write(w)
}

// handleCategories lists the candidates of one type, expense by default,
// with the custom-entry sentinel last.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t := core.Expense
	if v := r.URL.Query().Get("type"); v != "" {
		parsed, err := core.ParseTransactionType(v)
		if err != nil {
			writeError(w, r, applog.OpRead, err)
			return
		}
		t = parsed
	}

	list, err := s.deps.Profiles.Categories(r.Context(), userID(r.Context()), t)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(categoriesView{
		Type:       t.String(),
		Categories: list,
		Sentinel:   core.CustomSentinel,
	}).Write(w)
}
