package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpSignUp, bodyError(err))
		return
	}

	session, err := s.deps.Auth.SignUp(r.Context(), p.Get("name"), p.Get("email"), p.GetRaw("password"))
	if err != nil {
		writeError(w, r, applog.OpSignUp, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(session).Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpSignIn, bodyError(err))
		return
	}

	session, err := s.deps.Auth.SignIn(r.Context(), p.Get("email"), p.GetRaw("password"))
	if err != nil {
		writeError(w, r, applog.OpSignIn, err)
		return
	}
	NewJSONResponse().JSON(session).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.SignOut(r.Context(), sessionToken(r.Context())); err != nil {
		writeError(w, r, applog.OpSignOut, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, bodyError(err))
		return
	}

	if err := s.deps.Auth.ChangePassword(r.Context(), userID(r.Context()), p.GetRaw("password")); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NoContent().Write(w)
}
