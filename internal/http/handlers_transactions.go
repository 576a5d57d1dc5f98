package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseListOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	list, err := s.deps.Transactions.List(r.Context(), userID(r.Context()), opts)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().JSON(map[string]any{"transactions": newTransactionViews(list)}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Transactions.Get(r.Context(), userID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().JSON(newTransactionView(tx)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpCreate, bodyError(err))
		return
	}

	tx, err := s.deps.Transactions.Create(r.Context(), userID(r.Context()), p.TransactionForm())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/v1/transactions/"+tx.ID).
		JSON(newTransactionView(tx)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpUpdate, bodyError(err))
		return
	}

	tx, err := s.deps.Transactions.Update(r.Context(), userID(r.Context()), r.PathValue("id"), p.TransactionForm())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().JSON(newTransactionView(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), userID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NoContent().Write(w)
}
