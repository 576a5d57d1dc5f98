package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSummaryParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}

	summary, err := s.deps.Analytics.Summary(r.Context(), userID(r.Context()), params.Window, params.Granularity)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().JSON(newSummaryView(summary)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSummaryParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}

	dash, err := s.deps.Analytics.Dashboard(r.Context(), userID(r.Context()), params.Window)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().JSON(newDashboardView(dash)).Write(w)
}

// handleStream sends the user's records as Server-Sent Events: one
// "snapshot" event on connect and one after every change. With a window
// query parameter each event also carries the summary for that window.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	withSummary := r.URL.Query().Has("window")
	params, err := ParseSummaryParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(s.streams, cancel)()

	session, err := services.OpenSession(ctx, userID(ctx), s.deps.Profiles, s.deps.Feed)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	defer session.Close()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		snap := session.Snapshot()
		view := newSnapshotView(snap)
		if withSummary {
			sv := newSummaryView(session.Summary(params.Window, params.Granularity))
			view.Summary = &sv
		}
		payload, err := json.Marshal(view)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Version, payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	logger := applog.FromContext(ctx).WithComponent(applog.ComponentHTTP)
	if err := send(); err != nil {
		logger.WarnContext(ctx, "Stream write failed", applog.FieldError, err.Error())
		return
	}

	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.deps.KeepAlive)
		_, ok := session.Next(waitCtx)
		timedOut := errors.Is(waitCtx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case ok:
			err = send()
		case ctx.Err() != nil:
			return
		case timedOut:
			if _, err = fmt.Fprint(w, ": keep-alive\n\n"); err == nil {
				err = rc.Flush()
			}
		default:
			// Subscription closed by the hub.
			return
		}
		if err != nil {
			logger.DebugContext(ctx, "Stream closed", applog.FieldError, err.Error())
			return
		}
	}
}
