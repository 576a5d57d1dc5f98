package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/identity"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusOK).
		JSON(map[string]string{"hello": "world"}).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got["hello"] != "world" {
		t.Errorf("Body = %v", got)
	}
}

func TestJSONResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
		wantCode   string
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest, "bad_request"},
		{"unauthorized", UnauthorizedError("no token"), http.StatusUnauthorized, "unauthorized"},
		{"internal server error", InternalServerError("Something broke"), http.StatusInternalServerError, "internal"},
		{"not found", NotFoundError("Resource not found"), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("error = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestUnauthorizedSetsChallenge(t *testing.T) {
	w := httptest.NewRecorder()
	UnauthorizedError("no token").Write(w)
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("WWW-Authenticate header not set")
	}
}

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &core.ValidationError{Kind: core.InvalidAmount, Field: "amount", Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, "invalid_amount"},
		{"wrapped validation", fmt.Errorf("create: %w", &core.ValidationError{Kind: core.InvalidDate, Field: "date", Err: core.ErrInvalidDate}), http.StatusUnprocessableEntity, "invalid_date"},
		{"bad credentials", identity.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"expired token", fmt.Errorf("%w: token expired", identity.ErrNotAuthenticated), http.StatusUnauthorized, "unauthorized"},
		{"email in use", identity.ErrEmailInUse, http.StatusConflict, "email_in_use"},
		{"weak password", identity.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{"invalid email", identity.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
		{"not found", storage.ErrNotFound, http.StatusNotFound, "not_found"},
		{"external", &services.ExternalServiceError{Service: services.ServiceStore, Op: "create", Err: errors.New("disk full")}, http.StatusBadGateway, "service_unavailable"},
		{"bad window", core.ErrInvalidWindow, http.StatusBadRequest, "bad_request"},
		{"photo too large", services.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge, "photo_too_large"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errorResponse(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("error = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
