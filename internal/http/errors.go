package http

import (
	"errors"
	"net/http"

	"fintrack/internal/blob"
	"fintrack/internal/core"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var errMalformedBody = errors.New("request body must be JSON or form-encoded")

// bodyError keeps the size error and hides decoder details.
func bodyError(err error) error {
	if errors.Is(err, ErrBodyTooLarge) {
		return err
	}
	return errMalformedBody
}

// errorResponse maps a service error onto a status and envelope.
func errorResponse(err error) *ResponseBuilder {
	var ve *core.ValidationError
	var ese *services.ExternalServiceError

	switch {
	case errors.As(err, &ve):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			JSON(ErrorBody{Code: string(ve.Kind), Message: ve.Err.Error(), Field: ve.Field})
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrNotAuthenticated):
		return UnauthorizedError(err.Error())
	case errors.Is(err, identity.ErrEmailInUse):
		return ErrorResponse(http.StatusConflict, "email_in_use", err.Error())
	case errors.Is(err, identity.ErrWeakPassword):
		return ErrorResponse(http.StatusBadRequest, "weak_password", err.Error())
	case errors.Is(err, identity.ErrInvalidEmail):
		return ErrorResponse(http.StatusBadRequest, "invalid_email", err.Error())
	case errors.Is(err, services.ErrEmptyName):
		return ErrorResponse(http.StatusUnprocessableEntity, string(core.MissingField), err.Error())
	case errors.Is(err, services.ErrPhotoTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "photo_too_large", err.Error())
	case errors.Is(err, services.ErrUnsupportedImage):
		return ErrorResponse(http.StatusUnsupportedMediaType, "unsupported_image", err.Error())
	case errors.Is(err, blob.ErrEmptyUpload):
		return BadRequestError("photo body is empty")
	case errors.Is(err, ErrBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrInvalidWindow), errors.Is(err, core.ErrInvalidGranularity),
		errors.Is(err, core.ErrUnknownSortField), errors.Is(err, core.ErrInvalidType):
		return BadRequestError(err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("resource not found")
	case errors.As(err, &ese):
		return ErrorResponse(http.StatusBadGateway, "service_unavailable",
			"the "+ese.Service+" is unavailable, nothing was changed; please try again")
	default:
		return InternalServerError("unexpected error")
	}
}

// writeError logs err at a level matching its class and writes the response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponse(err)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)
	fields := []any{applog.FieldOperation, op, applog.FieldError, err.Error(), applog.FieldStatusCode, resp.statusCode}
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	resp.Write(w)
}
