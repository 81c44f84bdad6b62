package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/log"
	"organize/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response document.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the document returned for every failed request.
type ErrorBody struct {
	Error    string           `json:"error"`
	Field    string           `json:"field,omitempty"`
	Warnings []ledger.Warning `json:"warnings,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FromError maps a service error onto a status code and error document.
func FromError(err error) *JSONResponseBuilder {
	var confirm *services.ConfirmationRequiredError
	var verr *core.ValidationError
	switch {
	case errors.As(err, &confirm):
		return NewJSONResponse().Status(http.StatusConflict).Body(ErrorBody{
			Error:    "confirmation required",
			Warnings: confirm.Warnings,
		})
	case errors.As(err, &verr):
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(ErrorBody{
			Error: verr.Err.Error(),
			Field: verr.Field,
		})
	case errors.Is(err, core.ErrInvalidMonthKey):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrCardInUse):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNotInstallment), errors.Is(err, ledger.ErrNothingToTransfer):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	default:
		return InternalServerError("internal error")
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err.Error())
	}
	resp.Write(w)
}
