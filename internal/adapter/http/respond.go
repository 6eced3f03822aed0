package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind"`
	Details []string          `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError maps a domain error to its status code. Internal errors are
// logged and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	respondErrorStatus(w, r, log, err, 0)
}

// respondErrorStatus is respondError with a fixed status code when status is non-zero.
func respondErrorStatus(w http.ResponseWriter, r *http.Request, log logger.Logger, err error, status int) {
	kind := domain.KindOf(err)
	if status == 0 {
		status = statusFor(kind)
	}

	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}
	var de *domain.Error
	if errors.As(err, &de) {
		resp.Error = de.Message
		resp.Details = de.Details
	}

	if kind == domain.KindInternal {
		log.Error("request_failed", "Request failed", middleware.GetReqID(r.Context()), map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}, err)
		resp.Error = "Internal server error"
		resp.Details = nil
	}

	respondJSON(w, status, resp)
}

func respondValidation(w http.ResponseWriter, message string, errs []ValidationError) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  message,
		Kind:   string(domain.KindValidation),
		Errors: errs,
	})
}

// decode reads a JSON body into dst and runs struct validation. On failure
// the response is already written and false is returned.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		respondValidation(w, "Invalid request body", nil)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			respondValidation(w, "Validation failed", nil)
			return false
		}
		out := make([]ValidationError, 0, len(vErrs))
		for _, vErr := range vErrs {
			out = append(out, ValidationError{Field: fieldPath(vErr), Message: validationMessage(vErr)})
		}
		respondValidation(w, "Validation failed", out)
		return false
	}
	return true
}

// fieldPath drops the top-level struct name from the namespace, e.g. items[0].quantity.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email address"
	}
	return fmt.Sprintf("failed the %s check", fe.Tag())
}
