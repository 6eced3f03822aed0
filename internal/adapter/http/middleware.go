package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/auth"
	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

func LoggingMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("http_request", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("http_response", "Request completed", requestID, map[string]interface{}{
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

func RecoveryMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic_recovered", "Panic recovered", middleware.GetReqID(r.Context()), map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
					}, fmt.Errorf("%v", err))
					respondJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "Internal server error",
						Kind:  string(domain.KindInternal),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier turns a raw bearer token into the caller's principal.
type TokenVerifier interface {
	Verify(raw string) (domain.Principal, error)
}

// AuthMiddleware requires a valid bearer token. Browsers cannot set headers on
// a WebSocket handshake, so the token may also come in the token query parameter.
func AuthMiddleware(verifier TokenVerifier, logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				respondJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: "Authorization token is required",
					Kind:  string(domain.KindUnauthorized),
				})
				return
			}

			p, err := verifier.Verify(raw)
			if err != nil {
				logger.Debug("auth_rejected", "Token rejected", middleware.GetReqID(r.Context()), map[string]interface{}{
					"reason": err.Error(),
				})
				respondJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: "Invalid or expired token",
					Kind:  string(domain.KindUnauthorized),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// principal returns the caller set by AuthMiddleware.
func principal(r *http.Request) domain.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// checkBodyID rejects a body id that names someone other than the caller.
func checkBodyID(p domain.Principal, field, id string) error {
	if id != "" && id != p.UserID {
		return domain.Unauthorized("%s does not match the authenticated user", field)
	}
	return nil
}
