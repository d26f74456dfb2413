package api

import (
	"context"
	"net/http"
	"strings"

	"miniapp_profile/internal/telegram"
)

type ctxKey int

const principalKey ctxKey = iota

// initDataFrom pulls the untouched init-data wire string out of the request.
// The transport contract matters here: the value is taken from the header
// as-is, never re-decoded, so the validator sees exactly what the Telegram
// client produced.
func initDataFrom(r *http.Request) string {
	if v := r.Header.Get("X-Telegram-Init-Data"); v != "" {
		return v
	}
	// Mini App SDKs also send "Authorization: tma <init data>".
	if auth := r.Header.Get("Authorization"); len(auth) > 4 && strings.EqualFold(auth[:4], "tma ") {
		return auth[4:]
	}
	return ""
}

// requireAuth validates init data once per request and stores the principal
// in the context. Every failure is a 401: a forged or expired payload does
// not become valid by retrying.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := initDataFrom(r)
		if raw == "" {
			s.metrics.AuthFailure("missing")
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "init data required")
			return
		}

		principal, err := s.validator.Validate(raw)
		if err != nil {
			reason := authFailureReason(err)
			s.metrics.AuthFailure(reason)
			s.logger.Printf("auth rejected: reason=%s path=%s", reason, r.URL.Path)
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "init data rejected")
			return
		}

		s.metrics.AuthSuccess()
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the authenticated user stored by requireAuth.
func PrincipalFrom(ctx context.Context) (telegram.Principal, bool) {
	p, ok := ctx.Value(principalKey).(telegram.Principal)
	return p, ok
}
