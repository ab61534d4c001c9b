package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	goRights "github.com/MrEthical07/goRights"
	"github.com/MrEthical07/goRights/jwt"
)

// TokenParser verifies a bearer token. [*jwt.Manager] implements it.
type TokenParser interface {
	Parse(token string) (*jwt.PrincipalClaims, error)
}

// Authenticate parses the bearer token of each request with parser and, on
// success, attaches the claims as the request principal. A nil logger
// discards.
func Authenticate(parser TokenParser, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || parser == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parser.Parse(token)
			if err != nil {
				logger.Debug("bearer token rejected",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := goRights.WithPrincipal(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
