package middleware

import (
	"net/http"

	goRights "github.com/MrEthical07/goRights"
)

// Require lets the request through only when the context principal is
// granted action on resource. Abstentions follow the engine's AbstainPolicy.
func Require(engine *goRights.Engine, action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := engine.AuthorizeContext(r.Context(), action, resource); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny lets the request through when any of actions is granted on
// resource.
func RequireAny(engine *goRights.Engine, resource string, actions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := goRights.PrincipalFromContext(r.Context())
			var principal any
			if p != nil {
				principal = p
			}
			if engine.Vote(principal, resource, actions...) != goRights.Grant {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
