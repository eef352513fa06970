package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const AuthSubjectKey contextKey = "authSubject"

// OptionalClerkAuth verifies a bearer token when one is supplied and stashes
// the verified subject in the request context. The userId in request bodies
// is treated as pre-authenticated by the calling collaborator, so a missing
// or invalid token does not reject the request; handlers use the subject only
// to log mismatches.
func OptionalClerkAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token != authHeader {
				claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
					Token: token,
				})
				if err == nil {
					ctx := context.WithValue(r.Context(), AuthSubjectKey, claims.Subject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				log.Printf("Token verification failed, continuing unauthenticated: %v", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// GetAuthSubject returns the verified token subject, if any.
func GetAuthSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(AuthSubjectKey).(string)
	return subject, ok
}
