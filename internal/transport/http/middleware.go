package httptransport

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// callerHeader carries the authenticated caller address, set by the edge
// proxy after signature verification. The core trusts it the way the ledger
// trusts msg.sender.
const callerHeader = "X-Caller-Address"

// withRequestContext stamps every request with an ID and the caller address.
func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), uuid.NewString())
		if caller := r.Header.Get(callerHeader); caller != "" {
			ctx = requestcontext.WithCaller(ctx, domain.Address(caller))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCaller rejects requests without an authenticated caller.
func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.Caller(r.Context()).IsZero() {
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin gates owner-only endpoints behind an HS256 bearer token whose
// subject is the platform owner address.
func requireAdmin(signingKey []byte, owner domain.Address) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token"))
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || domain.Address(subject) != owner {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token subject mismatch"))
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
