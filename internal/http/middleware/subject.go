package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const SubjectKey contextKey = "subject_id"

// Session keys
const (
	UserIDKey  = "user_id"
	GuestIDKey = "guest_id"
)

// GuestPrefix marks subject ids generated for anonymous visitors
const GuestPrefix = "guest_"

// SessionStore is the subset of *scs.SessionManager the middleware needs
type SessionStore interface {
	GetString(ctx context.Context, key string) string
	Put(ctx context.Context, key string, val interface{})
}

// Subject resolves who recommendations are for: the logged-in user, or a
// guest id that is created on first visit and kept in the session.
// It must run inside the session manager's LoadAndSave.
func Subject(sess SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := sess.GetString(ctx, UserIDKey)
			if id == "" {
				id = sess.GetString(ctx, GuestIDKey)
				if id == "" {
					id = GuestPrefix + uuid.NewString()
					sess.Put(ctx, GuestIDKey, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, SubjectKey, id)))
		})
	}
}

// SubjectFrom returns the subject stored by Subject, or ""
func SubjectFrom(ctx context.Context) string {
	id, _ := ctx.Value(SubjectKey).(string)
	return id
}
