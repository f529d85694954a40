package backendtest

import (
	"context"
	"net/http"
)

func contextWithUser(r *http.Request, u user) context.Context {
	return context.WithValue(r.Context(), userKey{}, u)
}

func userFrom(r *http.Request) user {
	u, _ := r.Context().Value(userKey{}).(user)
	return u
}
