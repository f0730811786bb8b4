package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/auth"
)

type ctxKey int

const principalKey ctxKey = iota

func principalFrom(ctx context.Context) (*auth.Principal, error) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	if !ok {
		return nil, fmt.Errorf("%w: no verified caller", common.ErrUnauthorized)
	}
	return p, nil
}

// authenticated verifies the bearer token and injects the Principal into the
// request context before the handler runs.
func (s *Server) authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		principal, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next(w, r.WithContext(ctx), ps)
	}
}
