package controllers

import (
	"net/http"

	"github.com/ethoparts/marketplace-backend/api/middleware"
	"github.com/ethoparts/marketplace-backend/internal/access"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

func requireActor(r *http.Request) (access.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

// hasBody reports whether the client sent a body worth decoding. Review
// endpoints accept an empty POST.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
