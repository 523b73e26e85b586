package simple

import (
	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/router"
)

type simple struct {
	handler router.Handler
}

// New returns a router passing every request to the same handler.
func New(handler router.Handler) router.Router {
	return simple{handler: handler}
}

func (s simple) Dispatch(*http.Request) (http.Params, router.Handler) {
	return nil, s.handler
}
