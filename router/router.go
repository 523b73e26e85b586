package router

import (
	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
)

// Handler produces the response for a request. Returning nil is equivalent to returning
// an empty 200 OK response.
type Handler func(request *http.Request) *http.Response

// Router picks a handler for the request. Params it returns are attached to the request
// before the handler is called.
type Router interface {
	Dispatch(request *http.Request) (http.Params, Handler)
}

// NotFound answers every request with 404 Not Found.
var NotFound Router = notFound{}

type notFound struct{}

func (notFound) Dispatch(*http.Request) (http.Params, Handler) {
	return nil, notFoundHandler
}

func notFoundHandler(request *http.Request) *http.Response {
	return request.Respond().
		Code(status.NotFound).
		String(string(status.Text(status.NotFound)))
}
