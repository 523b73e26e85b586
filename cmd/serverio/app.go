package main

import (
	"path"
	"path/filepath"

	"github.com/indigo-web/serverio"
	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/serverio/router"
)

// stats is the part of the server the health endpoint reports.
type stats interface {
	State() serverio.State
	ActiveConnections() int
}

type health struct {
	Status            string `json:"status"`
	State             string `json:"state"`
	ActiveConnections int    `json:"active_connections"`
}

// app serves static files from the root directory, besides the health endpoint.
type app struct {
	root  string
	stats stats
}

var _ router.Router = new(app)

func (a *app) Dispatch(request *http.Request) (http.Params, router.Handler) {
	switch {
	case request.Method != "GET":
		return nil, methodNotAllowed
	case request.Path == "/health":
		return nil, a.health
	default:
		return nil, a.file
	}
}

func (a *app) health(request *http.Request) *http.Response {
	return request.Respond().JSON(health{
		Status:            "ok",
		State:             a.stats.State().String(),
		ActiveConnections: a.stats.ActiveConnections(),
	})
}

func (a *app) file(request *http.Request) *http.Response {
	// cleaning the rooted path removes every .. segment, so the result never leaves the root
	name := path.Clean("/" + request.Path)
	if name == "/" {
		name = "/index.html"
	}

	return request.Respond().File(filepath.Join(a.root, filepath.FromSlash(name)))
}

func methodNotAllowed(request *http.Request) *http.Response {
	return request.Respond().
		Code(status.MethodNotAllowed).
		Header("Allow", "GET")
}
