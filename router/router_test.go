package router

import (
	"testing"

	"github.com/indigo-web/serverio/http"
	"github.com/indigo-web/serverio/http/status"
	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	params, handler := NotFound.Dispatch(&http.Request{Path: "/anything"})
	require.Empty(t, params)

	fields := handler(new(http.Request)).Expose()
	require.Equal(t, status.NotFound, fields.Code)
	require.Equal(t, int64(len("Not Found")), fields.Content.Length)
}
