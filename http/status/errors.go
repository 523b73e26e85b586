package status

// HTTPError is an error, that can be answered with the status code it carries. The
// parser reports malformed requests with it.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrMethodNotImplemented    = NewError(NotImplemented, "request method is not supported")
	ErrTooLongRequestLine      = NewError(RequestURITooLong, "request line is too long")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrBadContentLength        = NewError(BadRequest, "invalid Content-Length value")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrUnsupportedEncoding     = NewError(NotImplemented, "transfer encoding is not supported")
	ErrNotFound                = NewError(NotFound, "not found")
	ErrRangeNotSatisfiable     = NewError(RequestedRangeNotSatisfiable, "requested range is out of the body")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
)
