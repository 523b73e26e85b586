package http

import (
	"fmt"
	"io"
	"os"

	"github.com/indigo-web/serverio/http/mime"
	"github.com/indigo-web/serverio/http/status"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// why 7? There's no theory behind this number, it simply covers most of the responses.
const preallocRespHeaders = 7

// Fields are the values filled by the Response builder.
type Fields struct {
	Code status.Code
	// Status is the reason phrase. If empty, the standard one for the Code is used.
	Status   status.Status
	Headers  Headers
	Content  Content
	Upgrader Upgrader
}

type Response struct {
	fields Fields
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and an empty body.
func NewResponse() *Response {
	return &Response{
		fields: Fields{
			Code:    status.OK,
			Headers: make(Headers, 0, preallocRespHeaders),
		},
	}
}

// Code sets a Response code. In case of unknown code, "Unknown Status Code" will be set as
// a status, unless Status is called explicitly
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom reason phrase.
func (r *Response) Status(status status.Status) *Response {
	r.fields.Status = status
	return r
}

// Header appends header values to a key. Each value results in a separate field line,
// preserving the order of calls.
func (r *Response) Header(key string, values ...string) *Response {
	for i := range values {
		r.fields.Headers = append(r.fields.Headers, Header{
			Key:   key,
			Value: values[i],
		})
	}

	return r
}

// ContentType is a shorthand for Header("Content-Type", value).
func (r *Response) ContentType(value mime.MIME) *Response {
	return r.Header("Content-Type", value)
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	return r.Content(Content{
		Length: int64(len(body)),
		Writer: func(w BodyWriter) error {
			return w.Bytes(body)
		},
	})
}

// Range sets the body to body[from:to] without copying. A range out of the body's bounds
// results in 416 Requested Range Not Satisfiable.
func (r *Response) Range(body []byte, from, to int) *Response {
	if from < 0 || to < from || to > len(body) {
		return r.Error(status.ErrRangeNotSatisfiable)
	}

	return r.Content(Content{
		Length: int64(to - from),
		Writer: func(w BodyWriter) error {
			return w.Range(body, from, to)
		},
	})
}

// Stream sets a body of unknown length. The connection will be closed after the response,
// as there is no other way to let the client know where the body ends. If the reader is
// an io.Closer, it's closed after being drained.
func (r *Response) Stream(reader io.Reader) *Response {
	return r.Content(Content{
		Length: UnknownLength,
		Writer: func(w BodyWriter) error {
			return drain(w, reader, reader)
		},
	})
}

// Sized sets a body, whose length is known in advance. The reader must produce exactly
// size bytes.
func (r *Response) Sized(reader io.Reader, size int64) *Response {
	return r.Content(Content{
		Length: size,
		Writer: func(w BodyWriter) error {
			return drain(w, io.LimitReader(reader, size), reader)
		},
	})
}

func drain(w BodyWriter, src io.Reader, origin io.Reader) error {
	err := w.Blob(src)
	if c, ok := origin.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

// TryFile opens a file for reading and sets it as the body. The file is transmitted with
// zero-copy where possible and closed once written.
func (r *Response) TryFile(path string) (*Response, error) {
	fd, err := os.Open(path)
	if err != nil {
		// if we can't open it, it doesn't exist
		return r, status.ErrNotFound
	}

	stat, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		// ...and if we can't get stats on it, it exists, however something in system went wrong
		return r, status.ErrInternalServerError
	}

	if stat.IsDir() {
		_ = fd.Close()
		return r, status.ErrNotFound
	}

	return r.
		ContentType(mime.ForFile(path)).
		Content(Content{
			Length: stat.Size(),
			Writer: func(w BodyWriter) error {
				err := w.File(fd)
				if cerr := fd.Close(); cerr != nil && err == nil {
					err = cerr
				}

				return err
			},
			Release: func() {
				_ = fd.Close()
			},
		}), nil
}

// File does the same as TryFile does, except the returned error is implicitly wrapped
// by Error
func (r *Response) File(path string) *Response {
	resp, err := r.TryFile(path)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// TryJSON serializes the model and sets it as the body with the application/json type.
func (r *Response) TryJSON(model any) (*Response, error) {
	body, err := json.ConfigCompatibleWithStandardLibrary.Marshal(model)
	if err != nil {
		return r, fmt.Errorf("json: %w", err)
	}

	return r.ContentType(mime.JSON).Bytes(body), nil
}

// JSON does the same as TryJSON does, except returned error is being implicitly wrapped
// by Error
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error returns a response builder with an error set. If passed err is nil, nothing will happen.
// If an instance of status.HTTPError is passed, its code and message are used. Custom
// codes can be passed, however only first will be used. By default, the error is
// status.ErrInternalServerError
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if http, ok := err.(status.HTTPError); ok {
		return r.
			Code(http.Code).
			String(http.Message)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		// peek the first, ignore the rest
		c = code[0]
	}

	return r.
		Code(c).
		String(err.Error())
}

// Content sets the body descriptor directly.
func (r *Response) Content(content Content) *Response {
	r.fields.Content = content
	return r
}

// Upgrade sets the status code to 101 Switching Protocols and hands the connection over to
// the upgrader once the response is written. No Content-Length is sent.
func (r *Response) Upgrade(upgrader Upgrader) *Response {
	r.fields.Code = status.SwitchingProtocols
	r.fields.Upgrader = upgrader
	r.fields.Content = Content{Length: UnknownLength}

	return r
}

// Expose returns a struct with values, filled by builder. Used mostly in internal purposes
func (r *Response) Expose() *Fields {
	return &r.fields
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler
func Respond(request *Request) *Response {
	return request.Respond()
}

// Code is a predicate to request.Respond().Code(...)
func Code(request *Request, code status.Code) *Response {
	return request.Respond().Code(code)
}
