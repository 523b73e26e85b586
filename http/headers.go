package http

import (
	"github.com/indigo-web/utils/strcomp"
)

type Header struct {
	Key, Value string
}

// Headers is an ordered list of header fields. Keys may repeat, in which case each
// occurrence is a separate field line on the wire.
type Headers []Header

// Value returns the first value of the key, compared case-insensitively.
func (h Headers) Value(key string) (string, bool) {
	for _, header := range h {
		if strcomp.EqualFold(header.Key, key) {
			return header.Value, true
		}
	}

	return "", false
}

// Values returns every value of the key in the order of their appearance.
func (h Headers) Values(key string) (values []string) {
	for _, header := range h {
		if strcomp.EqualFold(header.Key, key) {
			values = append(values, header.Value)
		}
	}

	return values
}

func (h Headers) Has(key string) bool {
	_, found := h.Value(key)
	return found
}
