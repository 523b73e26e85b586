package requestgen

import (
	"strconv"
	"strings"

	"github.com/indigo-web/serverio/http"
)

// Headers returns n header fields, the last of which is always Host.
func Headers(n int) http.Headers {
	hdrs := make(http.Headers, 0, n)

	for i := 0; i < n-1; i++ {
		hdrs = append(hdrs, http.Header{
			Key:   "some-random-header-name-nobody-cares-about" + strconv.Itoa(i),
			Value: strings.Repeat("b", 100),
		})
	}

	return append(hdrs, http.Header{Key: "Host", Value: "localhost"})
}

func HeadersBlock(hdrs http.Headers) (buff []byte) {
	for _, pair := range hdrs {
		buff = append(buff, pair.Key+": "+pair.Value+"\r\n"...)
	}

	return buff
}

// Generate renders a GET request to the path.
func Generate(path string, hdrs http.Headers) (request []byte) {
	request = append(request, "GET /"+path+" HTTP/1.1\r\n"...)
	request = append(request, HeadersBlock(hdrs)...)

	return append(request, '\r', '\n')
}

// Disperse splits the data into pieces of at most n bytes, as a slow client would send
// them.
func Disperse(data []byte, n int) (pieces [][]byte) {
	for len(data) > n {
		pieces = append(pieces, data[:n])
		data = data[n:]
	}

	return append(pieces, data)
}
