package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// ErrUnsupportedEncoding reports a Content-Encoding the client cannot decode.
// Retrying does not change the answer, so it is not retried.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// decodeBody undoes the response Content-Encoding. The transport does not do
// this itself because Accept-Encoding is set explicitly.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		return newDeflateReader(resp.Body)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedEncoding, encoding)
	}
}

// newDeflateReader accepts both zlib-wrapped deflate (RFC 9110) and the raw
// deflate streams some servers send instead.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err == nil && isZlibHeader(head) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zlib body: %w", err)
		}
		return zr, nil
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(b []byte) bool {
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
