package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const acceptEncodingHeader = "gzip, deflate, br"

// wrapDecompression wraps the response body with a decompressing reader
// when the upstream applied a content encoding.
func wrapDecompression(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.Body
		}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
		return &decompressedBody{reader: reader, original: resp.Body}
	case "deflate":
		reader := flate.NewReader(resp.Body)
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
		return &decompressedBody{reader: reader, original: resp.Body}
	case "br":
		reader := brotli.NewReader(resp.Body)
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
		return &decompressedBody{reader: io.NopCloser(reader), original: resp.Body}
	default:
		return resp.Body
	}
}

// decompressedBody closes both the decompressing reader and the original
// body.
type decompressedBody struct {
	reader   io.ReadCloser
	original io.ReadCloser
}

func (b *decompressedBody) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *decompressedBody) Close() error {
	err := b.reader.Close()
	if cerr := b.original.Close(); err == nil {
		err = cerr
	}
	return err
}
