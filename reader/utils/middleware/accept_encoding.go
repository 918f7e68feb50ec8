package middleware

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"
)

// AcceptEncodingMiddleware gzips successful responses for clients that accept it.
// Responses are small JSON documents, so the body is buffered whole.
func AcceptEncodingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gzw := &gzipResponseWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(gzw, r)
		gzw.Close()
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	code    int
	codeSet bool
	body    bytes.Buffer
}

func (gzw *gzipResponseWriter) WriteHeader(code int) {
	if gzw.codeSet {
		return
	}
	gzw.codeSet = true
	gzw.code = code
}

func (gzw *gzipResponseWriter) Write(b []byte) (int, error) {
	gzw.codeSet = true
	return gzw.body.Write(b)
}

func (gzw *gzipResponseWriter) Close() {
	if gzw.code/100 != 2 || gzw.body.Len() == 0 {
		gzw.ResponseWriter.WriteHeader(gzw.code)
		gzw.ResponseWriter.Write(gzw.body.Bytes())
		return
	}
	compressed := bytes.Buffer{}
	gz := gzip.NewWriter(&compressed)
	gz.Write(gzw.body.Bytes())
	gz.Close()
	gzw.Header().Set("Content-Encoding", "gzip")
	gzw.Header().Set("Content-Length", strconv.Itoa(compressed.Len()))
	gzw.ResponseWriter.WriteHeader(gzw.code)
	gzw.ResponseWriter.Write(compressed.Bytes())
}
