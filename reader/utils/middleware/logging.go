package middleware

import (
	"bufio"
	"bytes"
	"errors"
	"html"
	"net"
	"net/http"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/metrico/brokerlog/reader/utils/logger"
)

// LoggingMiddleware logs one line per request. tpl is a text/template over
// method, url, path, status, length, latency and user_agent; sprig functions are available.
func LoggingMiddleware(tpl string) func(next http.Handler) http.Handler {
	t := template.Must(template.New("http-logging").Funcs(sprig.TxtFuncMap()).Parse(tpl))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_w := &responseWriterWithCode{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(_w, r)
			duration := time.Since(start)
			b := bytes.NewBuffer(nil)
			t.Execute(b, map[string]any{
				"method":     html.EscapeString(r.Method),
				"url":        html.EscapeString(r.URL.String()),
				"path":       html.EscapeString(r.URL.Path),
				"status":     _w.statusCode,
				"length":     _w.length,
				"user_agent": html.EscapeString(r.UserAgent()),
				"latency":    duration.String(),
			})
			entry := logger.WithFields(logger.LogInfo{
				"status":  _w.statusCode,
				"path":    r.URL.Path,
				"latency": duration.Milliseconds(),
			})
			if _w.statusCode >= http.StatusInternalServerError {
				entry.Error(b.String())
				return
			}
			entry.Info(b.String())
		})
	}
}

type responseWriterWithCode struct {
	http.ResponseWriter
	statusCode int
	length     int
}

func (w *responseWriterWithCode) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ResponseWriter does not support Hijack")
	}
	return h.Hijack()
}

func (w *responseWriterWithCode) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriterWithCode) Write(b []byte) (int, error) {
	w.length += len(b)
	return w.ResponseWriter.Write(b)
}
