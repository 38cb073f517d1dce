package emitter

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/tagset"
)

// Middleware runs render hooks for in-process handlers.
//
// Each request gets an empty tag set on its context; handlers add tags
// with tagset.AddToContext. The response body is buffered so the render
// hooks run before any header is sent. Not suitable for streaming handlers.
func Middleware(render hooks.RenderHook) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set := tagset.NewSet()
			r = r.WithContext(tagset.WithSet(r.Context(), set))

			bw := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(bw, r)

			body := bw.buf.Bytes()
			output := body
			if render != nil {
				output = render(r.Context(), w, hooks.RenderContext{Request: r, Tags: set}, body)
			}

			status := bw.statusCode()
			if bodyAllowed(r.Method, status) && !bytes.Equal(output, body) && w.Header().Get("Content-Length") != "" {
				w.Header().Set("Content-Length", strconv.Itoa(len(output)))
			}
			w.WriteHeader(status)
			if len(output) > 0 {
				_, _ = w.Write(output)
			}
		})
	}
}

// bodyAllowed reports whether a response to method with status carries a
// body whose length the handler's Content-Length describes.
func bodyAllowed(method string, status int) bool {
	if method == http.MethodHead {
		return false
	}
	switch {
	case status >= 100 && status < 200, status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// bufferedWriter holds the body and status until the hooks have run.
type bufferedWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.buf.Write(p)
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}
