package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/tagset"
)

// newProxy forwards to upstream and runs the render hooks on responses
// that carry tagHeader. The tag header itself never reaches the client.
// Untagged responses stream through unbuffered.
func newProxy(upstream *url.URL, tagHeader string, render hooks.RenderHook, logger observe.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			raw := resp.Header.Values(tagHeader)
			if len(raw) == 0 {
				return nil
			}
			resp.Header.Del(tagHeader)

			set := tagset.NewSet()
			for _, v := range raw {
				set.Add(tagset.ParseHeader(v)...)
			}
			if set.Len() == 0 {
				return nil
			}

			rc := hooks.RenderContext{Request: resp.Request, Tags: set}
			ctx := resp.Request.Context()

			// Headers only. The origin's Content-Length describes the entity
			// and stays as sent.
			if !hasBody(resp.Request.Method, resp.StatusCode) {
				render(ctx, hooks.HeaderHandle(resp.Header), rc, nil)
				return nil
			}

			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return err
			}

			out := render(ctx, hooks.HeaderHandle(resp.Header), rc, body)
			resp.Body = io.NopCloser(bytes.NewReader(out))
			if bytes.Equal(out, body) {
				return nil
			}
			resp.ContentLength = int64(len(out))
			resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error(r.Context(), "upstream request failed",
				observe.F("path", r.URL.Path),
				observe.F("error", err),
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// hasBody reports whether a response to method with status carries a body.
func hasBody(method string, status int) bool {
	if method == http.MethodHead {
		return false
	}
	switch {
	case status >= 100 && status < 200, status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
