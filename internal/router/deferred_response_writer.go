package router

import (
	"bytes"
	"net/http"
	"strings"
)

// DeferredResponseWriter buffers the handler's response so middleware can
// still change the status, headers and body once the handler has returned.
// Headers go straight to the wrapped writer; nothing is sent until Flush.
type DeferredResponseWriter struct {
	wrapped http.ResponseWriter
	status  int
	buffer  bytes.Buffer

	override        bool
	overrideStatus  int
	overrideHeaders http.Header
	overrideBody    []byte

	flushed bool
}

func NewDeferredResponseWriter(w http.ResponseWriter) *DeferredResponseWriter {
	return &DeferredResponseWriter{wrapped: w}
}

func (w *DeferredResponseWriter) Header() http.Header {
	return w.wrapped.Header()
}

func (w *DeferredResponseWriter) WriteHeader(statusCode int) {
	if w.status != 0 {
		return
	}
	w.status = statusCode
}

func (w *DeferredResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buffer.Write(b)
}

// Status returns the status written by the handler, 200 if it wrote none.
func (w *DeferredResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Override discards the buffered body and replaces the response. Cookies
// already set on the writer are kept.
func (w *DeferredResponseWriter) Override(status int, headers http.Header, body []byte) {
	w.override = true
	w.overrideStatus = status
	w.overrideHeaders = headers.Clone()
	w.overrideBody = append([]byte(nil), body...)
}

// Flush sends the response to the wrapped writer. Later calls do nothing.
func (w *DeferredResponseWriter) Flush() error {
	if w.flushed {
		return nil
	}
	w.flushed = true

	if !w.override {
		if w.status == 0 && w.buffer.Len() == 0 {
			return nil
		}
		w.wrapped.WriteHeader(w.Status())
		if w.buffer.Len() > 0 {
			_, err := w.wrapped.Write(w.buffer.Bytes())
			return err
		}
		return nil
	}

	header := w.wrapped.Header()
	cookies := header.Values("Set-Cookie")
	for _, key := range []string{"Content-Type", "Content-Length", "Content-Encoding"} {
		header.Del(key)
	}
	for key, values := range w.overrideHeaders {
		if key != "Set-Cookie" {
			header[key] = append([]string(nil), values...)
		}
	}
	header["Set-Cookie"] = mergeCookies(cookies, w.overrideHeaders.Values("Set-Cookie"))
	if len(header["Set-Cookie"]) == 0 {
		header.Del("Set-Cookie")
	}

	w.wrapped.WriteHeader(w.overrideStatus)
	if len(w.overrideBody) > 0 {
		_, err := w.wrapped.Write(w.overrideBody)
		return err
	}
	return nil
}

// mergeCookies appends extra cookies whose names are not already set.
func mergeCookies(existing []string, extra []string) []string {
	merged := append([]string(nil), existing...)
	for _, cookie := range extra {
		name := cookieName(cookie)
		duplicate := false
		for _, current := range existing {
			if cookieName(current) == name {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, cookie)
		}
	}
	return merged
}

func cookieName(setCookie string) string {
	if before, _, ok := strings.Cut(setCookie, "="); ok {
		return before
	}
	return setCookie
}
