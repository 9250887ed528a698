package httpapi

import (
	"net/http"
	"strconv"

	"mergeanddown/internal/service"
)

// responseDelivery adapts an http.ResponseWriter to ports.Delivery. Headers
// go out with the first Write, so a failure before that can still become an
// error response.
type responseDelivery struct {
	w       http.ResponseWriter
	written int64
}

func (d *responseDelivery) Attach(filename, contentType string, size int64) {
	h := d.w.Header()
	h.Set("Content-Disposition", service.AttachmentHeader(filename))
	h.Set("Content-Type", contentType)
	if size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
}

func (d *responseDelivery) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.written += int64(n)
	return n, err
}

// started reports whether any body bytes reached the client.
func (d *responseDelivery) started() bool {
	return d.written > 0
}

// reset drops the attachment headers after a failure that happened before
// any body was written.
func (d *responseDelivery) reset() {
	h := d.w.Header()
	h.Del("Content-Disposition")
	h.Del("Content-Length")
	h.Del("Content-Type")
}
