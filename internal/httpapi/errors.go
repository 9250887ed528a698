package httpapi

import (
	"net/http"

	"mergeanddown/internal/core/domain"
)

// statusFor maps an error to the HTTP status the client sees. Only the
// outermost kind counts: a fetch failure inside the mux pipeline is a 500.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.InvalidIdentifier, domain.EncodingNotFound:
		return http.StatusBadRequest
	case domain.SourceUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the client-facing text for err. Internal detail stays in
// the logs.
func messageFor(err error) string {
	switch domain.KindOf(err) {
	case domain.InvalidIdentifier:
		return "invalid video url"
	case domain.EncodingNotFound:
		return "requested encoding is not available"
	case domain.SourceUnavailable:
		return "video source unavailable"
	case domain.MuxFailure:
		return "failed to process the video"
	default:
		return "failed to process the download"
	}
}
