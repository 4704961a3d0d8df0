package testutil

import (
	"net/http"

	"feedlink/pkg/requestcontext"
)

// WithDonor marks the request as authenticated for donorID, as the auth
// middleware would after validating a bearer token.
func WithDonor(req *http.Request, donorID string) *http.Request {
	if donorID == "" {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), donorID))
}
