package session

import (
	"context"
	"net/http"
)

// Rejecter is told about requests the server refused.
type Rejecter interface {
	Reject(ctx context.Context, kind Kind)
}

// Transport reports 401 and 403 responses on authenticated requests so that a
// rejected credential logs out immediately rather than at the next poll.
type Transport struct {
	Base        http.RoundTripper
	Rejecter    Rejecter
	Credentials KindSource
	// Skip exempts requests whose status is interpreted elsewhere, such as the
	// session check itself.
	Skip func(*http.Request) bool
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}
	if t.Skip != nil && t.Skip(req) {
		return resp, nil
	}

	if kind := t.Credentials.ActiveKind(); kind.Valid() {
		t.Rejecter.Reject(req.Context(), kind)
	}
	return resp, nil
}
