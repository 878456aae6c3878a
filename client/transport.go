package client

import (
	"io"
	"net/http"
)

// Transport is the request pipeline: it attaches the current access token as
// a bearer header and, on a 401, funnels through the coordinator's single
// flight and replays the request once with the refreshed token. The replay's
// response is returned as-is; a second 401 is never retried, so a broken
// session cannot loop.
type Transport struct {
	base        http.RoundTripper
	state       *State
	coordinator *Coordinator
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, state *State, coordinator *Coordinator) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, state: state, coordinator: coordinator}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if access, ok := t.state.AccessToken(); ok {
		out.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	access, err := t.coordinator.Refresh(req.Context())
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	retry.Header.Set("Authorization", "Bearer "+access)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}
