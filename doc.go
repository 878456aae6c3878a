// Package authloop implements the lifecycle of short-lived access tokens and
// long-lived renewal tokens shared between a trust-issuing server and its
// clients.
//
// The server side is the [Engine]: it authenticates users against a
// caller-supplied [UserProvider], issues signed token pairs, rotates the
// renewal token on every refresh (single-use renewal), and records a hash of
// the currently valid renewal token in a [session.Store] so that replay of a
// rotated token is detected and rejected.
//
// The client side lives in the client subpackage: an http.RoundTripper that
// attaches the access token, a single-flight refresh coordinator that queues
// concurrent 401s behind one rotation call, a proactive scheduler that renews
// shortly before expiry, and cross-tab logout propagation over a shared vault.
//
// Engines are constructed through the [Builder]:
//
//	engine, err := authloop.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithUserProvider(provider).
//		Build()
package authloop
