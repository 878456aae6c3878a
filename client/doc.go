// Package client is the consumer side of the token lifecycle. A [Client]
// keeps the access token in memory only, persists the renewal token in a
// [Vault], attaches the access token to every outbound request through
// [Transport], and coordinates all renewal through a single-flight
// [Coordinator]: no matter how many requests fail with 401 at once, exactly
// one rotation call reaches the server and every caller observes its outcome.
//
// A [Scheduler] renews proactively shortly before the access token expires,
// and removal of the renewal token by another context sharing the same vault
// (another browser tab, in the system this models) logs this context out too.
package client
