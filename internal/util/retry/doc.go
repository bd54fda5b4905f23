// Package retry provides backoff helpers for talking to a remote platform API.
//
// [Do] retries an operation that may fail transiently (throttling, 5xx responses).
// Errors wrapped with [Fatal] stop the loop immediately and are returned unwrapped.
//
// [Until] polls a condition at a growing interval until it reports done, fails
// fatally, or the context expires. It backs the training-job watcher and the
// long-running-operation waiters in the Azure ML client.
package retry
