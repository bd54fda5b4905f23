// Package async runs independent tasks concurrently and collects every
// error they return.
package async
