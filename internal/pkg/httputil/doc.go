// Package httputil provides the JSON response helpers used by the trigger
// and health handlers so every endpoint answers with the same envelope.
package httputil
