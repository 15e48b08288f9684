// Package provider talks to the bulk email-verification provider: it polls
// the pipe-delimited status endpoint for a submitted file and downloads the
// categorized result lists the status line links to.
//
// The status client never retries; a failed poll is simply repeated on the
// next worker tick. Result downloads go through httpretry because they are
// idempotent reads of files that no longer change once a job is complete.
package provider
