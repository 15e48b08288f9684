// Package verification reconciles bulk email-verification results with the
// lead store.
//
// One Driver.Tick loads a bounded page of unprocessed batches and, for each
// batch in turn, polls the provider, and once the provider reports the file
// complete, downloads both result lists, classifies every email into GOOD,
// BAD or UNRESOLVED, adds submitted emails the provider never mentioned as
// unaccounted, and writes a terminal status to every matching lead.
//
// All writes are idempotent: a batch that fails halfway stays unprocessed
// and is retried whole on a later tick, and overlapping ticks converge on
// the same final state. The service depends only on the interfaces in
// repository.go; it never imports database/sql or net/http directly.
package verification
