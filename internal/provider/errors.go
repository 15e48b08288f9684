package provider

import "errors"

// ErrStatusUnavailable is returned when the status endpoint answered with a
// non-2xx code, failed at the transport level, or sent a line with too few
// fields. Callers treat it exactly like "not complete yet".
var ErrStatusUnavailable = errors.New("provider status unavailable")

// ErrResultTruncated is returned when a result file exceeds the download
// cap. The list is incomplete, so the batch must not be reconciled from it.
var ErrResultTruncated = errors.New("provider result file exceeds size limit")
