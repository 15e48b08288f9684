// Package domain defines the core types of the verification reconciler:
// verification batches, leads, and the values that flow between the
// provider client, the reconciliation service, and the stores.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
