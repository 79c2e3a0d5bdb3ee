// Package store implements rolecall's durable state on NATS JetStream
// KeyValue buckets.
//
// Three buckets back the system:
//
//   - submissions: one key per (session, participant) attribute record
//   - sessions: roster, role slots and the finalized flag per session
//   - assignments: one key per (session, participant) role assignment
//
// Uniqueness invariants are enforced structurally: submissions and
// assignments are keyed by (session, participant), so an upsert overwrites
// and can never duplicate. The finalized flag is an atomic KV Create, which
// makes the finalize claim first-writer-wins across server instances without
// any extra locking.
//
// Identifiers used in keys (session and participant ids) must be valid NATS
// key tokens: no whitespace, dots or wildcard characters.
package store
