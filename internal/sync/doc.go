// Package sync implements the reconciliation engine between the
// device's local store and the shared remote store.
//
// The engine reconciles each entity collection workspace by workspace:
// deletions are inferred by ID set difference (there are no tombstones),
// and conflicting writes are resolved last-write-wins on the entity's
// millisecond UpdatedAt timestamp. Collections without a timestamp
// (kanban boards, calendar events, settings) are always overwritten
// whole.
//
// Three flows are exposed:
//
//   - FullSync: pull then push. The safe default; pulling first means
//     the device sees the latest remote state before deciding what to
//     overwrite.
//   - PushFirst: push without a preceding pull. Used right after a
//     local structural mutation (create, delete, move, reorder) so a
//     concurrent pull cannot observe the workspace and erase the
//     not-yet-uploaded change. Any locally-originated structural
//     mutation must push before the next pull runs; this is the only
//     guard against the no-tombstone race.
//   - MigrateIfNeeded: first-authentication bootstrap. If the remote
//     already has a workspace for this user it runs FullSync, otherwise
//     it seeds the remote with a bulk push of the entire local dataset.
//
// A realtime merge consumes the remote change feed and applies each
// row event to the local store under the same last-write-wins policy
// as pull.
//
// The engine does not retry: a failed pass surfaces through the status
// observer and the next triggered sync re-diffs from scratch, which is
// the recovery mechanism.
package sync
