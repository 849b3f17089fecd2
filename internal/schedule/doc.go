// Package schedule linearizes engine systems into a fixed per-tick order.
//
// Modules register work units while they initialize. Each unit carries a
// Descriptor (name, priority, after-names, before-names) and a Factory that
// builds the payload later. Units land in one of two groups: the parallel
// group, which may be spread over worker goroutines, and the thread-local
// group, which always runs on the engine goroutine.
//
// Resolution of one group:
//   - Stable pre-sort by priority ascending (registration order breaks ties)
//   - Count table: every before-name X in the group adds one to count[X]
//   - Repeated scans: the first pending unit whose after-names are all placed
//     and whose own count is zero gets placed, its before-names are released,
//     and the scan restarts from the top
//   - A scan that places nothing fails with a *ResolveError listing each
//     remaining unit, its unmet after-names and its outstanding before-blocks
//
// Anonymous units (empty name) are never blocked by the count table and can
// not be referenced by other units.
//
// Commit resolves both groups, invokes every factory once in resolved order
// and returns an immutable Plan. Resolution never happens again afterwards.
//
// Error handling:
//   - Duplicate name → *DuplicateNameError at registration, or from Resolve
//     for a bare descriptor slice
//   - Empty name inside after/before → ErrInvalidDescriptor at registration
//   - Registration after Commit → ErrSealed
//   - Cycle or missing after-name → *ResolveError (errors.Is ErrUnresolvable)
//   - Before-name with no unit in the group → *ResolveError, KindDanglingBefore;
//     names found in the other group are listed in CrossGroupBefore
package schedule
