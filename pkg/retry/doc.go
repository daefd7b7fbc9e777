// Package retry provides the timing primitives of the removal tool:
//
//   - Wait, a context-aware sleep used for every scheduled delay
//   - Do / DoWithResult, bounded retries with backoff for idempotent
//     requests such as fetching the licenses page
//   - AdaptiveCooldown, the bounded multiplicative-increase /
//     multiplicative-decrease controller applied on rate-limit signals
//
// Removal requests themselves are never retried here; the removal loop
// decides whether to retry an item based on its classified outcome.
package retry
