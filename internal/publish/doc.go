// Package publish persists a site-content document to every configured target with
// optimistic concurrency and fires the deployment trigger afterwards.
//
// Each target runs its own read-then-write pipeline concurrently with the others. A
// target failure is captured in that target's TargetResult and never aborts its
// siblings; the publish succeeds overall when at least one target was written. When no
// target was written Publish returns an error wrapping *AllTargetsFailedError and the
// deployment trigger is not invoked.
package publish
