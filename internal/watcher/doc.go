// Package watcher implements a single page-change check.
//
// A Checker runs one bounded pass per invocation:
//
//	Fetching -> Normalizing -> Comparing -> Notifying -> Persisting -> Done
//
// Any step that fails moves the run to Failed, skips the remaining steps and
// triggers one best-effort failure notification. A notification is sent on
// every successful run, including runs that find no change, so the sink also
// acts as a liveness heartbeat.
//
// Network and storage collaborators are expressed as the small capability
// interfaces in interfaces.go; concrete adapters live under internal/fetcher,
// internal/storage and internal/notify.
package watcher
