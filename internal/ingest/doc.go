// Package ingest implements the periodic price ingestion task.
//
// The Poller:
//   - Fetches the spot price once per interval (default: 60s)
//   - Runs cycles on a single goroutine, so cycles never overlap; ticks that
//     fire while a cycle is still running are dropped
//   - Appends nothing when the fetch fails, and retries on the next tick
//   - Stops cleanly on Stop or context cancellation without partial writes
package ingest
