// Package panel keeps the Smart Idler settings panel in step with the agent.
//
// The agent owns every setting; the panel is a cache of it. Two halves share
// one Binding:
//
//   - Mirror reads every field described in Descriptors, concurrently and
//     independently. A field shows "Loading..." while its read is in flight
//     and keeps its previous value if the read fails.
//   - Dispatcher handles user edits: toggles, the shutdown schedule and the
//     polling interval. Input is validated before anything is sent.
//
// Completions are ordered per field. A read that lands after a newer read
// or write for the same field is discarded, so overlapping refreshes never
// flicker a field back to an older value.
//
// # Write Policy
//
//   - Toggles change only after the agent accepts the write. A failed write
//     leaves the toggle indeterminate.
//   - Schedule edits update both schedule fields before the write is sent
//     and restore them if it fails.
//   - Interval input below the minimum, or not a whole number, is rejected
//     locally. An accepted interval triggers a full refresh.
//
// Board is the in-memory Binding used by the terminal UI and the CLI.
package panel
