// Package agentsim is a stand-in for the Smart Idler agent, for developing
// and testing the panel without a Windows machine.
//
// It answers the full agentrpc command table with the agent's semantics:
//
//   - toggles are stored as "Enabled" or "Disabled" and read back as booleans
//   - get_db_count answers "Disabled" while input logging is off
//   - a shutdown is active whenever the stored hour is not "STOP"
//   - unknown data names and toggles are refused with "unknown_data"
//
// Settings live in a Store: MemoryStore for throwaway runs, SQLiteStore to
// keep them (and the robot input log) across restarts.
//
// # Endpoints
//
//	GET  /ws      WebSocket, one JSON envelope per text message
//	POST /invoke  one envelope per request
//
// The server can delay answers and refuse a fraction of them, which is how
// the panel's loading and failure states are exercised by hand.
package agentsim
