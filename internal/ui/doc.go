// Package ui renders the one-shot output of the smartidler-panel commands.
//
// Components follow a "print once and exit" pattern using Lipgloss:
//
//   - Header: command banner with the agent address and other parameters
//   - Board: the panel fields, styled by status (ready, loading, failed)
//   - Result: success/failure boxes, with troubleshooting tips for failures
//   - Confirm: a yes/no prompt before destructive operations
//
// The interactive panel lives in package tui and reuses these styles.
//
// # Logging Integration
//
// This package expects logging to be controlled via the SMARTIDLER_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
