// Package tui implements the interactive settings panel.
//
// It is a Bubble Tea program with three screens:
//   - Picker: agents found over mDNS, or a typed address
//   - Connecting: the dial in progress
//   - Panel: the settings board with its controls
//
// The panel screen owns no settings state. It renders a panel.Board and
// redraws when the board reports a change; every control calls into
// panel.Panel as a tea.Cmd so reads and writes never block the UI.
//
// # Usage Example
//
//	err := tui.Run(ctx, tui.Options{
//		Agent: "ws://office-pc.local:7420/ws",
//		Panel: panel.DefaultOptions(),
//	})
package tui
