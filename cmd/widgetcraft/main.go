// Package main provides the widgetcraft CLI tool.
//
// Usage:
//
//	widgetcraft [flags] <command> [args]
//
// Commands:
//
//	run      - Execute a widget script once and print the result
//	watch    - Re-run a script as it and its data change
//	serve    - Serve live previews over HTTP and WebSocket
//	widget   - Manage stored widget definitions
//	data     - Inspect the data fields scripts can read
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.widgetcraft/
//	Use 'widgetcraft config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/dudeperfectdwag/widgetcraft/cmd/widgetcraft/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
