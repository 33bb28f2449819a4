// Package cli provides common utilities for the widgetcraft command line.
//
// This package includes:
//   - Configuration management (workspace contexts)
//   - Output formatting (JSON, YAML, raw)
//   - Request file loading (YAML/JSON)
//   - Terminal rendering for watch mode
//
// Configuration is stored in the ~/.widgetcraft/ directory, supporting
// multiple contexts similar to kubectl.
//
// Example usage:
//
//	// Load or create the config
//	cfg, err := cli.LoadConfig()
//
//	// Get current context
//	ctx, err := cfg.GetCurrentContext()
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
