package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the widgetcraft directory layout.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths creates a new Paths instance.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.widgetcraft).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.widgetcraft/config.yaml).
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the widget store directory (~/.widgetcraft/data).
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// LogDir returns the log directory (~/.widgetcraft/logs).
func (p *Paths) LogDir() string {
	return filepath.Join(p.BaseDir(), "logs")
}

// ExportDir returns the default export directory (~/.widgetcraft/exports).
func (p *Paths) ExportDir() string {
	return filepath.Join(p.BaseDir(), "exports")
}

// EnsureBaseDir creates the base directory if it doesn't exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0755)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func (p *Paths) EnsureLogDir() error {
	return os.MkdirAll(p.LogDir(), 0755)
}

// EnsureExportDir creates the export directory if it doesn't exist.
func (p *Paths) EnsureExportDir() error {
	return os.MkdirAll(p.ExportDir(), 0755)
}

// DataPath returns a path within the data directory.
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// LogPath returns a path within the log directory.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogDir(), name)
}

// ExportPath returns a path within the export directory.
func (p *Paths) ExportPath(name string) string {
	return filepath.Join(p.ExportDir(), name)
}
