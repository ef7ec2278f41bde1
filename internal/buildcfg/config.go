// Package buildcfg holds the build configuration populated once at
// startup from flags and the project directory, then treated as
// immutable by every other package — the Go analogue of the original's
// BuildConfig, which is likewise populated once and consumed everywhere.
package buildcfg

import (
	"fmt"
	"net"
)

// Config is the full set of options the server and pipeline need.
// Populated once in cmd/*/main.go, never mutated afterward.
type Config struct {
	Addr  string
	Port  uint16
	Watch bool

	// IsRelease forces Watch off and routes the pipeline through
	// internal/release instead of the long-running server.
	IsRelease bool

	// Paths, all relative to ProjectDir unless already absolute.
	ProjectDir       string
	StaticRoot       string
	SourceRoot       string
	TargetDir        string
	DistDir          string
	WasmIn           string
	WasmOut          string
	JSOut            string
	HTMLTemplatePath string
}

// Default returns a Config with the documented defaults from the
// configuration surface table: addr 127.0.0.1, port 8080, path "src",
// watch true.
func Default(projectDir string) Config {
	return Config{
		Addr:       "127.0.0.1",
		Port:       8080,
		Watch:      true,
		ProjectDir: projectDir,
		StaticRoot: "src",
		SourceRoot: "src",
		TargetDir:  "target",
		DistDir:    "dist",
		WasmOut:    "index.wasm",
		JSOut:      "index.js",
	}
}

// Validate checks the fields that the configuration surface documents as
// constrained: addr must parse as an IP literal (v4 or v6).
func (c Config) Validate() error {
	if net.ParseIP(c.Addr) == nil {
		return fmt.Errorf("buildcfg: addr %q is not a valid IP literal", c.Addr)
	}
	return nil
}

// BindAddr returns the "host:port" string to listen on.
func (c Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

// URL returns the http://addr:port string printed in the startup banner.
func (c Config) URL() string {
	return fmt.Sprintf("http://%s:%d", c.Addr, c.Port)
}
