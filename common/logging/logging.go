// Package logging provides the one named sub-logger per subsystem that every
// rhizo component takes as an explicit constructor argument, mirroring the
// teacher's "logger *logging.Logger" field pattern rather than a package
// global.
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the interface every rhizo component depends on.
type Logger = hclog.Logger

// Root is the base logger; Named derives named children from it.
func Root(level string) Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "rhizo",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

// Named returns a child logger scoped to subsystem name, e.g. "chunkstore",
// "catalog", "branch", "txn", "algebra", "gossip".
func Named(root Logger, name string) Logger {
	if root == nil {
		root = Root("info")
	}
	return root.Named(name)
}

// Nop returns a logger that discards everything, used as the default when a
// component is constructed without an explicit logger (tests, simulation
// harness runs).
func Nop() Logger {
	return hclog.NewNullLogger()
}
