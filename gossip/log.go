package gossip

import (
	"os"
	"sync"

	golog "github.com/whyrusleeping/go-logging"
)

var wireLibp2pLoggingOnce sync.Once

// wireLibp2pLogging points libp2p's own internal logging (which is built
// on whyrusleeping/go-logging, its canonical dependency) at stderr.
// rhizo's own subsystems log through hclog (common/logging); this only
// configures the third-party library's backend, once per process.
func wireLibp2pLogging() {
	wireLibp2pLoggingOnce.Do(func() {
		backend := golog.NewLogBackend(os.Stderr, "libp2p ", 0)
		golog.SetBackend(backend)
		golog.SetLevel(golog.WARNING, "")
	})
}
