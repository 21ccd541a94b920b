// Command mvsi-ffi builds as a C archive (`go build -buildmode=c-archive`)
// exposing the rollback session to a native host process: a game client
// that wants to host a match embeds this archive and calls StartServer /
// IsPortOpen directly instead of spawning a subprocess.
package main

/*
#include <stdbool.h>
*/
import "C"

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/logging"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/registry"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/session"
)

// portAvailable mirrors the original's global AtomicBool: false once a bind
// attempt on the configured port has failed.
var portAvailable atomic.Bool

func init() { portAvailable.Store(true) }

// activeSession holds the session created by the most recent StartServer
// call whose port probe succeeded; nothing in this package reads it.
var activeSession atomic.Pointer[session.Session]

// StartServer binds the rollback session's UDP socket on port and, if
// successful, runs its receive loop in a background goroutine — the Go
// analogue of spawning a small runtime thread to host an async server, the
// way the original's FFI layer spins up a single-threaded Tokio runtime.
//
//export StartServer
func StartServer(port C.int, registryURL *C.char) {
	addr := fmt.Sprintf("0.0.0.0:%d", int(port))

	probe, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		portAvailable.Store(false)
		return
	}
	_ = probe.Close()

	reg := registry.New(C.GoString(registryURL))
	sess := session.NewSession(
		session.WithListenAddr(addr),
		session.WithRegistry(reg),
		session.WithLogger(logging.L()),
	)
	activeSession.Store(sess)

	go func() {
		if err := sess.Serve(context.Background()); err != nil {
			logging.L().Error("ffi_server_error", "error", err)
		}
	}()
}

// IsPortOpen reports false once any StartServer call's port probe has
// failed, and true before that (including before the first call).
//
//export IsPortOpen
func IsPortOpen() C.bool {
	return C.bool(portAvailable.Load())
}

func main() {}
