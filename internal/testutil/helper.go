// Package testutil provides child processes for tests that exercise real
// process supervision. Test binaries re-execute themselves: TestMain calls
// RunHelperIfRequested, which takes over the process when the first argument
// is HelperArg and otherwise returns immediately.
package testutil

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/giantswarm/duolaunch/internal/netutil"
)

// HelperArg is the first argument that switches a test binary into helper mode.
const HelperArg = "duolaunch-test-helper"

// IgnoringTermLine is printed by ModeIgnoreTerm once SIGTERM is ignored.
// Tests wait for it before stopping the helper.
const IgnoringTermLine = "ignoring SIGTERM"

// Ports is shared by every test in a binary so parallel tests never receive
// the same free port.
var Ports = netutil.NewPortRegistry(nil)

// Helper modes.
const (
	// ModeListen listens on 127.0.0.1:<port> until terminated.
	ModeListen = "listen"
	// ModeListenAfter sleeps <delay> and then behaves like ModeListen.
	ModeListenAfter = "listen-after"
	// ModeListenFor listens on <port> for <duration>, then exits 0.
	ModeListenFor = "listen-for"
	// ModeIgnoreTerm ignores SIGTERM and sleeps <duration>.
	ModeIgnoreTerm = "ignore-term"
	// ModeSleep sleeps <duration> and exits 0.
	ModeSleep = "sleep"
	// ModeExit sleeps <delay> and exits with <code>.
	ModeExit = "exit"
	// ModeLines writes <n> lines to stdout and <m> lines to stderr, then exits 0.
	ModeLines = "lines"
)

// RunHelperIfRequested runs the helper selected by os.Args and exits the
// process when the binary was started in helper mode. Call it first thing
// in TestMain.
func RunHelperIfRequested() {
	if len(os.Args) < 3 || os.Args[1] != HelperArg {
		return
	}
	os.Exit(runHelper(os.Args[2], os.Args[3:]))
}

// Executable returns the path of the running test binary.
func Executable(tb testing.TB) string {
	tb.Helper()
	path, err := os.Executable()
	if err != nil {
		tb.Fatalf("resolve test executable: %v", err)
	}
	return path
}

// Args builds the argument list for a helper child in the given mode.
func Args(mode string, params ...string) []string {
	return append([]string{HelperArg, mode}, params...)
}

// FreePort allocates a loopback port nobody listens on and releases it
// from the registry when the test ends.
func FreePort(tb testing.TB) int {
	tb.Helper()
	port, err := Ports.Allocate()
	if err != nil {
		tb.Fatalf("allocate port: %v", err)
	}
	tb.Cleanup(func() { Ports.Release(port) })
	return port
}

func runHelper(mode string, params []string) int {
	switch mode {
	case ModeListen:
		return listen(param(params, 0))
	case ModeListenFor:
		time.AfterFunc(duration(param(params, 1)), func() { os.Exit(0) })
		return listen(param(params, 0))
	case ModeListenAfter:
		time.Sleep(duration(param(params, 0)))
		return listen(param(params, 1))
	case ModeIgnoreTerm:
		signal.Ignore(syscall.SIGTERM)
		fmt.Fprintln(os.Stdout, IgnoringTermLine)
		time.Sleep(duration(param(params, 0)))
		return 0
	case ModeSleep:
		time.Sleep(duration(param(params, 0)))
		return 0
	case ModeExit:
		time.Sleep(duration(param(params, 1)))
		code, _ := strconv.Atoi(param(params, 0))
		return code
	case ModeLines:
		stdout, _ := strconv.Atoi(param(params, 0))
		stderr, _ := strconv.Atoi(param(params, 1))
		for i := 0; i < stdout; i++ {
			fmt.Fprintf(os.Stdout, "stdout line %d\n", i+1)
		}
		for i := 0; i < stderr; i++ {
			fmt.Fprintf(os.Stderr, "stderr line %d\n", i+1)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		return 2
	}
}

// listen accepts and closes connections until the process is signaled.
// SIGTERM keeps its default disposition, so the helper cooperates with a
// graceful stop.
func listen(port string) int {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "listening on %s\n", l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			return 1
		}
		_ = conn.Close()
	}
}

func param(params []string, i int) string {
	if i < len(params) {
		return params[i]
	}
	return ""
}

func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}
