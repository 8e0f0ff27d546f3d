// Package duolaunch runs a background service and a foreground application
// as one session.
//
// The service is started first and must accept TCP connections on its port
// before the foreground application is launched. The session lasts as long
// as the foreground runs. Shutdown then stops both processes concurrently:
// SIGTERM first, SIGKILL once a process outlives its grace period or the
// overall shutdown budget runs out.
//
// # Basic Usage
//
//	import "github.com/giantswarm/duolaunch"
//
//	sess, err := duolaunch.NewSession(
//	    duolaunch.WithServiceBinary("./torrserver/torrserver"),
//	    duolaunch.WithServiceArgs("--port", "8090"),
//	    duolaunch.WithForegroundBinary("./lampa/lampa"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Shutdown()
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	res, err := sess.Run(ctx)
//	if err != nil {
//	    log.Print(err)
//	}
//	os.Exit(duolaunch.ExitCode(err))
//
// # Failures
//
// Start distinguishes a service that could not be spawned
// (ErrServiceStartup), a service that never opened its port
// (ErrServiceNotReady), and a foreground that could not be spawned
// (ErrForegroundStartup). ExitCode maps these and configuration errors to
// distinct exit codes. Output of both processes is forwarded line by line
// to the session logger; it never blocks the children.
package duolaunch
