package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 20 * time.Second
	// inheritedListenerEnv marks a child started by a SIGUSR2 restart; its listener is fd 3.
	inheritedListenerEnv = "WASTEWISE_INHERIT_LISTENER"
	inheritedListenerFD  = 3
)

// GraceServer serves handler on addr until SIGINT/SIGTERM, then drains in-flight requests.
// SIGUSR2 hands the listening socket to a freshly exec'd copy of the binary and drains this one.
func GraceServer(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      defaultWriteTimeout,
	}

	ln, err := listen(addr)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case sig := <-sigs:
			if sig == syscall.SIGUSR2 {
				pid, err := forkWithListener(ln)
				if err != nil {
					Sugar.Errorf("restart failed, continuing to serve: %v", err)
					continue
				}
				Sugar.Infof("started replacement process pid=%d", pid)
			}
			Sugar.Infof("received %s, draining HTTP server", sig)
			ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			err := srv.Shutdown(ctx)
			cancel()
			if err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			Sugar.Info("HTTP server stopped")
			return nil
		}
	}
}

func listen(addr string) (net.Listener, error) {
	if os.Getenv(inheritedListenerEnv) != "" {
		ln, err := net.FileListener(os.NewFile(inheritedListenerFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func forkWithListener(ln net.Listener) (int, error) {
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not a TCP listener")
	}
	f, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer f.Close()

	env := append(os.Environ(), inheritedListenerEnv+"=1")
	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), f.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}
