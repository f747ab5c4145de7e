// Package display provides the off-screen surface a headful browser draws
// on. Headless browsers need none, so the headless surface is a no-op.
package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 768
	DefaultDepth  = 24
	DefaultNumber = 99

	startTimeout = 5 * time.Second
)

type Options struct {
	Headless bool
	Width    int
	Height   int
	Depth    int
	// Number is the X display number; the server listens on :Number.
	Number int
	// XvfbPath overrides the Xvfb binary looked up in PATH.
	XvfbPath string
	// SocketDir is where X servers create their sockets.
	SocketDir string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Number <= 0 {
		o.Number = DefaultNumber
	}
	if o.XvfbPath == "" {
		o.XvfbPath = "Xvfb"
	}
	if o.SocketDir == "" {
		o.SocketDir = "/tmp/.X11-unix"
	}
	return o
}

type Surface interface {
	// Env is the environment a browser needs to draw on this surface.
	Env() []string
	Size() (width, height int)
	Close() error
}

func Start(ctx context.Context, opts Options) (Surface, error) {
	opts = opts.withDefaults()
	if opts.Headless {
		return headless{width: opts.Width, height: opts.Height}, nil
	}

	x, err := startXvfb(ctx, opts)
	if err != nil {
		return nil, err
	}
	return x, nil
}

type headless struct {
	width, height int
}

func (h headless) Env() []string    { return nil }
func (h headless) Size() (int, int) { return h.width, h.height }
func (h headless) Close() error     { return nil }

type xvfb struct {
	opts Options
	cmd  *exec.Cmd
	done chan error

	once sync.Once
	err  error
}

func startXvfb(ctx context.Context, opts Options) (*xvfb, error) {
	path, err := exec.LookPath(opts.XvfbPath)
	if err != nil {
		return nil, fmt.Errorf("find Xvfb: %w", err)
	}

	display := ":" + strconv.Itoa(opts.Number)
	screen := fmt.Sprintf("%dx%dx%d", opts.Width, opts.Height, opts.Depth)

	cmd := exec.Command(path, display, "-screen", "0", screen, "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start Xvfb on %s: %w", display, err)
	}

	x := &xvfb{opts: opts, cmd: cmd, done: make(chan error, 1)}
	go func() {
		x.done <- cmd.Wait()
	}()

	if err := x.waitReady(ctx); err != nil {
		_ = x.Close()
		return nil, err
	}

	return x, nil
}

func (x *xvfb) socket() string {
	return filepath.Join(x.opts.SocketDir, "X"+strconv.Itoa(x.opts.Number))
}

func (x *xvfb) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		if _, err := os.Stat(x.socket()); err == nil {
			return nil
		}

		select {
		case err := <-x.done:
			x.done <- err
			return fmt.Errorf("Xvfb exited before it was ready: %v", err)
		case <-ctx.Done():
			return fmt.Errorf("wait for Xvfb socket %s: %w", x.socket(), ctx.Err())
		case <-tick.C:
		}
	}
}

func (x *xvfb) Env() []string {
	return []string{"DISPLAY=:" + strconv.Itoa(x.opts.Number)}
}

func (x *xvfb) Size() (int, int) {
	return x.opts.Width, x.opts.Height
}

// Close stops the X server. It is safe to call more than once.
func (x *xvfb) Close() error {
	x.once.Do(func() {
		if err := x.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			x.err = fmt.Errorf("stop Xvfb: %w", err)
			return
		}
		<-x.done
	})
	return x.err
}
