/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package bootstrap

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/sentryd/privsep"
)

// HelperBinaryName is the default argv[0] appended after the root helper
// prefix when no explicit helper command has been configured.
const HelperBinaryName = "privsep-helper"

// Rootwrap bootstraps the helper by spawning a separately installed helper
// binary through a privilege-elevating prefix (conventionally sudo). The
// unprivileged side listens on a private socket; the helper, once
// privileged, connects back to it -- so no listener anywhere exposes
// elevated capability to the network or other local users.
type Rootwrap struct{}

// Connect implements privsep.Starter.
func (Rootwrap) Connect(ctx context.Context, c *privsep.Context) (io.ReadWriteCloser, error) {
	dir, err := os.MkdirTemp("", "privsep-")
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create rootwrap directory: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("bootstrap: chmod rootwrap directory: %w", err)
	}
	sockPath := dir + "/helper.sock"
	cleanup := func() { os.RemoveAll(dir) }

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("bootstrap: listen on rootwrap socket: %w", err)
	}

	argv, err := helperCommand(c, sockPath)
	if err != nil {
		ln.Close()
		cleanup()
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stderr
	if err := cmd.Start(); err != nil {
		ln.Close()
		cleanup()
		return nil, fmt.Errorf("bootstrap: start rootwrap helper: %w", err)
	}

	// The helper keeps running (serving RPCs) after it connects back, so
	// Accept must race the helper's exit rather than follow it.
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		acceptCh <- acceptResult{conn, err}
	}()
	exitCh := make(chan error, 1)
	go func() { exitCh <- cmd.Wait() }()

	conn, alreadyExited, err := raceAcceptOrExit(acceptCh, exitCh)
	ln.Close()
	cleanup()
	if err != nil {
		if !alreadyExited {
			cmd.Process.Kill()
			<-exitCh
		}
		return nil, err
	}
	return &rootwrapConn{Conn: conn, cmd: cmd, exitCh: exitCh}, nil
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// raceAcceptOrExit waits for whichever comes first: a successful Accept, or
// the helper process exiting before it ever connected back. alreadyExited
// reports whether exitCh has already been drained, so the caller knows not
// to wait on it again.
func raceAcceptOrExit(acceptCh <-chan acceptResult, exitCh <-chan error) (conn net.Conn, alreadyExited bool, err error) {
	select {
	case res := <-acceptCh:
		if res.err != nil {
			return nil, false, fmt.Errorf("bootstrap: accept helper connection: %w", res.err)
		}
		return res.conn, false, nil
	case exitErr := <-exitCh:
		return nil, true, fmt.Errorf("bootstrap: rootwrap helper exited before connecting: %w", exitErr)
	}
}

// rootwrapConn pairs the accepted connection with the helper process that
// produced it, so Close reaps the helper instead of leaving it running.
type rootwrapConn struct {
	net.Conn
	cmd    *exec.Cmd
	exitCh chan error
}

func (c *rootwrapConn) Close() error {
	err := c.Conn.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	<-c.exitCh
	return err
}

// helperCommand builds the argv the rootwrap helper is spawned with. An
// explicit override (WithHelperCommand) is presumed to carry its own
// config knowledge and receives only the two mandatory flags; the default
// "[root_helper_prefix] privsep-helper" form also gets the configured
// --config-file/--config-dir flags, preserving their order.
func helperCommand(c *privsep.Context, sockPath string) ([]string, error) {
	var argv []string

	if custom := c.HelperCommand(); len(custom) > 0 {
		argv = append(argv, custom...)
	} else {
		argv = append(argv, c.RootHelperPrefix()...)
		argv = append(argv, HelperBinaryName)
		for _, f := range c.ConfigFiles() {
			argv = append(argv, "--config-file", f)
		}
		for _, d := range c.ConfigDirs() {
			argv = append(argv, "--config-dir", d)
		}
	}

	argv = append(argv,
		"--privsep_context", c.LookupPath(),
		"--privsep_sock_path", sockPath,
	)
	return argv, nil
}

// SplitCommand shell-splits a single configured command-line string on
// spaces, tolerating '#' comments. The config package uses this to turn a
// helper_command setting into the argv WithHelperCommand expects.
func SplitCommand(s string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = ' '
	r.Comment = '#'
	return r.Read()
}
