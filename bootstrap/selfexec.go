/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package bootstrap implements the two ways a Context brings its helper to
// life: SelfExec, which re-execs the running binary with the privileges it
// already holds, and Rootwrap, which spawns a separately installed helper
// binary through a privilege-elevating prefix such as sudo.
//
// The original fork-based strategy is not reproduced here: a multi-threaded
// Go process cannot safely continue running goroutines past a raw fork(2),
// so SelfExec takes fork's place, trading one exec() for the same
// pre-connected-socket handoff fork would have given a single-threaded
// child.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sentryd/privsep"
)

const helperFDFlagPrefix = "--privsep-helper-fd="
const helperContextFlagPrefix = "--privsep_context="

// SelfExec bootstraps the helper by re-executing the calling binary with a
// connected socket handed over as an inherited file descriptor. It assumes
// the parent process already holds the capabilities the context will drop
// to -- the same precondition the original fork strategy had.
type SelfExec struct {
	// ExtraArgs are appended to the re-exec'd command line after the
	// privsep marker flags, useful for passing --config-file/--config-dir
	// the way Rootwrap does for its out-of-process helper.
	ExtraArgs []string
}

// Connect implements privsep.Starter.
func (s SelfExec) Connect(ctx context.Context, c *privsep.Context) (io.ReadWriteCloser, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: socketpair: %w", err)
	}
	parentFD, childFD := fds[0], fds[1]
	// Neither end may leak into the child by inheritance; the child end is
	// handed over explicitly through ExtraFiles.
	unix.CloseOnExec(parentFD)
	unix.CloseOnExec(childFD)

	if err := unix.SetNonblock(parentFD, false); err != nil {
		unix.Close(parentFD)
		unix.Close(childFD)
		return nil, fmt.Errorf("bootstrap: configure parent socket: %w", err)
	}

	childFile := os.NewFile(uintptr(childFD), "privsep-child-sock")
	defer childFile.Close()

	exe, err := os.Executable()
	if err != nil {
		unix.Close(parentFD)
		return nil, fmt.Errorf("bootstrap: resolve self path: %w", err)
	}

	argv := append([]string{
		helperFDFlagPrefix + "3",
		helperContextFlagPrefix + c.LookupPath(),
	}, s.ExtraArgs...)

	cmd := exec.CommandContext(ctx, exe, argv...)
	cmd.ExtraFiles = []*os.File{childFile}
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stderr

	if err := cmd.Start(); err != nil {
		unix.Close(parentFD)
		return nil, fmt.Errorf("bootstrap: exec self: %w", err)
	}
	go cmd.Wait()

	return os.NewFile(uintptr(parentFD), "privsep-parent-sock"), nil
}

// ParseHelperArgs recognises the marker flags SelfExec appends to its
// re-exec'd command line. ok is false when argv carries no such markers,
// in which case the caller should proceed with its normal startup instead
// of entering helper mode.
func ParseHelperArgs(argv []string) (fd int, contextPath string, ok bool) {
	fd = -1
	for _, a := range argv {
		switch {
		case strings.HasPrefix(a, helperFDFlagPrefix):
			if n, err := strconv.Atoi(strings.TrimPrefix(a, helperFDFlagPrefix)); err == nil {
				fd = n
			}
		case strings.HasPrefix(a, helperContextFlagPrefix):
			contextPath = strings.TrimPrefix(a, helperContextFlagPrefix)
		}
	}
	return fd, contextPath, fd >= 0 && contextPath != ""
}
