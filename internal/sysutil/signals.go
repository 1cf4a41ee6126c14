/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package sysutil holds small OS-facing helpers shared by the cmd binaries.
package sysutil

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/shirou/gopsutil/host"
)

// GetQuitChannel registers and returns a channel that receives a value on
// SIGHUP, SIGINT, or SIGTERM. The returned channel is buffered by one so a
// signal delivered before the receiver is ready is not lost.
func GetQuitChannel() chan os.Signal {
	quitSig := make(chan os.Signal, 1)
	signal.Notify(quitSig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return quitSig
}

// WaitForQuit blocks until one of SIGHUP, SIGINT, or SIGTERM arrives and
// returns it.
func WaitForQuit() os.Signal {
	quitSig := GetQuitChannel()
	defer signal.Stop(quitSig)
	return <-quitSig
}

// PlatformString reports the running OS, architecture, and (on platforms
// gopsutil can identify) the host distribution and version, for inclusion
// in a helper's startup log line.
func PlatformString() string {
	platform, _, version, err := host.PlatformInformation()
	if err != nil {
		return fmt.Sprintf("%s/%s (platform lookup failed: %v)", runtime.GOOS, runtime.GOARCH, err)
	}
	return fmt.Sprintf("%s/%s [%s %s]", runtime.GOOS, runtime.GOARCH, platform, version)
}
