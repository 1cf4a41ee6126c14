//go:build linux
// +build linux

/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capability

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const linuxCapV3 = 0x20080522

type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

// SetKeepcaps requests that the kernel preserve the calling thread's
// capability sets across a subsequent setuid/setgid identity change.
func SetKeepcaps(enable bool) error {
	var arg2 uintptr
	if enable {
		arg2 = 1
	}
	if err := unix.Prctl(unix.PR_SET_KEEPCAPS, arg2, 0, 0, 0); err != nil {
		return &CapabilityError{Op: "prctl(PR_SET_KEEPCAPS)", Err: err}
	}
	return nil
}

// DropAllExcept atomically installs the three given sets as the calling
// thread's effective, permitted, and inheritable capability sets in a single
// capset(2) call. A three-step set (effective, then permitted, then
// inheritable) would pass through intermediate states that are observably
// less privileged than intended, so this must be one syscall.
func DropAllExcept(effective, permitted, inheritable Set) error {
	hdr := capHeader{version: linuxCapV3}
	var data [2]capData

	effLow, effHigh := effective.words()
	permLow, permHigh := permitted.words()
	inhLow, inhHigh := inheritable.words()

	data[0] = capData{effective: effLow, permitted: permLow, inheritable: inhLow}
	data[1] = capData{effective: effHigh, permitted: permHigh, inheritable: inhHigh}

	_, _, errno := unix.RawSyscall(unix.SYS_CAPSET, uintptr(unsafe.Pointer(&hdr)), uintptr(unsafe.Pointer(&data)), 0)
	if errno != 0 {
		return &CapabilityError{Op: "capset", Err: errno}
	}
	return nil
}

// GetCaps reads the calling thread's current effective, permitted, and
// inheritable capability sets.
func GetCaps() (effective, permitted, inheritable Set, err error) {
	hdr := capHeader{version: linuxCapV3}
	var data [2]capData

	_, _, errno := unix.RawSyscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(&hdr)), uintptr(unsafe.Pointer(&data)), 0)
	if errno != 0 {
		err = &CapabilityError{Op: "capget", Err: errno}
		return
	}

	effLow, effHigh := data[0].effective, data[1].effective
	permLow, permHigh := data[0].permitted, data[1].permitted
	inhLow, inhHigh := data[0].inheritable, data[1].inheritable

	effective = setFromWords(effLow, effHigh)
	permitted = setFromWords(permLow, permHigh)
	inheritable = setFromWords(inhLow, inhHigh)
	return
}
