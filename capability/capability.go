/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package capability reads and writes the Linux per-thread capability sets
// (effective, permitted, inheritable) and the keepcaps flag that a process
// needs in order to retain capabilities across a setuid/setgid identity
// change.
package capability

import "errors"

// ErrUnsupportedPlatform is returned by the mutating calls on platforms that
// do not expose Linux capabilities. Unlike a read-only capability query,
// dropping capabilities is a security boundary: there is no safe "assume
// everything is fine" fallback, so callers must handle this explicitly.
var ErrUnsupportedPlatform = errors.New("capability: not supported on this platform")

// CapabilityError wraps a failed capability-related syscall.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return "capability: " + e.Op + ": " + e.Err.Error()
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Set is a sparse set of capability bit indices (0..63).
type Set map[int]struct{}

// NewSet builds a Set from the given indices.
func NewSet(idx ...int) Set {
	s := make(Set, len(idx))
	for _, i := range idx {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether idx is a member of the set.
func (s Set) Has(idx int) bool {
	_, ok := s[idx]
	return ok
}

// words packs a Set into the two 32-bit words the 64-bit kernel header
// (version 3, same layout as version 2) expects: low holds bits 0..31,
// high holds bits 32..63.
func (s Set) words() (low, high uint32) {
	for idx := range s {
		if idx < 0 || idx > 63 {
			continue
		}
		if idx < 32 {
			low |= 1 << uint(idx)
		} else {
			high |= 1 << uint(idx-32)
		}
	}
	return
}

func setFromWords(low, high uint32) Set {
	s := make(Set)
	for i := 0; i < 32; i++ {
		if low&(1<<uint(i)) != 0 {
			s[i] = struct{}{}
		}
	}
	for i := 0; i < 32; i++ {
		if high&(1<<uint(i)) != 0 {
			s[i+32] = struct{}{}
		}
	}
	return s
}

// name/index tables for the known Linux capabilities. Bits in range but not
// present here still round-trip through Set/GetCaps/DropAllExcept; formatting
// code must tolerate them (see Name).
var nameByIndex = map[int]string{
	0:  "CAP_CHOWN",
	1:  "CAP_DAC_OVERRIDE",
	2:  "CAP_DAC_READ_SEARCH",
	3:  "CAP_FOWNER",
	4:  "CAP_FSETID",
	5:  "CAP_KILL",
	6:  "CAP_SETGID",
	7:  "CAP_SETUID",
	8:  "CAP_SETPCAP",
	9:  "CAP_LINUX_IMMUTABLE",
	10: "CAP_NET_BIND_SERVICE",
	11: "CAP_NET_BROADCAST",
	12: "CAP_NET_ADMIN",
	13: "CAP_NET_RAW",
	14: "CAP_IPC_LOCK",
	15: "CAP_IPC_OWNER",
	16: "CAP_SYS_MODULE",
	17: "CAP_SYS_RAWIO",
	18: "CAP_SYS_CHROOT",
	19: "CAP_SYS_PTRACE",
	20: "CAP_SYS_PACCT",
	21: "CAP_SYS_ADMIN",
	22: "CAP_SYS_BOOT",
	23: "CAP_SYS_NICE",
	24: "CAP_SYS_RESOURCE",
	25: "CAP_SYS_TIME",
	26: "CAP_SYS_TTY_CONFIG",
	27: "CAP_MKNOD",
	28: "CAP_LEASE",
	29: "CAP_AUDIT_WRITE",
	30: "CAP_AUDIT_CONTROL",
	31: "CAP_SETFCAP",
	32: "CAP_MAC_OVERRIDE",
	33: "CAP_MAC_ADMIN",
	34: "CAP_SYSLOG",
	35: "CAP_WAKE_ALARM",
	36: "CAP_BLOCK_SUSPEND",
	37: "CAP_AUDIT_READ",
	38: "CAP_PERFMON",
	39: "CAP_BPF",
	40: "CAP_CHECKPOINT_RESTORE",
}

var indexByName map[string]int

func init() {
	indexByName = make(map[string]int, len(nameByIndex))
	for idx, name := range nameByIndex {
		indexByName[name] = idx
	}
}

// Name returns the canonical name of a capability index, if known.
// Per the wire protocol's 64-bit reservation, unknown-but-in-range indices
// are legal; callers that need a display string for one should fall back to
// a raw integer rendering.
func Name(idx int) (string, bool) {
	n, ok := nameByIndex[idx]
	return n, ok
}

// Index returns the bit index for a canonical capability name.
func Index(name string) (int, bool) {
	idx, ok := indexByName[name]
	return idx, ok
}
