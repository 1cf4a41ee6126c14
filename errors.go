/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package privsep

import (
	"fmt"
	"sync"

	"github.com/sentryd/privsep/wire"
)

// FailedToDropPrivileges reports that the helper could not assume its
// configured identity or capabilities, or that the initial PING/PONG
// handshake failed. Fatal to the helper.
type FailedToDropPrivileges struct {
	Err error
}

func (e *FailedToDropPrivileges) Error() string {
	return fmt.Sprintf("privsep: failed to drop privileges: %v", e.Err)
}

func (e *FailedToDropPrivileges) Unwrap() error { return e.Err }

// NotEntryPoint reports that a CALL named a function that is not
// registered against the active context.
type NotEntryPoint struct {
	Name string
}

func (e *NotEntryPoint) Error() string {
	return fmt.Sprintf("privsep: %q is not a registered entry-point", e.Name)
}

// RemoteError is the fallback reconstruction of a user error shipped from
// the helper when no constructor is registered for its type identifier.
type RemoteError struct {
	TypeIdentifier string
	Args           []interface{}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s%v", e.TypeIdentifier, e.Args)
}

// WireError lets a user-defined error control how it is shipped across the
// channel: its type identifier and the arguments to reconstruct it with.
// Errors that do not implement this are shipped under their Go type name
// with a single string argument (their Error() text).
type WireError interface {
	WireError() (identifier string, args []interface{})
}

// ErrorConstructor rebuilds a concrete error from the argument tuple shipped
// with an ERR frame.
type ErrorConstructor func(args []interface{}) error

var (
	errCtorMu sync.RWMutex
	errCtors  = map[string]ErrorConstructor{}
)

// RegisterErrorType installs a constructor the client uses to reconstruct
// errors shipped under identifier. Entry-points whose errors implement
// WireError should have a matching constructor registered so the client
// gets back a concrete type rather than a RemoteError.
func RegisterErrorType(identifier string, ctor ErrorConstructor) {
	errCtorMu.Lock()
	defer errCtorMu.Unlock()
	errCtors[identifier] = ctor
}

func reconstructError(e *wire.Err) error {
	if e == nil {
		return &RemoteError{TypeIdentifier: "unknown"}
	}
	errCtorMu.RLock()
	ctor, ok := errCtors[e.TypeIdentifier]
	errCtorMu.RUnlock()
	if ok {
		if err := ctor(e.Args); err != nil {
			return err
		}
	}
	return &RemoteError{TypeIdentifier: e.TypeIdentifier, Args: e.Args}
}

// ToWireErr turns an arbitrary error raised inside an entry-point into the
// (type_identifier, args) pair shipped in an ERR frame. Errors implementing
// WireError control their own shipping; everything else is shipped as its
// Go type name with one string argument holding Error().
func ToWireErr(err error) *wire.Err {
	if we, ok := err.(WireError); ok {
		id, args := we.WireError()
		return &wire.Err{TypeIdentifier: id, Args: args}
	}
	return &wire.Err{
		TypeIdentifier: fmt.Sprintf("%T", err),
		Args:           []interface{}{err.Error()},
	}
}
