/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package channel

import "errors"

// TimeoutError is returned by SendAndWait when a call's deadline expires
// before a reply arrives. The helper is not interrupted: its eventual reply,
// if any, is discarded by the reader because the waiter has already removed
// the correlation id from the outstanding map.
type TimeoutError struct {
	ID string
}

func (e *TimeoutError) Error() string {
	return "privsep: call " + e.ID + " timed out"
}

// TransportError wraps a fatal transport failure: the socket closed or a
// write failed. Every outstanding Future is failed with the same error.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "privsep: transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError marks an unexpected or malformed frame. It is fatal to the
// call in progress but not to the channel.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "privsep: protocol error: " + e.Reason
}

// ErrClosed is returned by operations attempted on a channel that has
// already been closed.
var ErrClosed = errors.New("privsep: channel closed")
