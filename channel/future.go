/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package channel implements the multiplexed request/response protocol
// shared by the privsep client and helper on top of the wire codec: a
// client-side Channel that demultiplexes replies by correlation id, and a
// server-side Channel that independently locks its read and write
// directions so a reply can be written while the next request is still
// being read.
package channel

import (
	"sync"

	"github.com/sentryd/privsep/wire"
)

// Future is the per-outstanding-call record: a single-shot result slot
// fulfilled exactly once by either a value or an error.
type Future struct {
	done chan struct{}
	once sync.Once
	msg  wire.Message
	err  error
}

// NewFuture allocates an unfulfilled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Fulfil completes the Future with a message. Only the first call has any
// effect; later calls are no-ops, matching the single-shot contract.
func (f *Future) Fulfil(msg wire.Message) {
	f.once.Do(func() {
		f.msg = msg
		close(f.done)
	})
}

// Fail completes the Future with an error.
func (f *Future) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns the channel that closes once the Future is fulfilled or
// failed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the fulfilled message and error. It must only be called
// after Done() has fired.
func (f *Future) Result() (wire.Message, error) {
	return f.msg, f.err
}
