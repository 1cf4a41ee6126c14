/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package channel

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sentryd/privsep/wire"
)

// OOBHandler is invoked by the reader goroutine for every frame whose
// correlation id is empty. When none is configured, such frames are dropped
// silently; nothing is logged.
type OOBHandler func(msg wire.Message)

// Client is the unprivileged side of one privsep channel: it issues calls
// and demultiplexes replies delivered by a single background reader
// goroutine. The zero value is not usable; build one with NewClient.
type Client struct {
	enc *wire.Encoder
	dec *wire.Decoder
	wc  io.Closer

	writeMu sync.Mutex

	mu          sync.Mutex
	outstanding map[string]*Future
	running     bool

	oob OOBHandler

	readerDone chan struct{}
}

// NewClient wraps a connected stream (typically a *net.UnixConn) as a
// client-side channel and starts its reader goroutine. oob may be nil, in
// which case out-of-band frames are silently dropped.
func NewClient(rw io.ReadWriteCloser, oob OOBHandler) *Client {
	c := &Client{
		enc:         wire.NewEncoder(rw),
		dec:         wire.NewDecoder(rw),
		wc:          rw,
		outstanding: make(map[string]*Future),
		running:     true,
		oob:         oob,
		readerDone:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// SendAndWait allocates a fresh correlation id, registers a Future, writes
// the frame under the writer lock, and blocks on the Future up to timeout
// (or ctx cancellation). The writer lock is never held across the wait:
// it is released immediately after the write so concurrent callers can
// interleave requests.
func (c *Client) SendAndWait(ctx context.Context, msg wire.Message, timeout time.Duration) (wire.Message, error) {
	id, err := c.freshID()
	if err != nil {
		return wire.Message{}, err
	}

	fut := NewFuture()
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return wire.Message{}, ErrClosed
	}
	c.outstanding[id] = fut
	c.mu.Unlock()

	if err := c.write(wire.Frame{ID: id, Msg: msg}); err != nil {
		c.mu.Lock()
		delete(c.outstanding, id)
		c.mu.Unlock()
		return wire.Message{}, err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-fut.Done():
		return fut.Result()
	case <-timerC:
		// The waiter, not the reader, is responsible for removing the id:
		// a late reply must find nothing in outstanding and be dropped.
		c.mu.Lock()
		delete(c.outstanding, id)
		c.mu.Unlock()
		return wire.Message{}, &TimeoutError{ID: id}
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.outstanding, id)
		c.mu.Unlock()
		return wire.Message{}, ctx.Err()
	}
}

// freshID allocates a correlation id, retrying on the astronomically rare
// collision with an id still outstanding.
func (c *Client) freshID() (string, error) {
	for i := 0; i < 8; i++ {
		id := uuid.NewString()
		c.mu.Lock()
		_, exists := c.outstanding[id]
		c.mu.Unlock()
		if !exists {
			return id, nil
		}
	}
	return "", &ProtocolError{Reason: "could not allocate a unique correlation id"}
}

func (c *Client) write(f wire.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.enc.Encode(f); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.readerDone)
	for {
		f, err := c.dec.Next()
		if err != nil {
			c.failAllOutstanding(&TransportError{Err: err})
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			return
		}
		if f.IsOOB() {
			c.handleOOB(f.Msg)
			continue
		}
		c.mu.Lock()
		fut, ok := c.outstanding[f.ID]
		if ok {
			delete(c.outstanding, f.ID)
		}
		c.mu.Unlock()
		if !ok {
			// Late reply after the waiter already timed out and removed
			// its id. It is dropped without being logged: the reader
			// holds no logger.
			continue
		}
		fut.Fulfil(f.Msg)
	}
}

func (c *Client) handleOOB(msg wire.Message) {
	if c.oob != nil {
		c.oob(msg)
	}
}

func (c *Client) failAllOutstanding(err error) {
	c.mu.Lock()
	pending := c.outstanding
	c.outstanding = make(map[string]*Future)
	c.mu.Unlock()
	for _, fut := range pending {
		fut.Fail(err)
	}
}

// Close closes the underlying stream in both directions and waits for the
// reader goroutine to terminate; calls still outstanding at that point fail
// with a TransportError.
func (c *Client) Close() error {
	err := c.wc.Close()
	<-c.readerDone
	return err
}
