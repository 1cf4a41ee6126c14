/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package channel

import (
	"io"
	"sync"

	"github.com/sentryd/privsep/wire"
)

// Server is the privileged side of one privsep channel. Recv and Send are
// independently locked so a reply for one message can be written while the
// dispatcher is still reading the next one.
type Server struct {
	enc *wire.Encoder
	dec *wire.Decoder
	wc  io.Closer

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewServer wraps a connected stream as a server-side channel.
func NewServer(rw io.ReadWriteCloser) *Server {
	return &Server{
		enc: wire.NewEncoder(rw),
		dec: wire.NewDecoder(rw),
		wc:  rw,
	}
}

// Recv reads the next frame, blocking until one is available. It returns
// io.EOF when the client has gone away.
func (s *Server) Recv() (id string, msg wire.Message, err error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	f, err := s.dec.Next()
	if err != nil {
		return "", wire.Message{}, err
	}
	return f.ID, f.Msg, nil
}

// Send writes one frame.
func (s *Server) Send(id string, msg wire.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.enc.Encode(wire.Frame{ID: id, Msg: msg})
}

// Close shuts down the underlying connection.
func (s *Server) Close() error {
	return s.wc.Close()
}
