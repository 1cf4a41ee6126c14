/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wire

import (
	"encoding/gob"
	"io"
)

// Encoder writes Frames to a stream. It is safe to call Encode from only one
// goroutine at a time; callers that need concurrent writers must serialize
// them externally (the channel package does this with a writer mutex).
type Encoder struct {
	enc *gob.Encoder
}

// NewEncoder wraps w in an Encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: gob.NewEncoder(w)}
}

// Encode writes one Frame. gob's own length-prefixing makes each call
// self-delimiting on the wire; no additional framing is needed.
func (e *Encoder) Encode(f Frame) error {
	return e.enc.Encode(f)
}

// Decoder is a pull iterator over a stream of Frames: Next blocks until a
// complete Frame is available, pulling more bytes from the underlying
// reader as needed, and returns io.EOF once the remote writer half has
// shut down.
type Decoder struct {
	dec *gob.Decoder
}

// NewDecoder wraps r in a Decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: gob.NewDecoder(r)}
}

// Next decodes and returns the next Frame on the stream.
func (d *Decoder) Next() (Frame, error) {
	var f Frame
	if err := d.dec.Decode(&f); err != nil {
		return Frame{}, err
	}
	return f, nil
}
