/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package logforward carries log records across a privsep channel so that
// a helper process -- which has no controlling terminal of its own -- can
// have its diagnostics rendered on the client side. The helper installs a
// Sink as a logging.RecordRelay; the client installs an OOBHandler on its
// channel.Client.
package logforward

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/wire"
)

// Sender is the minimal surface Sink needs from a server-side channel: the
// ability to write an out-of-band frame.
type Sender interface {
	Send(id string, msg wire.Message) error
}

// Sink implements logging.RecordRelay on the helper side. Every record
// accepted by the local Logger is serialised into a LOG frame and written
// with a null correlation id, regardless of the issuing worker's own call
// in flight -- logs are not synchronized to any reply boundary.
type Sink struct {
	sender      Sender
	processName string
}

// NewSink builds a Sink that ships records over sender, stamping each
// record's processName field with name (conventionally the context's
// string representation).
func NewSink(sender Sender, name string) *Sink {
	return &Sink{sender: sender, processName: name}
}

// WriteRecord implements logging.RecordRelay.
func (s *Sink) WriteRecord(r logging.Record) error {
	fields := map[string]interface{}{
		"level":       r.Level.String(),
		"msg":         r.Msg,
		"time":        r.Time.Format(time.RFC3339Nano),
		"processName": s.processName,
		"goos":        runtime.GOOS,
	}
	for _, sd := range r.Fields {
		// Every field is shipped in its string form; logging.KV already
		// stringifies everything but strings, so no field is dropped and
		// the LOG payload only ever carries string values here.
		fields[sd.Name] = fmt.Sprintf("%v", sd.Value)
	}
	if errField, ok := fields["error"]; ok {
		fields["exc_text"] = errField
	}
	return s.sender.Send("", wire.NewLog(fields))
}
