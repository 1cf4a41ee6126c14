/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logforward

import (
	"testing"

	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/wire"
)

type captureSender struct {
	sent []wire.Message
}

func (c *captureSender) Send(id string, msg wire.Message) error {
	if id != "" {
		panic("log frames must use a null correlation id")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestSinkWriteRecordShipsLogFrame(t *testing.T) {
	cs := &captureSender{}
	sink := NewSink(cs, "helper")

	err := sink.WriteRecord(logging.Record{
		Level: logging.WARN,
		Msg:   "disk getting full",
	})
	if err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if len(cs.sent) != 1 {
		t.Fatalf("expected 1 frame sent, got %d", len(cs.sent))
	}
	msg := cs.sent[0]
	if msg.Kind != wire.KindLog {
		t.Fatalf("expected KindLog, got %v", msg.Kind)
	}
	if msg.Log.Fields["processName"] != "helper" {
		t.Fatalf("expected processName field, got %v", msg.Log.Fields["processName"])
	}
	if msg.Log.Fields["msg"] != "disk getting full" {
		t.Fatalf("unexpected msg field: %v", msg.Log.Fields["msg"])
	}
}

func TestSinkOmitsExcTextWithoutErrorField(t *testing.T) {
	cs := &captureSender{}
	sink := NewSink(cs, "helper")

	err := sink.WriteRecord(logging.Record{
		Level: logging.ERROR,
		Msg:   "call failed",
	})
	if err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	msg := cs.sent[0]
	if _, ok := msg.Log.Fields["exc_text"]; ok {
		t.Fatalf("did not expect exc_text without an error field")
	}
}

func TestOOBHandlerFiltersByLevel(t *testing.T) {
	dst := logging.NewDiscardLogger()
	dst.SetLevel(logging.ERROR)

	rr := &captureRecordRelay{}
	dst.AddRecordRelay(rr)

	handler := NewOOBHandler(dst)
	handler(wire.NewLog(map[string]interface{}{
		"level": "DEBUG",
		"msg":   "should be filtered",
	}))
	handler(wire.NewLog(map[string]interface{}{
		"level":       "ERROR",
		"msg":         "should pass",
		"processName": "helper",
	}))

	if len(rr.records) != 1 {
		t.Fatalf("expected 1 record delivered, got %d", len(rr.records))
	}
	if rr.records[0].Msg != "should pass" {
		t.Fatalf("unexpected message: %q", rr.records[0].Msg)
	}
}

func TestOOBHandlerIgnoresNonLogMessages(t *testing.T) {
	dst := logging.NewDiscardLogger()
	dst.SetLevel(logging.DEBUG)
	rr := &captureRecordRelay{}
	dst.AddRecordRelay(rr)

	handler := NewOOBHandler(dst)
	handler(wire.Ping())

	if len(rr.records) != 0 {
		t.Fatalf("expected no records from a non-log message, got %d", len(rr.records))
	}
}

type captureRecordRelay struct {
	records []logging.Record
}

func (c *captureRecordRelay) WriteRecord(r logging.Record) error {
	c.records = append(c.records, r)
	return nil
}
