/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logging

import (
	"testing"
	"time"
)

type captureRelay struct {
	lines [][]byte
}

func (c *captureRelay) WriteLog(_ time.Time, b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	c.lines = append(c.lines, cp)
	return nil
}

type captureRecordRelay struct {
	records []Record
}

func (c *captureRecordRelay) WriteRecord(r Record) error {
	c.records = append(c.records, r)
	return nil
}

func TestLevelFiltering(t *testing.T) {
	l := NewDiscardLogger()
	l.SetLevel(INFO)

	rr := &captureRecordRelay{}
	l.AddRecordRelay(rr)

	l.Debug("should be filtered")
	l.Warn("should pass", KV("code", 42))

	if len(rr.records) != 1 {
		t.Fatalf("expected exactly 1 record delivered, got %d", len(rr.records))
	}
	if rr.records[0].Level != WARN {
		t.Fatalf("expected WARN, got %v", rr.records[0].Level)
	}
	if rr.records[0].Msg != "should pass" {
		t.Fatalf("unexpected message %q", rr.records[0].Msg)
	}
}

func TestDeleteRecordRelay(t *testing.T) {
	l := NewDiscardLogger()
	l.SetLevel(DEBUG)
	rr := &captureRecordRelay{}
	l.AddRecordRelay(rr)
	l.DeleteRecordRelay(rr)
	l.Info("dropped")
	if len(rr.records) != 0 {
		t.Fatalf("expected no records after delete, got %d", len(rr.records))
	}
}

func TestLevelFromString(t *testing.T) {
	for _, lvl := range []Level{OFF, DEBUG, INFO, WARN, ERROR, CRITICAL} {
		got, err := LevelFromString(lvl.String())
		if err != nil {
			t.Fatalf("LevelFromString(%q): %v", lvl, err)
		}
		if got != lvl {
			t.Fatalf("LevelFromString(%q) = %v, want %v", lvl, got, lvl)
		}
	}
	if _, err := LevelFromString("BOGUS"); err != ErrInvalidLevel {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}
