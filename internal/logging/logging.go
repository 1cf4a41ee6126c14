/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package logging is the ambient, pluggable logging sink the privsep core
// emits structured records through. The core never talks to a concrete
// backend directly -- it only ever calls through the Logger/Relay contract
// defined here, which the surrounding application is free to wire to a
// file, syslog, or (in the helper) to logforward.Sink.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

// Level is a logging severity, ordered from least to most severe.
type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l Level) String() string {
	switch l {
	case OFF:
		return "OFF"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// LevelFromString parses a level name, case sensitive, matching the
// canonical names above.
func LevelFromString(s string) (Level, error) {
	switch s {
	case "OFF":
		return OFF, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "CRITICAL":
		return CRITICAL, nil
	}
	return OFF, ErrInvalidLevel
}

var ErrInvalidLevel = errors.New("logging: invalid level")

// Relay receives a rendered log line alongside its timestamp. It is the
// same shape as the wider teacher ecosystem's logging relay concept:
// something that wants a copy of every emitted record without owning the
// formatting decision.
type Relay interface {
	WriteLog(time.Time, []byte) error
}

// Record is a structured record handed to a RecordRelay: level, fully
// rendered message, and key/value fields, kept around long enough for a
// transport (such as logforward) to re-serialize it without re-parsing text.
type Record struct {
	Time   time.Time
	Level  Level
	Msg    string
	Fields []rfc5424.SDParam
}

// RecordRelay receives structured records rather than rendered text. The
// helper-side logforward.Sink implements this instead of Relay so it can
// ship a Record's fields without round-tripping through a formatted line.
type RecordRelay interface {
	WriteRecord(Record) error
}

// Logger is a leveled, structured logger with pluggable output writers and
// relays. The zero value is not usable; build one with New or
// NewDiscardLogger.
type Logger struct {
	mtx  sync.Mutex
	wtrs []io.WriteCloser
	rls  []Relay
	rrls []RecordRelay
	lvl  Level
}

// New builds a Logger writing to wtr at INFO level.
func New(wtr io.WriteCloser) *Logger {
	return &Logger{wtrs: []io.WriteCloser{wtr}, lvl: INFO}
}

// NewDiscardLogger builds a Logger that drops everything; used when no
// logging destination is configured.
func NewDiscardLogger() *Logger {
	return &Logger{lvl: OFF}
}

// NewStderrLogger builds a Logger writing to stderr.
func NewStderrLogger() *Logger {
	return New(os.Stderr)
}

func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.lvl = lvl
}

func (l *Logger) GetLevel() Level {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.lvl
}

// AddWriter registers an additional raw output writer.
func (l *Logger) AddWriter(wtr io.WriteCloser) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.wtrs = append(l.wtrs, wtr)
}

// AddRelay registers a Relay that receives every rendered line that passes
// the configured level threshold; relays are filtered the same way as
// writers, at output() time.
func (l *Logger) AddRelay(r Relay) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.rls = append(l.rls, r)
}

// AddRecordRelay registers a RecordRelay.
func (l *Logger) AddRecordRelay(r RecordRelay) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.rrls = append(l.rrls, r)
}

// DeleteRecordRelay removes a previously registered RecordRelay.
func (l *Logger) DeleteRecordRelay(r RecordRelay) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for i, v := range l.rrls {
		if v == r {
			l.rrls = append(l.rrls[:i], l.rrls[i+1:]...)
			return
		}
	}
}

func (l *Logger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	var firstErr error
	for _, w := range l.wtrs {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(DEBUG, msg, sds) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(INFO, msg, sds) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(WARN, msg, sds) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(ERROR, msg, sds) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.output(CRITICAL, msg, sds)
}

func (l *Logger) Debugf(f string, args ...interface{}) {
	l.output(DEBUG, fmt.Sprintf(f, args...), nil)
}
func (l *Logger) Infof(f string, args ...interface{}) {
	l.output(INFO, fmt.Sprintf(f, args...), nil)
}
func (l *Logger) Warnf(f string, args ...interface{}) {
	l.output(WARN, fmt.Sprintf(f, args...), nil)
}
func (l *Logger) Errorf(f string, args ...interface{}) {
	l.output(ERROR, fmt.Sprintf(f, args...), nil)
}

func (l *Logger) output(lvl Level, msg string, sds []rfc5424.SDParam) {
	l.mtx.Lock()
	threshold := l.lvl
	wtrs := l.wtrs
	rls := l.rls
	rrls := l.rrls
	l.mtx.Unlock()

	if threshold == OFF || lvl < threshold {
		return
	}

	now := time.Now()
	line := []byte(renderLine(now, lvl, msg, sds))

	for _, w := range wtrs {
		w.Write(line)
	}
	for _, r := range rls {
		r.WriteLog(now, line)
	}
	rec := Record{Time: now, Level: lvl, Msg: msg, Fields: sds}
	for _, r := range rrls {
		r.WriteRecord(rec)
	}
}

func renderLine(ts time.Time, lvl Level, msg string, sds []rfc5424.SDParam) string {
	line := fmt.Sprintf("%s [%s] %s", ts.Format(time.RFC3339), lvl, msg)
	for _, sd := range sds {
		line += fmt.Sprintf(" %s=%v", sd.Name, sd.Value)
	}
	return line
}

// KV builds a structured key/value field for a log call.
func KV(name string, value interface{}) rfc5424.SDParam {
	var r rfc5424.SDParam
	r.Name = name
	switch v := value.(type) {
	case string:
		r.Value = v
	default:
		r.Value = fmt.Sprintf("%v", value)
	}
	return r
}

// KVErr builds an "error" structured field from an error value.
func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}
