/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package wire implements the self-delimiting message stream shared by the
// privsep client and helper: a tagged Message union carried inside a Frame
// that pairs it with a correlation id, encoded with encoding/gob exactly the
// way the rest of this codebase streams structured values over a connection.
package wire

import "encoding/gob"

// Kind identifies which variant of Message is populated.
type Kind int

const (
	// KindPing is a handshake probe with no payload.
	KindPing Kind = iota + 1
	// KindPong acknowledges a Ping.
	KindPong
	// KindCall requests invocation of a registered entry-point.
	KindCall
	// KindRet carries a successful call result.
	KindRet
	// KindErr carries a failed call.
	KindErr
	// KindLog carries an out-of-band log record.
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "PING"
	case KindPong:
		return "PONG"
	case KindCall:
		return "CALL"
	case KindRet:
		return "RET"
	case KindErr:
		return "ERR"
	case KindLog:
		return "LOG"
	default:
		return "UNKNOWN"
	}
}

// Call is the CALL payload: the qualified name of an entry-point plus its
// positional and keyword arguments.
type Call struct {
	Name   string
	Args   []interface{}
	Kwargs map[string]interface{}
}

// Ret is the RET payload: a successful call result.
type Ret struct {
	Value interface{}
}

// Err is the ERR payload. TypeIdentifier names the remote error class;
// Args are its construction arguments. No stack trace is carried, per the
// system's non-goals.
type Err struct {
	TypeIdentifier string
	Args           []interface{}
}

// LogRecord is the LOG payload: a flattened mapping of log record field
// names to primitive values.
type LogRecord struct {
	Fields map[string]interface{}
}

// Message is the tagged union of the six wire message kinds. Exactly one of
// the payload fields is meaningful for a given Kind; PING and PONG carry
// none.
type Message struct {
	Kind Kind
	Call *Call
	Ret  *Ret
	Err  *Err
	Log  *LogRecord
}

// Ping builds a PING message.
func Ping() Message { return Message{Kind: KindPing} }

// Pong builds a PONG message.
func Pong() Message { return Message{Kind: KindPong} }

// NewCall builds a CALL message.
func NewCall(name string, args []interface{}, kwargs map[string]interface{}) Message {
	return Message{Kind: KindCall, Call: &Call{Name: name, Args: args, Kwargs: kwargs}}
}

// NewRet builds a RET message.
func NewRet(value interface{}) Message {
	return Message{Kind: KindRet, Ret: &Ret{Value: value}}
}

// NewErr builds an ERR message.
func NewErr(typeIdentifier string, args []interface{}) Message {
	return Message{Kind: KindErr, Err: &Err{TypeIdentifier: typeIdentifier, Args: args}}
}

// NewLog builds a LOG message.
func NewLog(fields map[string]interface{}) Message {
	return Message{Kind: KindLog, Log: &LogRecord{Fields: fields}}
}

// Frame is the wire unit: a correlation id paired with a Message. ID is
// empty for out-of-band frames (logs, async notifications); the reader
// distinguishes OOB frames by this sentinel rather than a parseable nil
// value, keeping the wire payload a plain string.
type Frame struct {
	ID  string
	Msg Message
}

// IsOOB reports whether this frame carries no correlation id.
func (f Frame) IsOOB() bool {
	return f.ID == ""
}

func init() {
	// Register the concrete payload types once so gob can round-trip the
	// interface{} slots inside Call/Ret/Err args and kwargs.
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
}
