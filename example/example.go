/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package example is a minimal, statically registered set of entry-points
// shared between cmd/privsep-example-client and cmd/privsep-helper. Both
// binaries import it purely for its init() side effect: the privileged
// scope and its callables must be declared identically wherever they might
// run, client or server, since dynamic code loading is deliberately not
// supported.
package example

import (
	"fmt"
	"os"
	"time"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/capability"
)

const (
	Prefix     = "example"
	LookupPath = "example.context"
)

// Ctx is the single privileged scope this package declares.
var Ctx *privsep.Context

func init() {
	caps := capability.NewSet()
	if idx, ok := capability.Index("CAP_NET_BIND_SERVICE"); ok {
		caps[idx] = struct{}{}
	}

	var err error
	Ctx, err = privsep.NewContext(Prefix, LookupPath,
		privsep.WithPoolSize(4),
		privsep.WithDefaultTimeout(time.Second),
		privsep.WithCapabilities(caps),
	)
	if err != nil {
		panic(err)
	}

	privsep.RegisterErrorType("example.CustomError", func(args []interface{}) error {
		if len(args) != 2 {
			return nil
		}
		code, _ := args[0].(int64)
		msg, _ := args[1].(string)
		return &CustomError{Code: code, Msg: msg}
	})

	mustRegister(Prefix+".add1", func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	})

	mustRegister(Prefix+".priv_getpid", func([]interface{}, map[string]interface{}) (interface{}, error) {
		return int64(os.Getpid()), nil
	})

	mustRegister(Prefix+".sleep", func([]interface{}, map[string]interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return nil, nil
	})

	mustRegister(Prefix+".one", func([]interface{}, map[string]interface{}) (interface{}, error) {
		return int64(1), nil
	})

	if _, err := Ctx.RegisterWithTimeout(Prefix+".slow", 30*time.Millisecond, func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		ms := args[0].(int64)
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return int64(42), nil
	}); err != nil {
		panic(err)
	}

	mustRegister(Prefix+".fail", func([]interface{}, map[string]interface{}) (interface{}, error) {
		return nil, &CustomError{Code: 42, Msg: "omg!"}
	})

	mustRegister(Prefix+".logs", func([]interface{}, map[string]interface{}) (interface{}, error) {
		lg := Ctx.Logger()
		lg.Debug("debug detail, should be filtered")
		lg.Warn("disk getting full")
		return nil, nil
	})
}

func mustRegister(name string, fn privsep.EntryFunc) {
	if _, err := Ctx.Register(name, fn); err != nil {
		panic(err)
	}
}

// CustomError is the scenario-5 user error: a small error carrying a code
// and a message across the channel, reconstructed on the client via the
// constructor registered above instead of falling back to RemoteError.
type CustomError struct {
	Code int64
	Msg  string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

func (e *CustomError) WireError() (string, []interface{}) {
	return "example.CustomError", []interface{}{e.Code, e.Msg}
}
