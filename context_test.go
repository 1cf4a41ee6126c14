/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package privsep

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func freshPrefix(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("test.%s", t.Name())
}

func TestRegisterAndIsEntryPoint(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".lookup")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	other, err := NewContext(prefix+".other", prefix+".other.lookup")
	if err != nil {
		t.Fatalf("NewContext other: %v", err)
	}

	ep, err := c.Register(prefix+".add1", func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !c.IsEntryPoint(ep) {
		t.Fatalf("expected ep to be an entry-point of its own context")
	}
	if other.IsEntryPoint(ep) {
		t.Fatalf("expected ep not to be an entry-point of an unrelated context")
	}
}

func TestRegisterRejectsOutsidePrefix(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".lookup")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	_, err = c.Register("somewhere.else.fn", func([]interface{}, map[string]interface{}) (interface{}, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatalf("expected error registering outside prefix")
	}
}

func TestReRegisterSameNameFails(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".lookup")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	fn := func([]interface{}, map[string]interface{}) (interface{}, error) { return nil, nil }
	if _, err := c.Register(prefix+".f", fn); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := c.Register(prefix+".f", fn); err == nil {
		t.Fatalf("expected second registration of the same name to fail")
	}
}

func TestServerModeCallsLocally(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".lookup")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ep, err := c.Register(prefix+".add1", func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	c.SetMode(ModeServer)

	v, err := ep.Call(context.Background(), []interface{}{int64(41)}, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.(int64) != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestClientModeWithoutStartFails(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".lookup")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	ep, err := c.Register(prefix+".add1", func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		return args[0].(int64) + 1, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = ep.Call(context.Background(), []interface{}{int64(1)}, nil)
	if err != ErrChannelNotStarted {
		t.Fatalf("expected ErrChannelNotStarted, got %v", err)
	}
}

func TestDuplicateLookupPathRejected(t *testing.T) {
	prefix := freshPrefix(t)
	if _, err := NewContext(prefix, prefix+".dup"); err != nil {
		t.Fatalf("first NewContext: %v", err)
	}
	if _, err := NewContext(prefix+".x", prefix+".dup"); err == nil {
		t.Fatalf("expected duplicate lookup path to be rejected")
	}
}

func TestContextOptionsRoundTrip(t *testing.T) {
	prefix := freshPrefix(t)
	c, err := NewContext(prefix, prefix+".opts",
		WithIdentity(1000, 1000),
		WithPoolSize(4),
		WithDefaultTimeout(5*time.Second),
		WithConfigFiles([]string{"/etc/a.conf"}),
		WithConfigDirs([]string{"/etc/a.d"}),
		WithRootHelperPrefix([]string{"sudo"}),
	)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if uid, ok := c.UID(); !ok || uid != 1000 {
		t.Fatalf("expected uid 1000, got %d (%v)", uid, ok)
	}
	if c.PoolSize() != 4 {
		t.Fatalf("expected pool size 4, got %d", c.PoolSize())
	}
	if len(c.ConfigFiles()) != 1 || c.ConfigFiles()[0] != "/etc/a.conf" {
		t.Fatalf("unexpected config files: %v", c.ConfigFiles())
	}
}

func TestErrorRoundTripViaRegisteredConstructor(t *testing.T) {
	type customError struct {
		Code int
		Msg  string
	}
	RegisterErrorType("privsep_test.customError", func(args []interface{}) error {
		if len(args) != 2 {
			return nil
		}
		code, _ := args[0].(int64)
		msg, _ := args[1].(string)
		return fmt.Errorf("custom(%d): %s", code, msg)
	})

	werr := ToWireErr(wireErrorStub{})
	rebuilt := reconstructError(werr)
	if rebuilt.Error() != "custom(42): omg!" {
		t.Fatalf("unexpected reconstructed error: %v", rebuilt)
	}
}

type wireErrorStub struct{}

func (wireErrorStub) Error() string { return "omg!" }
func (wireErrorStub) WireError() (string, []interface{}) {
	return "privsep_test.customError", []interface{}{int64(42), "omg!"}
}

func TestUnregisteredErrorFallsBackToRemoteError(t *testing.T) {
	werr := ToWireErr(fmt.Errorf("boom"))
	rebuilt := reconstructError(werr)
	re, ok := rebuilt.(*RemoteError)
	if !ok {
		t.Fatalf("expected *RemoteError, got %T", rebuilt)
	}
	if re.TypeIdentifier == "" {
		t.Fatalf("expected a non-empty type identifier")
	}
}
