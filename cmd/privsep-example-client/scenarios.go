/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/channel"
	"github.com/sentryd/privsep/example"
	"github.com/sentryd/privsep/internal/logging"
)

func scenarioEchoThroughHelper(ctx context.Context) {
	ep, _ := example.Ctx.Lookup(example.Prefix + ".add1")
	v, err := ep.Call(ctx, []interface{}{int64(42)}, nil)
	if err != nil {
		fatal("echo-through-helper", err)
	}
	if v.(int64) != 43 {
		fatal("echo-through-helper", fmt.Errorf("expected 43, got %v", v))
	}

	pidEP, _ := example.Ctx.Lookup(example.Prefix + ".priv_getpid")
	helperPID, err := pidEP.Call(ctx, nil, nil)
	if err != nil {
		fatal("echo-through-helper", err)
	}
	if helperPID.(int64) == int64(os.Getpid()) {
		fatal("echo-through-helper", fmt.Errorf("expected helper pid to differ from client pid"))
	}
	fmt.Println("scenario 1 (echo-through-helper): ok")
}

func scenarioModeFlip(ctx context.Context) {
	pidEP, _ := example.Ctx.Lookup(example.Prefix + ".priv_getpid")

	example.Ctx.SetMode(privsep.ModeServer)
	local, err := pidEP.Call(ctx, nil, nil)
	if err != nil {
		fatal("mode-flip", err)
	}
	if local.(int64) != int64(os.Getpid()) {
		fatal("mode-flip", fmt.Errorf("expected own pid in server mode, got %v", local))
	}

	example.Ctx.SetMode(privsep.ModeClient)
	remote, err := pidEP.Call(ctx, nil, nil)
	if err != nil {
		fatal("mode-flip", err)
	}
	if remote.(int64) == int64(os.Getpid()) {
		fatal("mode-flip", fmt.Errorf("expected helper pid in client mode"))
	}
	fmt.Println("scenario 2 (mode-flip): ok")
}

func scenarioConcurrency(ctx context.Context) {
	sleepEP, _ := example.Ctx.Lookup(example.Prefix + ".sleep")
	oneEP, _ := example.Ctx.Lookup(example.Prefix + ".one")

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := sleepEP.Call(ctx, nil, nil); err != nil {
				fatal("concurrency", err)
			}
		}()
	}
	wg.Wait()

	v, err := oneEP.Call(ctx, nil, nil)
	if err != nil {
		fatal("concurrency", err)
	}
	if v.(int64) != 1 {
		fatal("concurrency", fmt.Errorf("expected 1, got %v", v))
	}
	fmt.Println("scenario 3 (concurrency): ok")
}

func scenarioTimeout(ctx context.Context) {
	slowEP, _ := example.Ctx.Lookup(example.Prefix + ".slow")

	n := example.Ctx.PoolSize() + 1
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := slowEP.Call(ctx, []interface{}{int64(40)}, nil)
			if _, ok := err.(*channel.TimeoutError); !ok {
				fatal("timeout", fmt.Errorf("expected *channel.TimeoutError, got %v", err))
			}
		}()
	}
	wg.Wait()

	// the channel must have survived: a fast call still succeeds.
	v, err := slowEP.Call(ctx, []interface{}{int64(10)}, nil)
	if err != nil {
		fatal("timeout", err)
	}
	if v.(int64) != 42 {
		fatal("timeout", fmt.Errorf("expected 42, got %v", v))
	}
	fmt.Println("scenario 4 (timeout): ok")
}

func scenarioCustomError(ctx context.Context) {
	failEP, _ := example.Ctx.Lookup(example.Prefix + ".fail")
	_, err := failEP.Call(ctx, nil, nil)
	ce, ok := err.(*example.CustomError)
	if !ok {
		fatal("custom-error", fmt.Errorf("expected *example.CustomError, got %T: %v", err, err))
	}
	if ce.Code != 42 || ce.Msg != "omg!" {
		fatal("custom-error", fmt.Errorf("unexpected custom error: %+v", ce))
	}
	fmt.Println("scenario 5 (custom-error): ok")
}

func scenarioLogForwarding(ctx context.Context) {
	example.Ctx.Logger().SetLevel(logging.INFO)

	logsEP, _ := example.Ctx.Lookup(example.Prefix + ".logs")
	if _, err := logsEP.Call(ctx, nil, nil); err != nil {
		fatal("log-forwarding", err)
	}
	// Forwarding is asynchronous relative to the reply; give the OOB
	// handler a moment to run before the process exits.
	time.Sleep(50 * time.Millisecond)
	fmt.Println("scenario 6 (log-forwarding): ok (see log output above for the forwarded WARN)")
}
