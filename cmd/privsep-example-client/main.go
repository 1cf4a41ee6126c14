/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command privsep-example-client drives six scenarios against a helper
// started with the self-exec strategy: echo-through-helper, a mode flip,
// 1000 concurrent calls, a timeout that doesn't wedge the channel, a
// custom error round trip, and filtered log forwarding.
//
// Run it directly (it re-execs itself as the helper, no separate binary or
// sudo needed): go run ./cmd/privsep-example-client
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sentryd/privsep/bootstrap"
	"github.com/sentryd/privsep/example"
)

func main() {
	bootstrap.RunHelper(context.Background(), os.Args[1:])

	ctx := context.Background()
	c := example.Ctx
	c.Logger().AddWriter(os.Stderr)
	if err := c.Start(ctx, bootstrap.SelfExec{}); err != nil {
		fatal("start", err)
	}
	defer c.Stop()

	scenarioEchoThroughHelper(ctx)
	scenarioModeFlip(ctx)
	scenarioConcurrency(ctx)
	scenarioTimeout(ctx)
	scenarioCustomError(ctx)
	scenarioLogForwarding(ctx)

	fmt.Println("all scenarios passed")
}

func fatal(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
