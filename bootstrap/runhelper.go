/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/channel"
	"github.com/sentryd/privsep/daemon"
)

// RunHelper inspects argv for the markers SelfExec appends to a re-exec'd
// command line. If present, it recovers the named Context through
// privsep.Lookup, serves it off the inherited socket until the client
// disconnects, and exits the process -- it never returns. If the markers
// are absent it returns immediately, and the caller should continue its
// normal (client-side) startup.
//
// Application main functions using SelfExec must call this before doing
// anything else:
//
//	func main() {
//	    bootstrap.RunHelper(context.Background(), os.Args[1:])
//	    // ... normal client-side startup ...
//	}
func RunHelper(ctx context.Context, argv []string) {
	fd, contextPath, ok := ParseHelperArgs(argv)
	if !ok {
		return
	}

	c, found := privsep.Lookup(contextPath)
	if !found {
		fmt.Fprintf(os.Stderr, "privsep: no context registered at lookup path %q\n", contextPath)
		os.Exit(1)
	}

	sock := os.NewFile(uintptr(fd), "privsep-helper-sock")
	sc := channel.NewServer(sock)

	if err := daemon.Run(ctx, c, sc); err != nil {
		fmt.Fprintf(os.Stderr, "privsep: helper exited with error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
