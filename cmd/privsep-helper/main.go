/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command privsep-helper is the rootwrap-mode helper binary: it connects
// back to the socket its unprivileged parent is listening on, recovers the
// Context it was told to serve, and runs the daemon loop until the client
// disconnects.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/channel"
	"github.com/sentryd/privsep/daemon"
	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/internal/sysutil"

	_ "github.com/sentryd/privsep/example"
)

var (
	contextFlag  = flag.String("privsep_context", "", "global lookup path of the context to serve")
	sockPathFlag = flag.String("privsep_sock_path", "", "path to connect back to")
	configFiles  multiFlag
	configDirs   multiFlag
)

type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint([]string(*m)) }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func init() {
	flag.Var(&configFiles, "config-file", "forwarded verbatim from the client; repeatable")
	flag.Var(&configDirs, "config-dir", "forwarded verbatim from the client; repeatable")
}

func main() {
	flag.Parse()

	if *contextFlag == "" || *sockPathFlag == "" {
		fmt.Fprintln(os.Stderr, "privsep-helper: --privsep_context and --privsep_sock_path are required")
		os.Exit(1)
	}

	c, found := privsep.Lookup(*contextFlag)
	if !found {
		fmt.Fprintf(os.Stderr, "privsep-helper: no context registered at lookup path %q\n", *contextFlag)
		os.Exit(1)
	}

	conn, err := net.Dial("unix", *sockPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "privsep-helper: connect to %s: %v\n", *sockPathFlag, err)
		os.Exit(1)
	}

	c.Logger().Info("helper starting", logging.KV("platform", sysutil.PlatformString()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var shuttingDown atomic.Bool
	go func() {
		sig := sysutil.WaitForQuit()
		fmt.Fprintf(os.Stderr, "privsep-helper: received %v, shutting down\n", sig)
		shuttingDown.Store(true)
		cancel()
		conn.Close()
	}()

	sc := channel.NewServer(conn)
	if err := daemon.Run(ctx, c, sc); err != nil && !shuttingDown.Load() {
		fmt.Fprintf(os.Stderr, "privsep-helper: %v\n", err)
		os.Exit(1)
	}
}
