/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package daemon is the helper-side privilege drop and dispatch loop: it
// turns a freshly connected Context and channel.Server into a running
// privileged service that serves RPCs until its client disconnects.
package daemon

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/capability"
	"github.com/sentryd/privsep/channel"
	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/logforward"
	"github.com/sentryd/privsep/wire"
)

// Run drops c's configured privileges, wires its logger to ship records
// over sc as OOB LOG frames, flips c into server mode, and serves requests
// off sc until the client disconnects. It returns nil on a clean EOF and a
// non-nil error on any other failure.
//
// Callers are expected to invoke this from the freshly exec'd or forked
// helper process, before any other goroutine has started -- capability
// sets are thread-local kernel state, so privilege dropping must complete
// before the worker pool below is spun up.
func Run(ctx context.Context, c *privsep.Context, sc *channel.Server) error {
	logger := c.Logger()
	sink := logforward.NewSink(sc, c.String())
	logger.AddRecordRelay(sink)
	defer logger.DeleteRecordRelay(sink)
	// The helper has no terminal and the client applies its own threshold
	// on re-injection, so the helper side emits everything rather than
	// filtering twice.
	logger.SetLevel(logging.DEBUG)

	if err := os.Chdir("/"); err != nil {
		return &privsep.FailedToDropPrivileges{Err: err}
	}
	unix.Umask(0)

	if err := dropPrivileges(c); err != nil {
		return &privsep.FailedToDropPrivileges{Err: err}
	}

	// stderr is kept open for diagnostics; stdin/stdout have no use once the
	// helper is serving RPCs over sc.
	os.Stdin.Close()
	os.Stdout.Close()

	c.SetMode(privsep.ModeServer)

	return serve(ctx, c, sc, logger)
}

// dropPrivileges holds keepcaps true across the identity change so the
// capability set below survives the uid/gid switch, clears it again once
// the identity change is done, and only then installs the final set. If
// the identity change fails, the deferred clear still runs.
func dropPrivileges(c *privsep.Context) (err error) {
	if kerr := capability.SetKeepcaps(true); kerr != nil {
		return kerr
	}
	keepcapsSet := true
	defer func() {
		if !keepcapsSet {
			return
		}
		if kerr := capability.SetKeepcaps(false); kerr != nil && err == nil {
			err = kerr
		}
	}()

	if gid, ok := c.GID(); ok {
		if serr := unix.Setgroups(nil); serr != nil {
			return serr
		}
		_ = gid
	}

	if uid, ok := c.UID(); ok {
		if uid == 0 {
			return errors.New("daemon: refusing to assume uid 0")
		}
		if serr := unix.Setuid(uid); serr != nil {
			return serr
		}
	}

	if gid, ok := c.GID(); ok {
		if gid == 0 {
			return errors.New("daemon: refusing to assume gid 0")
		}
		if serr := unix.Setgid(gid); serr != nil {
			return serr
		}
	}

	keepcapsSet = false
	if kerr := capability.SetKeepcaps(false); kerr != nil {
		return kerr
	}

	caps := c.Capabilities()
	empty := capability.NewSet()
	if cerr := capability.DropAllExcept(caps, caps, empty); cerr != nil {
		return cerr
	}
	return nil
}

// serve runs the dispatch loop: PING answered synchronously, CALL resolved
// against c's registry and handed to a pool-bounded worker, anything else a
// protocol error. Worker replies are written independently of the read
// loop; once PoolSize calls are running, handing over the next CALL blocks
// the read loop until a worker finishes.
func serve(ctx context.Context, c *privsep.Context, sc *channel.Server, logger *logging.Logger) error {
	var g errgroup.Group
	g.SetLimit(c.PoolSize())

	for {
		id, msg, err := sc.Recv()
		if err != nil {
			g.Wait()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch msg.Kind {
		case wire.KindPing:
			if serr := sc.Send(id, wire.Pong()); serr != nil && !isBrokenPipe(serr) {
				logger.Warn("failed to reply to PING", logging.KVErr(serr))
			}
		case wire.KindCall:
			id, msg := id, msg
			g.Go(func() error {
				dispatchCall(ctx, c, sc, logger, id, msg)
				return nil
			})
		default:
			werr := &wire.Err{TypeIdentifier: "ProtocolError", Args: []interface{}{"unexpected message kind " + msg.Kind.String()}}
			if serr := sc.Send(id, wire.Message{Kind: wire.KindErr, Err: werr}); serr != nil && !isBrokenPipe(serr) {
				logger.Warn("failed to reply with protocol error", logging.KVErr(serr))
			}
		}
	}
}

func dispatchCall(ctx context.Context, c *privsep.Context, sc *channel.Server, logger *logging.Logger, id string, msg wire.Message) {
	ep, ok := c.Lookup(msg.Call.Name)
	if !ok || !c.IsEntryPoint(ep) {
		werr := privsep.ToWireErr(&privsep.NotEntryPoint{Name: msg.Call.Name})
		if serr := sc.Send(id, wire.Message{Kind: wire.KindErr, Err: werr}); serr != nil && !isBrokenPipe(serr) {
			logger.Warn("failed to reply with NotEntryPoint", logging.KVErr(serr))
		}
		return
	}

	value, err := ep.Call(ctx, msg.Call.Args, msg.Call.Kwargs)
	var reply wire.Message
	if err != nil {
		reply = wire.Message{Kind: wire.KindErr, Err: privsep.ToWireErr(err)}
	} else {
		reply = wire.NewRet(value)
	}
	if serr := sc.Send(id, reply); serr != nil && !isBrokenPipe(serr) {
		logger.Warn("failed to reply", logging.KV("entrypoint", msg.Call.Name), logging.KVErr(serr))
	}
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}
