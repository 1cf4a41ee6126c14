/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package privsep

import (
	"context"
	"time"

	"github.com/sentryd/privsep/wire"
)

// EntryFunc is a privileged operation's local implementation: the function
// that actually runs in the helper. args/kwargs are exactly what the caller
// passed, after a round trip through the wire codec when invoked remotely.
type EntryFunc func(args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// EntryPoint is a callable registered against exactly one Context. Its
// Call method dispatches on the owning context's current mode: server mode
// runs fn locally, client mode marshals a CALL and waits for the reply.
type EntryPoint struct {
	ctx     *Context
	name    string
	timeout time.Duration
	fn      EntryFunc
}

// Name is the fully qualified, prefix-bearing name this entry-point was
// registered under.
func (ep *EntryPoint) Name() string { return ep.name }

// Call invokes the entry-point. In server mode it runs fn directly and
// returns its result unmarshalled; in client mode it marshals a CALL over
// the owning context's channel and waits up to the entry-point's timeout.
func (ep *EntryPoint) Call(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if ep.ctx.Mode() == ModeServer {
		return ep.fn(args, kwargs)
	}

	cli := ep.ctx.clientChannel()
	if cli == nil {
		return nil, ErrChannelNotStarted
	}

	reply, err := cli.SendAndWait(ctx, wire.NewCall(ep.name, args, kwargs), ep.timeout)
	if err != nil {
		return nil, err
	}

	switch reply.Kind {
	case wire.KindRet:
		return reply.Ret.Value, nil
	case wire.KindErr:
		return nil, reconstructError(reply.Err)
	default:
		return nil, &wireKindMismatch{got: reply.Kind}
	}
}

type wireKindMismatch struct{ got wire.Kind }

func (e *wireKindMismatch) Error() string {
	return "privsep: unexpected reply kind " + e.got.String()
}
