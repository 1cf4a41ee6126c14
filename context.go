/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package privsep is the entry-point registry and context object binding a
// privileged scope together: which callables may run, which capabilities
// and identity the helper drops to, and whether the calling process is
// currently playing client or server for that scope.
package privsep

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentryd/privsep/capability"
	"github.com/sentryd/privsep/channel"
	"github.com/sentryd/privsep/internal/logging"
	"github.com/sentryd/privsep/logforward"
	"github.com/sentryd/privsep/wire"
)

// Mode tracks whether a Context's entry-points marshal over a channel
// (client) or execute locally (server). The daemon flips this exactly once,
// at startup; everywhere else it is read-only.
type Mode int32

const (
	ModeClient Mode = iota
	ModeServer
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

var (
	contextsMu     sync.RWMutex
	globalContexts = map[string]*Context{}
)

// Lookup finds a Context previously built with NewContext by its global
// lookup path. The rootwrap helper uses this to recover the same Context
// object the client built, across the exec boundary.
func Lookup(path string) (*Context, bool) {
	contextsMu.RLock()
	defer contextsMu.RUnlock()
	c, ok := globalContexts[path]
	return c, ok
}

// Context is a long-lived declaration of one privileged scope: which
// entry-points it owns, what identity and capabilities the helper assumes,
// and the channel it uses while in client mode.
type Context struct {
	prefix     string
	lookupPath string

	caps capability.Set
	uid  int
	hasUID bool
	gid    int
	hasGID bool

	poolSize       int
	defaultTimeout time.Duration

	rootHelperPrefix []string
	helperCommand    []string
	configFiles      []string
	configDirs       []string

	logger *logging.Logger

	mode atomic.Int32

	mu          sync.RWMutex
	entrypoints map[string]*EntryPoint
	client      *channel.Client
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithCapabilities sets the capability set the helper retains after
// dropping privileges; it is installed as both the effective and permitted
// set, never the inheritable one.
func WithCapabilities(caps capability.Set) Option {
	return func(c *Context) { c.caps = caps }
}

// WithIdentity configures the uid/gid the daemon assumes before entering
// its dispatch loop. Either may be omitted by constructing with
// WithUID/WithGID individually.
func WithIdentity(uid, gid int) Option {
	return func(c *Context) {
		c.uid, c.hasUID = uid, true
		c.gid, c.hasGID = gid, true
	}
}

func WithUID(uid int) Option {
	return func(c *Context) { c.uid, c.hasUID = uid, true }
}

func WithGID(gid int) Option {
	return func(c *Context) { c.gid, c.hasGID = gid, true }
}

// WithPoolSize bounds the number of concurrent entry-point invocations the
// daemon will run at once.
func WithPoolSize(n int) Option {
	return func(c *Context) { c.poolSize = n }
}

// WithDefaultTimeout sets the timeout new entry-points get when registered
// through Register rather than RegisterWithTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Context) { c.defaultTimeout = d }
}

// WithRootHelperPrefix sets the command prefix (e.g. {"sudo"}) used to
// elevate the helper process in rootwrap mode.
func WithRootHelperPrefix(argv []string) Option {
	return func(c *Context) { c.rootHelperPrefix = argv }
}

// WithHelperCommand overrides the default helper invocation entirely; when
// set, it is used verbatim instead of the synthesized
// "[prefix] privsep-helper --config-file ... --privsep_context ..." form.
func WithHelperCommand(argv []string) Option {
	return func(c *Context) { c.helperCommand = argv }
}

// WithConfigFiles/WithConfigDirs are forwarded verbatim, in order, to the
// rootwrap helper's command line as repeated --config-file/--config-dir
// flags.
func WithConfigFiles(paths []string) Option {
	return func(c *Context) { c.configFiles = paths }
}

func WithConfigDirs(paths []string) Option {
	return func(c *Context) { c.configDirs = paths }
}

// WithLogger sets the logger entry-point errors and channel diagnostics are
// rendered through. Defaults to a discard logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// NewContext declares a privileged scope. prefix bounds which entry-point
// names may be registered against it; lookupPath is the process-wide key a
// spawned helper uses to recover this same Context via the global context
// registry. Registering two contexts under the same lookupPath is an error.
func NewContext(prefix, lookupPath string, opts ...Option) (*Context, error) {
	contextsMu.Lock()
	defer contextsMu.Unlock()

	if _, exists := globalContexts[lookupPath]; exists {
		return nil, fmt.Errorf("privsep: context already registered at lookup path %q", lookupPath)
	}

	c := &Context{
		prefix:         prefix,
		lookupPath:     lookupPath,
		poolSize:       16,
		defaultTimeout: 30 * time.Second,
		logger:         logging.NewDiscardLogger(),
		entrypoints:    make(map[string]*EntryPoint),
	}
	for _, opt := range opts {
		opt(c)
	}
	globalContexts[lookupPath] = c
	return c, nil
}

func (c *Context) String() string { return c.lookupPath }

func (c *Context) Prefix() string     { return c.prefix }
func (c *Context) LookupPath() string { return c.lookupPath }
func (c *Context) PoolSize() int      { return c.poolSize }
func (c *Context) DefaultTimeout() time.Duration { return c.defaultTimeout }
func (c *Context) Capabilities() capability.Set  { return c.caps }
func (c *Context) Logger() *logging.Logger       { return c.logger }

func (c *Context) UID() (int, bool) { return c.uid, c.hasUID }
func (c *Context) GID() (int, bool) { return c.gid, c.hasGID }

func (c *Context) RootHelperPrefix() []string { return c.rootHelperPrefix }
func (c *Context) HelperCommand() []string    { return c.helperCommand }
func (c *Context) ConfigFiles() []string      { return c.configFiles }
func (c *Context) ConfigDirs() []string       { return c.configDirs }

// SetMode flips the context between client and server. The daemon calls
// this exactly once, at startup; outside the daemon it is normally left at
// ModeClient.
func (c *Context) SetMode(m Mode) { c.mode.Store(int32(m)) }

// Mode reports the context's current mode.
func (c *Context) Mode() Mode { return Mode(c.mode.Load()) }

// Register attaches fn as an entry-point under this context, using the
// context's default timeout. name must lie under the context's prefix.
func (c *Context) Register(name string, fn EntryFunc) (*EntryPoint, error) {
	return c.RegisterWithTimeout(name, c.defaultTimeout, fn)
}

// RegisterWithTimeout is Register with an explicit per-call timeout.
func (c *Context) RegisterWithTimeout(name string, timeout time.Duration, fn EntryFunc) (*EntryPoint, error) {
	if name != c.prefix && !strings.HasPrefix(name, c.prefix+".") {
		return nil, fmt.Errorf("privsep: entry-point %q lies outside context prefix %q", name, c.prefix)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entrypoints[name]; exists {
		return nil, fmt.Errorf("privsep: entry-point %q already registered", name)
	}
	ep := &EntryPoint{ctx: c, name: name, timeout: timeout, fn: fn}
	c.entrypoints[name] = ep
	return ep, nil
}

// Lookup resolves a CALL's name against this context's registry. Used by
// the daemon dispatch loop to find the entry-point a remote CALL names.
func (c *Context) Lookup(name string) (*EntryPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ep, ok := c.entrypoints[name]
	return ep, ok
}

// IsEntryPoint reports whether ep was registered against this exact
// context (invariant: a callable registered under C is not an entry-point
// of any other context C').
func (c *Context) IsEntryPoint(ep *EntryPoint) bool {
	return ep != nil && ep.ctx == c
}

// Starter connects a client-mode Context to its helper, returning the raw
// duplex stream the channel will run over. bootstrap.SelfExec and
// bootstrap.Rootwrap both implement this.
type Starter interface {
	Connect(ctx context.Context, c *Context) (io.ReadWriteCloser, error)
}

// ErrChannelNotStarted is returned by a client-mode entry-point call made
// before Start has completed.
var ErrChannelNotStarted = fmt.Errorf("privsep: channel not started")

// Start lazily constructs this context's client channel via the given
// Starter, performs the PING/PONG handshake, and leaves the context ready
// to marshal calls. Calling Start twice without an intervening Stop is a
// no-op returning nil.
func (c *Context) Start(ctx context.Context, starter Starter) error {
	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	rw, err := starter.Connect(ctx, c)
	if err != nil {
		return &FailedToDropPrivileges{Err: err}
	}

	cli := channel.NewClient(rw, logforward.NewOOBHandler(c.logger))

	handshakeTimeout := c.defaultTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 30 * time.Second
	}
	reply, err := cli.SendAndWait(ctx, wire.Ping(), handshakeTimeout)
	if err != nil {
		cli.Close()
		return &FailedToDropPrivileges{Err: err}
	}
	if reply.Kind != wire.KindPong {
		cli.Close()
		return &FailedToDropPrivileges{Err: fmt.Errorf("expected PONG, got %v", reply.Kind)}
	}

	c.mu.Lock()
	c.client = cli
	c.mu.Unlock()
	return nil
}

// Stop closes the client channel, if any, and forgets it so a later Start
// builds a fresh one.
func (c *Context) Stop() error {
	c.mu.Lock()
	cli := c.client
	c.client = nil
	c.mu.Unlock()
	if cli == nil {
		return nil
	}
	return cli.Close()
}

func (c *Context) clientChannel() *channel.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
