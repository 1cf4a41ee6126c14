/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config parses the example daemon's on-disk configuration into
// privsep.Option values using the same gcfg-based intermediary-struct
// shape as the rest of this codebase's configuration handling.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gravwell/gcfg"

	"github.com/sentryd/privsep"
	"github.com/sentryd/privsep/bootstrap"
	"github.com/sentryd/privsep/capability"
	"github.com/sentryd/privsep/internal/logging"
)

const maxConfigSize int64 = 1024 * 1024 * 4

type global struct {
	Log_File           string
	Log_Level          string
	Capability         []string
	User               string
	Group              string
	Pool_Size          int
	Default_Timeout    string
	Root_Helper_Prefix string
	Helper_Command     string
	Config_File        []string
	Config_Dir         []string
}

type fileConfig struct {
	Global global
}

// Loaded is a parsed, validated configuration ready to hand its Options to
// privsep.NewContext. Logger is the same logger the Options install through
// privsep.WithLogger.
type Loaded struct {
	Options []privsep.Option
	Logger  *logging.Logger
}

// LoadFile reads and validates path: a bounded read, a gcfg unmarshal into
// an intermediary struct, then a validation pass before anything
// downstream trusts it.
func LoadFile(path string) (*Loaded, error) {
	fin, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	return load(fin)
}

func load(r io.Reader) (*Loaded, error) {
	lr := io.LimitReader(r, maxConfigSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxConfigSize {
		return nil, errors.New("config: file far too large")
	}

	var c fileConfig
	if err := gcfg.ReadStringInto(&c, string(data)); err != nil {
		return nil, err
	}
	return c.resolve()
}

func (c fileConfig) resolve() (*Loaded, error) {
	var opts []privsep.Option

	logger, err := buildLogger(c.Global.Log_File, c.Global.Log_Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts = append(opts, privsep.WithLogger(logger))

	if len(c.Global.Capability) > 0 {
		set, err := parseCapabilities(c.Global.Capability)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		opts = append(opts, privsep.WithCapabilities(set))
	}

	if strings.TrimSpace(c.Global.User) != "" {
		uid, err := lookupUID(c.Global.User)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		opts = append(opts, privsep.WithUID(uid))
	}
	if strings.TrimSpace(c.Global.Group) != "" {
		gid, err := lookupGID(c.Global.Group)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		opts = append(opts, privsep.WithGID(gid))
	}

	if c.Global.Pool_Size > 0 {
		opts = append(opts, privsep.WithPoolSize(c.Global.Pool_Size))
	}
	if strings.TrimSpace(c.Global.Default_Timeout) != "" {
		d, err := time.ParseDuration(c.Global.Default_Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid default_timeout: %w", err)
		}
		opts = append(opts, privsep.WithDefaultTimeout(d))
	}

	if strings.TrimSpace(c.Global.Root_Helper_Prefix) != "" {
		argv, err := bootstrap.SplitCommand(c.Global.Root_Helper_Prefix)
		if err != nil {
			return nil, fmt.Errorf("config: invalid root_helper_prefix: %w", err)
		}
		opts = append(opts, privsep.WithRootHelperPrefix(argv))
	}
	if strings.TrimSpace(c.Global.Helper_Command) != "" {
		argv, err := bootstrap.SplitCommand(c.Global.Helper_Command)
		if err != nil {
			return nil, fmt.Errorf("config: invalid helper_command: %w", err)
		}
		opts = append(opts, privsep.WithHelperCommand(argv))
	}

	if len(c.Global.Config_File) > 0 {
		opts = append(opts, privsep.WithConfigFiles(c.Global.Config_File))
	}
	if len(c.Global.Config_Dir) > 0 {
		opts = append(opts, privsep.WithConfigDirs(c.Global.Config_Dir))
	}

	return &Loaded{Options: opts, Logger: logger}, nil
}

func buildLogger(path, level string) (*logging.Logger, error) {
	if strings.TrimSpace(path) == "" {
		return logging.NewDiscardLogger(), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	l := logging.New(f)
	if strings.TrimSpace(level) == "" {
		return l, nil
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	return l, nil
}

func parseCapabilities(names []string) (capability.Set, error) {
	idx := make([]int, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		i, ok := capability.Index(n)
		if !ok {
			return nil, fmt.Errorf("unknown capability %q", n)
		}
		idx = append(idx, i)
	}
	return capability.NewSet(idx...), nil
}

func lookupUID(name string) (int, error) {
	if u, err := strconv.Atoi(name); err == nil {
		return u, nil
	}
	u, err := userLookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u)
}

func lookupGID(name string) (int, error) {
	if g, err := strconv.Atoi(name); err == nil {
		return g, nil
	}
	g, err := groupLookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g)
}
