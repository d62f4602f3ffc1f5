// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/phlip9/sgx-panic-backtrace/internal/controller"

import (
	"fmt"
	"io"
	"os"

	"github.com/phlip9/sgx-panic-backtrace/imagebase"
	"github.com/phlip9/sgx-panic-backtrace/internal/log"
	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/panichook"
	"github.com/phlip9/sgx-panic-backtrace/process"
	"github.com/phlip9/sgx-panic-backtrace/unwind"
	"github.com/phlip9/sgx-panic-backtrace/vc"
)

// Controller installs the panic hook and drives the demo failure.
type Controller struct {
	config *Config
	output io.Writer
}

// New creates a new controller
// The controller installs a process-wide hook on Start. So there should only
// ever be one running.
func New(cfg *Config, opts ...Option) *Controller {
	c := &Controller{
		config: cfg,
		output: os.Stdout,
	}
	for _, opt := range opts {
		c = opt.applyOption(c)
	}
	return c
}

// HookConfig translates the CLI configuration into a hook configuration.
func (c *Controller) HookConfig() (panichook.Config, error) {
	if err := c.config.Validate(); err != nil {
		return panichook.Config{}, err
	}

	var technique imagebase.Technique
	if c.config.ImageBase != "" {
		base, err := imagebase.ParseAddress(c.config.ImageBase)
		if err != nil {
			return panichook.Config{}, err
		}
		technique = imagebase.Fixed(base)
	} else {
		var err error
		technique, err = imagebase.FromNames(c.config.BaseTechnique)
		if err != nil {
			return panichook.Config{}, err
		}
	}

	return panichook.Config{
		MaxDepth: c.config.MaxDepth,
		Walker:   c.walker(),
		Resolver: imagebase.NewResolver(technique),
		Output:   c.output,
	}, nil
}

func (c *Controller) walker() unwind.Walker {
	if c.config.Walker != WalkerFramePointer {
		return unwind.Callers{}
	}
	img, err := process.SelfImage()
	if err != nil {
		log.Warnf("Failed to find executable text, not bounding return addresses: %v", err)
		return &unwind.FramePointer{}
	}
	log.Debugf("Bounding return addresses to text 0x%x-0x%x of %s",
		img.Text.Start, img.Text.End, img.Path)
	return &unwind.FramePointer{Bounds: img.Text}
}

// exitInvalidConfig matches the exit code of flag parse errors.
const exitInvalidConfig = 2

// Start installs the panic hook.
// The controller should only be started once.
func (c *Controller) Start() error {
	cfg, err := c.HookConfig()
	if err != nil {
		return NewErrorWithExitCode(fmt.Errorf("invalid configuration: %w", err),
			exitInvalidConfig)
	}
	panichook.Install(cfg)

	log.Infof("Installed panic hook %s (revision %s, build timestamp %s)",
		vc.Version(), vc.Revision(), vc.BuildTimestamp())
	if exe, err := process.ExecutablePath(); err == nil {
		if id, err := libpf.FileIDFromExecutableFile(exe); err == nil {
			log.Debugf("Executable %s has file ID %s", exe, id.UUIDString())
		}
	}
	return nil
}

// Run calls down Recurse levels and panics with Message. The panic is
// reported by the installed hook and then propagates out of Run.
func (c *Controller) Run() {
	defer panichook.Recover()
	descend(c.config.Recurse, c.config.Message)
}

//go:noinline
func descend(depth int, msg string) {
	if depth > 0 {
		descend(depth-1, msg)
		return
	}
	panic(msg)
}

// Stats returns the counters of the installed hook.
func (c *Controller) Stats() panichook.Stats {
	return panichook.CurrentStats()
}
