// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/phlip9/sgx-panic-backtrace/internal/controller"

import "io"

type Option interface {
	applyOption(*Controller) *Controller
}
type controllerOptionFunc func(*Controller) *Controller

func (f controllerOptionFunc) applyOption(c *Controller) *Controller {
	return f(c)
}

// WithOutput sets the writer reports are emitted to.
// This defaults to [os.Stdout]
func WithOutput(out io.Writer) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.output = out
		return c
	})
}
