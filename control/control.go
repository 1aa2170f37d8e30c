// File: control/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Controller bundles config, metrics and probes behind api.Control.

package control

import "github.com/momentics/voicering/api"

var _ api.Control = (*Controller)(nil)

// Controller is the control surface handed to the voice agent and the CLI.
type Controller struct {
	cfg     *ConfigStore
	metrics *MetricsRegistry
	probes  *DebugProbes
}

// New returns a controller with platform probes registered.
func New() *Controller {
	c := &Controller{
		cfg:     NewConfigStore(),
		metrics: NewMetricsRegistry(),
		probes:  NewDebugProbes(),
	}
	RegisterPlatformProbes(c.probes)
	return c
}

func (c *Controller) GetConfig() map[string]any                  { return c.cfg.GetSnapshot() }
func (c *Controller) SetConfig(cfg map[string]any)               { c.cfg.SetConfig(cfg) }
func (c *Controller) Stats() map[string]any                      { return c.metrics.GetSnapshot() }
func (c *Controller) OnReload(fn func())                         { c.cfg.OnReload(fn) }
func (c *Controller) RegisterDebugProbe(n string, fn func() any) { c.probes.RegisterProbe(n, fn) }

// Config returns the underlying store.
func (c *Controller) Config() *ConfigStore { return c.cfg }

// Metrics returns the underlying registry.
func (c *Controller) Metrics() *MetricsRegistry { return c.metrics }

// Probes returns the underlying probe registry.
func (c *Controller) Probes() *DebugProbes { return c.probes }
