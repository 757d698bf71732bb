package wayland

import (
	"strings"

	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"

	"github.com/tuxx/shroudlock/internal/lock"
	"github.com/tuxx/shroudlock/internal/output"
)

// trackedOutput accumulates wl_output events until the compositor sends
// done, then reports the output once as added and later as changed.
type trackedOutput struct {
	id        output.ID
	proxy     *wl.Output
	name      string
	size      output.Size
	announced bool
}

func (t *trackedOutput) geometry(vendor, model string) {
	t.name = strings.TrimSpace(vendor + " " + model)
}

func (t *trackedOutput) mode(flags uint32, width, height int32) {
	if flags&wl.OutputModeCurrent == 0 {
		return
	}
	t.size = output.Size{Width: int(width), Height: int(height)}
}

// done returns the event describing the current state of the output
func (t *trackedOutput) done() lock.Event {
	o := output.Output{ID: t.id, Name: t.name, Size: t.size}
	if !t.announced {
		t.announced = true
		return lock.OutputAdded{Output: o}
	}
	return lock.OutputChanged{Output: o}
}

type outputGeometryFunc func(wl.OutputGeometryEvent)

func (f outputGeometryFunc) HandleOutputGeometry(ev wl.OutputGeometryEvent) { f(ev) }

type outputModeFunc func(wl.OutputModeEvent)

func (f outputModeFunc) HandleOutputMode(ev wl.OutputModeEvent) { f(ev) }

type outputDoneFunc func(wl.OutputDoneEvent)

func (f outputDoneFunc) HandleOutputDone(ev wl.OutputDoneEvent) { f(ev) }

// bindOutput binds a wl_output global and starts tracking it
func (c *Client) bindOutput(name, version uint32) {
	proxy := wlclient.RegistryBindOutputInterface(c.registry, name, min(version, outputVersion))
	t := &trackedOutput{id: output.ID(name), proxy: proxy}

	c.mu.Lock()
	c.outputs[name] = t
	c.mu.Unlock()

	proxy.AddGeometryHandler(outputGeometryFunc(func(ev wl.OutputGeometryEvent) {
		c.mu.Lock()
		t.geometry(ev.Make, ev.Model)
		c.mu.Unlock()
	}))
	proxy.AddModeHandler(outputModeFunc(func(ev wl.OutputModeEvent) {
		c.mu.Lock()
		t.mode(ev.Flags, ev.Width, ev.Height)
		c.mu.Unlock()
	}))
	proxy.AddDoneHandler(outputDoneFunc(func(wl.OutputDoneEvent) {
		c.mu.Lock()
		ev := t.done()
		c.mu.Unlock()
		c.emit(ev)
	}))
}

// removeOutput forgets an output whose global went away
func (c *Client) removeOutput(name uint32) bool {
	c.mu.Lock()
	_, ok := c.outputs[name]
	delete(c.outputs, name)
	c.mu.Unlock()
	if ok {
		c.emit(lock.OutputRemoved{ID: output.ID(name)})
	}
	return ok
}

func (c *Client) outputProxy(id output.ID) (*wl.Output, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.outputs[uint32(id)]
	if !ok {
		return nil, false
	}
	return t.proxy, true
}
