// Package lock drives a lock session from the lock request to the confirmed
// unlock.
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/tuxx/shroudlock/internal/auth"
	"github.com/tuxx/shroudlock/internal/input"
	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/media"
	"github.com/tuxx/shroudlock/internal/output"
	"github.com/tuxx/shroudlock/internal/render"
	"github.com/tuxx/shroudlock/internal/surface"
)

const eventQueueSize = 256

// ErrUnlockFailed is returned by Run when the unlock request could not be
// sent. The compositor keeps the session locked in that case.
var ErrUnlockFailed = errors.New("failed to release the session lock")

// Compositor is the session-lock side of the display server
type Compositor interface {
	RequestLock() error
	RequestUnlock() error
}

// Hooks are notified around the lock session. Unlocked is only called after
// a confirmed unlock, never when the compositor ends the lock on its own.
type Hooks interface {
	BeforeLock()
	Locked()
	Unlocked()
}

// Config wires an orchestrator to its collaborators
type Config struct {
	Compositor    Compositor
	Surfaces      surface.Backend
	Renderer      *render.Dispatcher
	Media         media.Descriptor
	Gate          *auth.Gate
	Hooks         Hooks
	ShowIndicator bool
}

// Orchestrator owns the lock session state. All methods except Post must be
// called from the goroutine running Run.
type Orchestrator struct {
	compositor    Compositor
	backend       surface.Backend
	outputs       *output.Registry
	surfaces      *surface.Manager
	renderer      *render.Dispatcher
	media         media.Descriptor
	gate          *auth.Gate
	keys          *input.Accumulator
	hooks         Hooks
	showIndicator bool

	state   State
	exit    bool
	err     error
	notice  string
	pending uint64 // attempt in flight, 0 when none
	nextID  uint64

	events chan Event
	done   chan struct{}

	// runs an authentication attempt off the loop
	runAuth func(func())
}

// New creates an orchestrator in the Idle state
func New(cfg Config) *Orchestrator {
	desc := cfg.Media
	if desc == nil {
		desc = media.None{}
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewDispatcher(nil)
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = noHooks{}
	}

	return &Orchestrator{
		compositor:    cfg.Compositor,
		backend:       cfg.Surfaces,
		outputs:       output.NewRegistry(),
		surfaces:      surface.NewManager(cfg.Surfaces),
		renderer:      renderer,
		media:         desc,
		gate:          cfg.Gate,
		keys:          input.NewAccumulator(cfg.Gate.Buffer()),
		hooks:         hooks,
		showIndicator: cfg.ShowIndicator,
		state:         StateIdle,
		events:        make(chan Event, eventQueueSize),
		done:          make(chan struct{}),
		runAuth:       func(f func()) { go f() },
	}
}

// State returns the current state
func (o *Orchestrator) State() State { return o.state }

// Exit reports whether the session ended. It is set once and never reset.
func (o *Orchestrator) Exit() bool { return o.exit }

// Surfaces returns the number of live lock surfaces
func (o *Orchestrator) Surfaces() int { return o.surfaces.Len() }

// Post queues an event for the loop. It is safe to call from any goroutine
// and returns without delivering once the loop has stopped.
func (o *Orchestrator) Post(ev Event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

// Start requests the lock from the compositor
func (o *Orchestrator) Start() error {
	if o.state != StateIdle {
		return fmt.Errorf("cannot start lock in state %s", o.state)
	}
	o.hooks.BeforeLock()
	o.state = StateLocking
	if err := o.compositor.RequestLock(); err != nil {
		o.state = StateFinished
		return fmt.Errorf("failed to request session lock: %w", err)
	}
	logger.Info("Session lock requested")
	return nil
}

// Run starts the session and processes events until the session is over.
// Cancelling ctx stops the loop without unlocking; the compositor keeps the
// session locked once the client is gone.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)

	if err := o.Start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Warn("Stopping without unlocking: %v", ctx.Err())
			o.gate.Buffer().Clear()
			return ctx.Err()
		case ev := <-o.events:
			o.Handle(ev)
			if o.exit || o.err != nil {
				return o.err
			}
		}
	}
}

// Handle processes a single event
func (o *Orchestrator) Handle(ev Event) {
	switch e := ev.(type) {
	case Locked:
		o.onLocked()
	case Finished:
		o.onFinished()
	case UnlockConfirmed:
		o.onUnlockConfirmed()
	case OutputAdded:
		o.outputs.OnAdded(e.Output)
		o.ensureSurface(e.Output)
	case OutputChanged:
		o.outputs.OnChanged(e.Output)
		o.ensureSurface(e.Output)
	case OutputRemoved:
		o.outputs.OnRemoved(e.ID)
		o.surfaces.Destroy(e.ID)
	case Configure:
		o.onConfigure(e)
	case Key:
		o.onKey(e.Event)
	case AuthDone:
		o.onAuthDone(e)
	default:
		logger.Warn("Ignoring unknown event %T", ev)
	}
}

func (o *Orchestrator) onLocked() {
	if o.state != StateLocking {
		logger.Warn("Unexpected locked event in state %s", o.state)
		return
	}
	o.state = StateLocked
	logger.Info("Session is now locked")
	o.hooks.Locked()

	outputs := o.outputs.List()
	if len(outputs) == 0 {
		logger.Warn("No outputs known at lock time, nothing to render")
	}
	for _, out := range outputs {
		o.ensureSurface(out)
	}
}

// ensureSurface creates the lock surface of an output while locked
func (o *Orchestrator) ensureSurface(out output.Output) {
	if o.state != StateLocked {
		return
	}
	if _, exists := o.surfaces.Get(out.ID); exists {
		return
	}
	if _, err := o.surfaces.CreateFor(out); err != nil {
		logger.Error("Output %d stays without lock surface: %v", out.ID, err)
	}
}

func (o *Orchestrator) onConfigure(ev Configure) {
	s, ok := o.surfaces.Get(ev.Output)
	if !ok {
		logger.Debug("Configure for output %d without lock surface", ev.Output)
		return
	}

	if err := o.backend.AckConfigure(s.Handle, ev.Serial); err != nil {
		logger.Error("Failed to acknowledge configure %d: %v", ev.Serial, err)
	}
	s.Serial = ev.Serial

	if _, err := o.surfaces.Resize(ev.Output, ev.Size); err != nil {
		logger.Error("Skipping paint of output %d: %v", ev.Output, err)
		return
	}
	if ev.Size.IsZero() {
		logger.Debug("Output %d configured at %s, deferring paint", ev.Output, ev.Size)
		return
	}
	o.paint(s)
}

func (o *Orchestrator) paint(s *surface.LockSurface) {
	if s.Resources == nil {
		return
	}
	canvas, err := render.WrapCanvas(s.Resources.Pixels(), s.Size.Width, s.Size.Height)
	if err != nil {
		logger.Error("Cannot paint output %d: %v", s.Output, err)
		return
	}
	if err := o.renderer.Paint(canvas, o.media); err != nil {
		logger.Error("Failed to paint output %d: %v", s.Output, err)
		return
	}
	if o.showIndicator {
		render.DrawIndicator(canvas, render.Indicator{
			Length:   o.gate.Buffer().Len(),
			Failures: o.gate.Retries(),
			Notice:   o.notice,
		})
	}
	if err := o.backend.Commit(s.Handle, s.Resources); err != nil {
		logger.Error("Failed to commit output %d: %v", s.Output, err)
	}
}

func (o *Orchestrator) repaintAll() {
	if !o.showIndicator {
		return
	}
	for _, s := range o.surfaces.List() {
		o.paint(s)
	}
}

func (o *Orchestrator) onKey(ev input.KeyEvent) {
	if o.state != StateLocked {
		return
	}
	if o.pending != 0 {
		logger.Debug("Dropping key while authentication is in progress")
		return
	}

	switch o.keys.OnKey(ev) {
	case input.ActionContinue:
		o.notice = ""
		o.repaintAll()
	case input.ActionSubmit:
		o.submit()
	}
}

func (o *Orchestrator) submit() {
	o.nextID++
	id := o.nextID
	o.pending = id
	secret := o.gate.Buffer().String()
	gate := o.gate

	o.runAuth(func() {
		o.Post(AuthDone{Result: gate.Attempt(secret), attempt: id})
	})
}

func (o *Orchestrator) onAuthDone(ev AuthDone) {
	if ev.attempt != o.pending || o.state != StateLocked {
		logger.Debug("Discarding stale authentication result")
		return
	}
	o.pending = 0

	if ev.Result.Outcome != auth.Unlocked {
		o.notice = ""
		if ev.Result.Throttled {
			o.notice = "Too many attempts, try again in " + o.gate.CooldownLeft()
		}
		o.repaintAll()
		return
	}

	o.state = StateUnlocking
	if err := o.compositor.RequestUnlock(); err != nil {
		logger.Error("Unlock request failed, session stays locked: %v", err)
		o.gate.Buffer().Clear()
		o.surfaces.DestroyAll()
		o.state = StateFinished
		o.err = fmt.Errorf("%w: %v", ErrUnlockFailed, err)
		return
	}
	logger.Info("Unlock requested")
}

func (o *Orchestrator) onUnlockConfirmed() {
	if o.state != StateUnlocking {
		logger.Debug("Ignoring unlock confirmation in state %s", o.state)
		return
	}
	o.finish(true)
}

func (o *Orchestrator) onFinished() {
	if o.state == StateFinished {
		return
	}
	if o.state == StateUnlocking {
		o.finish(true)
		return
	}
	logger.Warn("Compositor ended the lock in state %s", o.state)
	o.finish(false)
}

func (o *Orchestrator) finish(unlocked bool) {
	o.pending = 0
	o.gate.Buffer().Clear()
	o.surfaces.DestroyAll()
	o.state = StateFinished
	o.exit = true
	if unlocked {
		logger.Info("Session unlocked")
		o.hooks.Unlocked()
	}
}

type noHooks struct{}

func (noHooks) BeforeLock() {}
func (noHooks) Locked()     {}
func (noHooks) Unlocked()   {}
