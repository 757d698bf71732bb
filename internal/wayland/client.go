// Package wayland connects the lock orchestrator to a Wayland compositor
// through ext-session-lock-v1.
package wayland

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"
	ext "github.com/tuxx/wayland-ext-session-lock-go"

	"github.com/tuxx/shroudlock/internal/lock"
	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/output"
	"github.com/tuxx/shroudlock/internal/surface"
)

const (
	compositorVersion = 4
	outputVersion     = 3
	seatVersion       = 7
	shmVersion        = 1
	lockVersion       = 1

	// wl_display.sync
	displayRequestSync = 0

	dispatchInterval = 10 * time.Millisecond
)

var (
	// ErrSessionLockUnsupported means the compositor does not offer
	// ext_session_lock_manager_v1
	ErrSessionLockUnsupported = errors.New("compositor does not support ext-session-lock-v1")

	errNotLocking = errors.New("no session lock in progress")
)

var _ lock.Compositor = (*Client)(nil)
var _ surface.Backend = (*Client)(nil)

// Client owns the Wayland connection. Event handlers run on the dispatch
// goroutine and only forward events to the orchestrator; requests are made
// from the orchestrator loop.
type Client struct {
	display     *wl.Display
	registry    *wl.Registry
	compositor  *wl.Compositor
	shm         *wl.Shm
	seat        *wl.Seat
	lockManager *ext.SessionLockManager

	mu        sync.Mutex
	post      func(lock.Event)
	outputs   map[uint32]*trackedOutput
	keyboard  *keyboard
	session   *ext.SessionLock
	locked    bool
	unlocking bool

	done      chan struct{}
	closeOnce sync.Once
}

// lockSurface is the surface.Handle of a lock surface
type lockSurface struct {
	output  output.ID
	surface *wl.Surface
	lock    *ext.SessionLockSurface
}

// NewClient creates an unconnected client
func NewClient() *Client {
	return &Client{
		outputs: make(map[uint32]*trackedOutput),
		done:    make(chan struct{}),
	}
}

// Connect opens the display, binds the globals and forwards output and
// keyboard events to post from then on.
func (c *Client) Connect(post func(lock.Event)) error {
	c.post = post

	display, err := wlclient.DisplayConnect(nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	c.display = display

	registry, err := display.GetRegistry()
	if err != nil {
		return fmt.Errorf("failed to get registry: %w", err)
	}
	c.registry = registry
	registry.AddGlobalHandler(c)
	registry.AddGlobalRemoveHandler(c)

	if err := wlclient.DisplayRoundtrip(display); err != nil {
		return fmt.Errorf("failed to process registry events: %w", err)
	}

	if c.lockManager == nil {
		return ErrSessionLockUnsupported
	}
	if c.compositor == nil || c.shm == nil {
		return errors.New("missing required Wayland interfaces")
	}
	if c.seat == nil {
		logger.Warn("No seat found, keyboard input will not be available")
	}

	// Second roundtrip delivers output modes and seat capabilities
	if err := wlclient.DisplayRoundtrip(display); err != nil {
		return fmt.Errorf("failed to process output events: %w", err)
	}
	return nil
}

func (c *Client) emit(ev lock.Event) {
	if c.post != nil {
		c.post(ev)
	}
}

// HandleRegistryGlobal binds the globals the locker needs
func (c *Client) HandleRegistryGlobal(ev wl.RegistryGlobalEvent) {
	switch ev.Interface {
	case "wl_compositor":
		c.compositor = wlclient.RegistryBindCompositorInterface(c.registry, ev.Name, min(ev.Version, compositorVersion))
		logger.Debug("Bound wl_compositor")
	case "wl_shm":
		c.shm = wlclient.RegistryBindShmInterface(c.registry, ev.Name, shmVersion)
		logger.Debug("Bound wl_shm")
	case "wl_seat":
		if c.seat != nil {
			return
		}
		c.seat = wlclient.RegistryBindSeatInterface(c.registry, ev.Name, min(ev.Version, seatVersion))
		c.seat.AddCapabilitiesHandler(c)
		logger.Debug("Bound wl_seat")
	case "ext_session_lock_manager_v1":
		c.lockManager = ext.BindSessionLockManager(c.registry, ev.Name, lockVersion)
		logger.Debug("Bound ext_session_lock_manager_v1")
	case "wl_output":
		c.bindOutput(ev.Name, ev.Version)
		logger.Debug("Bound wl_output %d", ev.Name)
	}
}

// HandleRegistryGlobalRemove reports unplugged outputs
func (c *Client) HandleRegistryGlobalRemove(ev wl.RegistryGlobalRemoveEvent) {
	if c.removeOutput(ev.Name) {
		logger.Debug("wl_output %d removed", ev.Name)
	}
}

// HandleSeatCapabilities attaches to the seat keyboard when one appears
func (c *Client) HandleSeatCapabilities(ev wl.SeatCapabilitiesEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Capabilities&wl.SeatCapabilityKeyboard == 0 {
		if c.keyboard != nil {
			logger.Debug("Keyboard capability removed")
			c.keyboard.release()
			c.keyboard = nil
		}
		return
	}
	if c.keyboard != nil {
		return
	}

	proxy, err := c.seat.GetKeyboard()
	if err != nil {
		logger.Error("Failed to get keyboard: %v", err)
		return
	}
	c.keyboard = newKeyboard(proxy, c.emit)
	logger.Debug("Keyboard handlers added")
}

// requestSender sends a request on the connection
type requestSender interface {
	SendRequest(proxy wl.Proxy, opcode uint32, args ...interface{}) error
}

// sendNew sends a request creating a new object. listen runs first, so the
// dispatch goroutine cannot deliver an event for the object before its
// handlers exist.
func sendNew(ctx requestSender, target wl.Proxy, opcode uint32, listen func(), args ...interface{}) error {
	listen()
	return ctx.SendRequest(target, opcode, args...)
}

// RequestLock asks the compositor to lock the session
func (c *Client) RequestLock() error {
	ctx := c.display.Context()
	session := ext.NewSessionLock(ctx)

	c.mu.Lock()
	c.session = session
	c.locked = false
	c.unlocking = false
	c.mu.Unlock()

	err := sendNew(ctx, c.lockManager, ext.ManagerRequestLock, func() {
		ext.SessionLockAddListener(session, c)
	}, session)
	if err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		return fmt.Errorf("failed to create session lock: %w", err)
	}
	return nil
}

// HandleSessionLockLocked forwards the compositor's lock confirmation
func (c *Client) HandleSessionLockLocked(ev ext.SessionLockLockedEvent) {
	c.mu.Lock()
	c.locked = true
	c.mu.Unlock()

	logger.Debug("Compositor confirmed the lock")
	c.emit(lock.Locked{})
}

// HandleSessionLockFinished forwards the end of the lock. When it was not
// requested by us the lock object is released here.
func (c *Client) HandleSessionLockFinished(ev ext.SessionLockFinishedEvent) {
	c.mu.Lock()
	session := c.session
	locked := c.locked
	unlocking := c.unlocking
	if !unlocking {
		c.session = nil
	}
	c.mu.Unlock()

	if !unlocking && session != nil {
		if err := releaseFinished(session, locked); err != nil {
			logger.Warn("Failed to release finished session lock: %v", err)
		}
	}
	logger.Debug("Compositor finished the session lock")
	c.emit(lock.Finished{})
}

type sessionReleaser interface {
	Destroy() error
	UnlockAndDestroy() error
}

// releaseFinished disposes of a lock the compositor ended. Once locked was
// received only unlock_and_destroy is allowed; destroy is an invalid_destroy
// protocol error.
func releaseFinished(session sessionReleaser, locked bool) error {
	if locked {
		return session.UnlockAndDestroy()
	}
	return session.Destroy()
}

// RequestUnlock releases the lock. UnlockConfirmed is posted once the
// compositor has processed the request.
func (c *Client) RequestUnlock() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.unlocking = true
	c.mu.Unlock()

	if session == nil {
		return errNotLocking
	}
	if err := session.UnlockAndDestroy(); err != nil {
		return fmt.Errorf("failed to unlock session: %w", err)
	}

	ctx := c.display.Context()
	callback := wl.NewCallback(ctx)
	err := sendNew(ctx, c.display, displayRequestSync, func() {
		callback.AddDoneHandler(callbackDoneFunc(func(wl.CallbackDoneEvent) {
			c.emit(lock.UnlockConfirmed{})
		}))
	}, callback)
	if err != nil {
		return fmt.Errorf("failed to sync after unlock: %w", err)
	}
	return nil
}

type callbackDoneFunc func(wl.CallbackDoneEvent)

func (f callbackDoneFunc) HandleCallbackDone(ev wl.CallbackDoneEvent) { f(ev) }

// lockSurfaceHandler forwards configure events of one lock surface
type lockSurfaceHandler struct {
	client *Client
	output output.ID
}

func (h *lockSurfaceHandler) HandleSessionLockSurfaceConfigure(ev ext.SessionLockSurfaceConfigureEvent) {
	h.client.emit(lock.Configure{
		Output: h.output,
		Size:   output.Size{Width: int(ev.Width), Height: int(ev.Height)},
		Serial: ev.Serial,
	})
}

// CreateSurface creates a lock surface for o
func (c *Client) CreateSurface(o output.Output) (surface.Handle, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, errNotLocking
	}

	proxy, ok := c.outputProxy(o.ID)
	if !ok {
		return nil, fmt.Errorf("output %d is gone", o.ID)
	}

	s, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}

	ctx := c.display.Context()
	ls := ext.NewSessionLockSurface(ctx)
	err = sendNew(ctx, session, ext.LockRequestGetLockSurface, func() {
		ext.SessionLockSurfaceAddListener(ls, &lockSurfaceHandler{client: c, output: o.ID})
	}, ls, s, proxy)
	if err != nil {
		s.Destroy()
		return nil, fmt.Errorf("failed to get lock surface: %w", err)
	}

	return &lockSurface{output: o.ID, surface: s, lock: ls}, nil
}

// Allocate creates a shared memory buffer of size for h
func (c *Client) Allocate(h surface.Handle, size output.Size) (surface.Resources, error) {
	return newShmBuffer(c.shm, size)
}

// AckConfigure acknowledges a configure serial
func (c *Client) AckConfigure(h surface.Handle, serial uint32) error {
	ls, ok := h.(*lockSurface)
	if !ok {
		return fmt.Errorf("unexpected surface handle %T", h)
	}
	return ls.lock.AckConfigure(serial)
}

// Commit attaches the buffer to the surface and presents it
func (c *Client) Commit(h surface.Handle, res surface.Resources) error {
	ls, ok := h.(*lockSurface)
	if !ok {
		return fmt.Errorf("unexpected surface handle %T", h)
	}
	buf, ok := res.(*shmBuffer)
	if !ok {
		return fmt.Errorf("unexpected surface resources %T", res)
	}

	if err := ls.surface.Attach(buf.buffer, 0, 0); err != nil {
		return fmt.Errorf("failed to attach buffer: %w", err)
	}
	if err := ls.surface.Damage(0, 0, int32(buf.size.Width), int32(buf.size.Height)); err != nil {
		return fmt.Errorf("failed to damage surface: %w", err)
	}
	if err := ls.surface.Commit(); err != nil {
		return fmt.Errorf("failed to commit surface: %w", err)
	}
	return nil
}

// DestroySurface destroys the lock surface and its wl_surface
func (c *Client) DestroySurface(h surface.Handle) {
	ls, ok := h.(*lockSurface)
	if !ok {
		return
	}
	ls.lock.Destroy()
	ls.surface.Destroy()
}

// Run dispatches Wayland events until ctx is done or Close is called. A
// broken connection is reported to the orchestrator as Finished. The
// keyboard is released here, once no handler can run anymore.
func (c *Client) Run(ctx context.Context) error {
	defer c.releaseKeyboard()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		if err := wlclient.DisplayDispatch(c.display); err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			logger.Error("Failed to dispatch Wayland events: %v", err)
			c.emit(lock.Finished{})
			return fmt.Errorf("wayland dispatch: %w", err)
		}
		time.Sleep(dispatchInterval)
	}
}

// Close disconnects from the display
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.display != nil {
			c.display.Context().Close()
		}
	})
}

func (c *Client) releaseKeyboard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keyboard != nil {
		c.keyboard.release()
		c.keyboard = nil
	}
}
