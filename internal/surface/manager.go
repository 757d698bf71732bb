// Package surface keeps one lock surface per output while the session is locked.
package surface

import (
	"errors"
	"fmt"

	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/output"
)

var (
	// ErrExists is returned when an output already has a lock surface
	ErrExists = errors.New("lock surface already exists for output")

	// ErrUnknown is returned for outputs without a lock surface
	ErrUnknown = errors.New("no lock surface for output")
)

// Handle is the backend's reference to a created surface
type Handle interface{}

// Resources is the pixel storage of a surface. It is owned by exactly one
// LockSurface and released when the surface is resized or destroyed.
type Resources interface {
	Pixels() []byte
	Size() output.Size
	Release()
}

// Backend creates and presents surfaces on behalf of the manager
type Backend interface {
	CreateSurface(o output.Output) (Handle, error)
	Allocate(h Handle, size output.Size) (Resources, error)
	AckConfigure(h Handle, serial uint32) error
	Commit(h Handle, res Resources) error
	DestroySurface(h Handle)
}

// LockSurface is the render target of one output
type LockSurface struct {
	Output    output.ID
	Handle    Handle
	Size      output.Size
	Resources Resources
	Serial    uint32
}

// Manager is an arena of lock surfaces indexed by output id
type Manager struct {
	backend  Backend
	order    []output.ID
	surfaces map[output.ID]*LockSurface
}

// NewManager creates an empty manager
func NewManager(backend Backend) *Manager {
	return &Manager{
		backend:  backend,
		surfaces: make(map[output.ID]*LockSurface),
	}
}

// CreateFor creates the lock surface of o. Its size stays 0x0 until the first
// configure arrives.
func (m *Manager) CreateFor(o output.Output) (*LockSurface, error) {
	if _, exists := m.surfaces[o.ID]; exists {
		return nil, fmt.Errorf("%w: %d", ErrExists, o.ID)
	}

	h, err := m.backend.CreateSurface(o)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface for output %d: %w", o.ID, err)
	}

	s := &LockSurface{Output: o.ID, Handle: h}
	m.surfaces[o.ID] = s
	m.order = append(m.order, o.ID)
	logger.Debug("Created lock surface for output %d (%s)", o.ID, o.Name)
	return s, nil
}

// Get returns the lock surface of an output
func (m *Manager) Get(id output.ID) (*LockSurface, bool) {
	s, ok := m.surfaces[id]
	return s, ok
}

// Len returns the number of live lock surfaces
func (m *Manager) Len() int {
	return len(m.surfaces)
}

// List returns the lock surfaces in creation order
func (m *Manager) List() []*LockSurface {
	list := make([]*LockSurface, 0, len(m.order))
	for _, id := range m.order {
		list = append(list, m.surfaces[id])
	}
	return list
}

// Resize records a new negotiated size. Resources are reallocated only when
// the size actually changes; a zero size releases them.
func (m *Manager) Resize(id output.ID, size output.Size) (*LockSurface, error) {
	s, ok := m.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, id)
	}
	if s.Size == size && (s.Resources != nil || size.IsZero()) {
		return s, nil
	}

	if s.Resources != nil {
		s.Resources.Release()
		s.Resources = nil
	}
	s.Size = size
	if size.IsZero() {
		return s, nil
	}

	res, err := m.backend.Allocate(s.Handle, size)
	if err != nil {
		return s, fmt.Errorf("failed to allocate %s buffer for output %d: %w", size, id, err)
	}
	s.Resources = res
	logger.Debug("Allocated %s buffer for output %d", size, id)
	return s, nil
}

// Destroy releases the surface of an output. Unknown outputs are ignored.
func (m *Manager) Destroy(id output.ID) {
	s, ok := m.surfaces[id]
	if !ok {
		return
	}
	if s.Resources != nil {
		s.Resources.Release()
		s.Resources = nil
	}
	m.backend.DestroySurface(s.Handle)

	delete(m.surfaces, id)
	for i, known := range m.order {
		if known == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	logger.Debug("Destroyed lock surface for output %d", id)
}

// DestroyAll releases every surface
func (m *Manager) DestroyAll() {
	for len(m.order) > 0 {
		m.Destroy(m.order[0])
	}
}
