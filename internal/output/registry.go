package output

import (
	"fmt"

	"github.com/tuxx/shroudlock/internal/logger"
)

// ID identifies an output. On Wayland it is the wl_registry global name.
type ID uint32

// Size is a width/height pair in pixels or logical units.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether either dimension is unset.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Output represents a physical display as last reported by the compositor
type Output struct {
	ID   ID
	Name string
	Size Size
}

// Registry tracks the currently known outputs in discovery order.
// It holds cached metadata only; the compositor owns the outputs.
type Registry struct {
	order   []ID
	outputs map[ID]Output
}

// NewRegistry creates an empty output registry
func NewRegistry() *Registry {
	return &Registry{
		outputs: make(map[ID]Output),
	}
}

// List returns the known outputs in the order they were discovered
func (r *Registry) List() []Output {
	list := make([]Output, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.outputs[id])
	}
	return list
}

// Get returns the output with the given id
func (r *Registry) Get(id ID) (Output, bool) {
	o, ok := r.outputs[id]
	return o, ok
}

// Len returns the number of known outputs
func (r *Registry) Len() int {
	return len(r.order)
}

// OnAdded records a newly discovered output. A repeated add for a known id
// updates the cached metadata without changing its position.
func (r *Registry) OnAdded(o Output) {
	if _, exists := r.outputs[o.ID]; exists {
		logger.Debug("Output %d announced twice, treating as change", o.ID)
		r.outputs[o.ID] = o
		return
	}
	r.order = append(r.order, o.ID)
	r.outputs[o.ID] = o
	logger.Debug("Output added: id=%d name=%q size=%s", o.ID, o.Name, o.Size)
}

// OnChanged updates the cached metadata of an output. Unknown outputs are added.
func (r *Registry) OnChanged(o Output) {
	if _, exists := r.outputs[o.ID]; !exists {
		r.OnAdded(o)
		return
	}
	r.outputs[o.ID] = o
	logger.Debug("Output changed: id=%d name=%q size=%s", o.ID, o.Name, o.Size)
}

// OnRemoved forgets an output. Removing an unknown id is a no-op.
func (r *Registry) OnRemoved(id ID) {
	if _, exists := r.outputs[id]; !exists {
		return
	}
	delete(r.outputs, id)
	for i, known := range r.order {
		if known == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logger.Debug("Output removed: id=%d", id)
}
