package nav

import (
	"sync"

	"github.com/netriage/netriage/internal/filter"
	"github.com/netriage/netriage/pkg/records"
)

// Coordinator implements the defined effect of every navigation event:
// it records the cross-view selection, adjusts the filter registry for the
// targeted consumer, and tracks which view is requested active with what
// security emphasis. Views read its state; they never wire to each other.
type Coordinator struct {
	bus     *Bus
	filters *filter.Registry

	mu       sync.RWMutex
	active   View
	emphasis Emphasis

	selectedPid int32
	hasPid      bool

	selectedConn *records.ConnectionRecord
}

// NewCoordinator subscribes a coordinator to bus. The dashboard starts
// active, nothing selected.
func NewCoordinator(bus *Bus, filters *filter.Registry) *Coordinator {
	c := &Coordinator{
		bus:     bus,
		filters: filters,
		active:  ViewDashboard,
	}
	bus.Subscribe("coordinator", c.handle)
	return c
}

func (c *Coordinator) handle(e Event) {
	switch ev := e.(type) {
	case ProcessSelected:
		c.mu.Lock()
		c.selectedPid = ev.Pid
		c.hasPid = true
		c.mu.Unlock()

	case ConnectionSelected:
		conn := ev.Connection
		c.mu.Lock()
		c.selectedConn = &conn
		c.mu.Unlock()

	case FilterByProcess:
		c.filters.Update(string(ViewGrid), func(s *filter.Spec) {
			s.Search = ev.Name
		})
		c.setActive(ViewGrid, EmphasisNone)

	case FilterByUser:
		c.filters.Update(string(ViewTable), func(s *filter.Spec) {
			s.Username = ev.Username
		})
		c.setActive(ViewTable, EmphasisNone)

	case HighlightExternal:
		c.setActive(ViewSecurity, EmphasisExternal)

	case HighlightUntrusted:
		c.setActive(ViewSecurity, EmphasisUntrusted)
	}
}

func (c *Coordinator) setActive(v View, e Emphasis) {
	c.mu.Lock()
	c.active = v
	c.emphasis = e
	c.mu.Unlock()
}

// Activate switches the requested view directly, clearing any security
// emphasis. Highlight events are the only way to set emphasis.
func (c *Coordinator) Activate(v View) {
	c.setActive(v, EmphasisNone)
}

// FilterByStatus narrows the table consumer to one status and activates
// the table. A direct action, not a bus event.
func (c *Coordinator) FilterByStatus(status string) {
	c.filters.Update(string(ViewTable), func(s *filter.Spec) {
		s.Status = status
	})
	c.setActive(ViewTable, EmphasisNone)
}

// GoToOwner navigates from the selected connection to its owning process:
// it publishes the process selection and activates the tree. Returns false
// when no connection is selected.
func (c *Coordinator) GoToOwner() bool {
	c.mu.RLock()
	conn := c.selectedConn
	c.mu.RUnlock()

	if conn == nil {
		return false
	}
	c.bus.Publish(ProcessSelected{Pid: conn.Pid})
	c.setActive(ViewTree, EmphasisNone)
	return true
}

// ActiveView returns the currently requested view.
func (c *Coordinator) ActiveView() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SecurityEmphasis returns what the security view should stress.
func (c *Coordinator) SecurityEmphasis() Emphasis {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emphasis
}

// Selection returns the cross-view selected pid, if any.
func (c *Coordinator) Selection() (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedPid, c.hasPid
}

// SelectedConnection returns the connection whose detail is surfaced, if
// any.
func (c *Coordinator) SelectedConnection() (records.ConnectionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selectedConn == nil {
		return records.ConnectionRecord{}, false
	}
	return *c.selectedConn, true
}
