// Package nav decouples view consumers through a synchronous navigation
// event bus. A user action in one view updates filter state and requests
// another view become active without the views knowing each other.
//
// The event vocabulary is a closed set: handlers switch on the concrete
// type and the compiler keeps outside packages from adding variants.
package nav

import (
	"sync"

	"github.com/netriage/netriage/internal/logging"
	"github.com/netriage/netriage/pkg/records"
)

var log = logging.L("nav")

// View identifies one consumer surface.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewGrid      View = "grid"
	ViewIntel     View = "intel"
	ViewSecurity  View = "security"
	ViewTree      View = "tree"
	ViewTimeline  View = "timeline"
	ViewTable     View = "table"
)

// Emphasis marks what the security view should stress.
type Emphasis string

const (
	EmphasisNone      Emphasis = ""
	EmphasisExternal  Emphasis = "external"
	EmphasisUntrusted Emphasis = "untrusted"
)

// Event is one cross-view navigation message.
type Event interface {
	navEvent()
}

// ProcessSelected marks a pid as the current cross-view selection.
type ProcessSelected struct {
	Pid int32
}

// ConnectionSelected surfaces full detail for one connection and offers
// navigation to its owning process.
type ConnectionSelected struct {
	Connection records.ConnectionRecord
}

// FilterByProcess sets the grid consumer's search to a process name and
// requests the grid become active.
type FilterByProcess struct {
	Name string
}

// FilterByUser sets the table consumer's username filter and requests the
// table become active.
type FilterByUser struct {
	Username string
}

// HighlightExternal requests the security view with external connections
// emphasized.
type HighlightExternal struct{}

// HighlightUntrusted requests the security view with untrusted processes
// emphasized.
type HighlightUntrusted struct{}

func (ProcessSelected) navEvent()    {}
func (ConnectionSelected) navEvent() {}
func (FilterByProcess) navEvent()    {}
func (FilterByUser) navEvent()       {}
func (HighlightExternal) navEvent()  {}
func (HighlightUntrusted) navEvent() {}

// EventName returns a stable name for logging.
func EventName(e Event) string {
	switch e.(type) {
	case ProcessSelected:
		return "process-selected"
	case ConnectionSelected:
		return "connection-selected"
	case FilterByProcess:
		return "filter-by-process"
	case FilterByUser:
		return "filter-by-user"
	case HighlightExternal:
		return "highlight-external"
	case HighlightUntrusted:
		return "highlight-untrusted"
	default:
		return "unknown"
	}
}

// Handler receives every published event.
type Handler func(Event)

// maxDispatchDepth bounds handler re-publication chains.
const maxDispatchDepth = 8

// Bus dispatches events synchronously to subscribed consumers in
// subscription order. All handlers finish before Publish returns.
//
// Subscription is safe for concurrent use. Publication is not: handlers
// may publish follow-up events re-entrantly, but two goroutines must not
// publish at once.
type Bus struct {
	mu       sync.RWMutex
	order    []string
	handlers map[string]Handler

	depth int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

// Subscribe registers handler under consumer. Re-subscribing replaces the
// handler but keeps the consumer's dispatch position.
func (b *Bus) Subscribe(consumer string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[consumer]; !ok {
		b.order = append(b.order, consumer)
	}
	b.handlers[consumer] = h
}

// Unsubscribe removes consumer's handler.
func (b *Bus) Unsubscribe(consumer string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[consumer]; !ok {
		return
	}
	delete(b.handlers, consumer)
	for i, name := range b.order {
		if name == consumer {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish runs every subscribed handler with e, in subscription order,
// before returning. Re-publication deeper than maxDispatchDepth is dropped
// and logged as a loop.
func (b *Bus) Publish(e Event) {
	if b.depth >= maxDispatchDepth {
		log.Warn("event dropped, handler re-publication loop",
			"event", EventName(e),
			"depth", b.depth)
		return
	}
	b.depth++
	defer func() { b.depth-- }()

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, name := range b.order {
		handlers = append(handlers, b.handlers[name])
	}
	b.mu.RUnlock()

	log.Debug("publish", "event", EventName(e), "consumers", len(handlers))
	for _, h := range handlers {
		h(e)
	}
}
