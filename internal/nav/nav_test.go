package nav

import (
	"reflect"
	"testing"

	"github.com/netriage/netriage/internal/filter"
	"github.com/netriage/netriage/pkg/records"
)

func TestBusDispatchOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe("first", func(Event) { order = append(order, "first") })
	bus.Subscribe("second", func(Event) { order = append(order, "second") })
	bus.Subscribe("third", func(Event) { order = append(order, "third") })

	bus.Publish(ProcessSelected{Pid: 1})

	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("dispatch order = %v, want %v", order, want)
	}
}

func TestBusSynchronousDelivery(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe("c", func(e Event) {
		if sel, ok := e.(ProcessSelected); !ok || sel.Pid != 42 {
			t.Errorf("handler got %v, want ProcessSelected pid 42", e)
		}
		delivered = true
	})

	bus.Publish(ProcessSelected{Pid: 42})

	// Dispatch is synchronous: the handler ran before Publish returned.
	if !delivered {
		t.Fatal("handler did not run before Publish returned")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe("c", func(Event) { calls++ })

	bus.Publish(HighlightExternal{})
	bus.Unsubscribe("c")
	bus.Publish(HighlightExternal{})

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestBusResubscribeKeepsPosition(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe("a", func(Event) { order = append(order, "a") })
	bus.Subscribe("b", func(Event) { order = append(order, "b") })
	bus.Subscribe("a", func(Event) { order = append(order, "a2") })

	bus.Publish(HighlightUntrusted{})

	if want := []string{"a2", "b"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("dispatch order = %v, want %v", order, want)
	}
}

func TestBusDropsRepublicationLoop(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe("loop", func(Event) {
		calls++
		bus.Publish(HighlightExternal{})
	})

	// Must terminate rather than recurse forever; the guard cuts the chain
	// at the depth limit.
	bus.Publish(HighlightExternal{})

	if calls != maxDispatchDepth {
		t.Fatalf("handler ran %d times, want %d", calls, maxDispatchDepth)
	}
}

func newTestCoordinator() (*Bus, *filter.Registry, *Coordinator) {
	bus := NewBus()
	reg := filter.NewRegistry()
	return bus, reg, NewCoordinator(bus, reg)
}

func TestCoordinatorStartsOnDashboard(t *testing.T) {
	_, _, c := newTestCoordinator()

	if got := c.ActiveView(); got != ViewDashboard {
		t.Errorf("initial view = %v, want %v", got, ViewDashboard)
	}
	if _, ok := c.Selection(); ok {
		t.Error("nothing should be selected initially")
	}
	if _, ok := c.SelectedConnection(); ok {
		t.Error("no connection should be selected initially")
	}
}

func TestCoordinatorProcessSelected(t *testing.T) {
	bus, _, c := newTestCoordinator()

	bus.Publish(ProcessSelected{Pid: 4242})

	pid, ok := c.Selection()
	if !ok || pid != 4242 {
		t.Fatalf("Selection = %d, %v; want 4242, true", pid, ok)
	}
}

func TestCoordinatorFilterByProcess(t *testing.T) {
	bus, reg, c := newTestCoordinator()

	bus.Publish(FilterByProcess{Name: "chrome.exe"})

	if got := reg.Spec(string(ViewGrid)); got.Search != "chrome.exe" {
		t.Errorf("grid spec = %+v, want Search chrome.exe", got)
	}
	if !reg.Spec(string(ViewTable)).IsZero() {
		t.Error("table spec must stay untouched")
	}
	if got := c.ActiveView(); got != ViewGrid {
		t.Errorf("active view = %v, want %v", got, ViewGrid)
	}
}

func TestCoordinatorFilterByUser(t *testing.T) {
	bus, reg, c := newTestCoordinator()

	bus.Publish(FilterByUser{Username: "alice"})

	if got := reg.Spec(string(ViewTable)); got.Username != "alice" {
		t.Errorf("table spec = %+v, want Username alice", got)
	}
	if !reg.Spec(string(ViewGrid)).IsZero() {
		t.Error("grid spec must stay untouched")
	}
	if got := c.ActiveView(); got != ViewTable {
		t.Errorf("active view = %v, want %v", got, ViewTable)
	}
}

func TestCoordinatorHighlights(t *testing.T) {
	bus, _, c := newTestCoordinator()

	bus.Publish(HighlightExternal{})
	if c.ActiveView() != ViewSecurity || c.SecurityEmphasis() != EmphasisExternal {
		t.Errorf("after external: view %v emphasis %v", c.ActiveView(), c.SecurityEmphasis())
	}

	bus.Publish(HighlightUntrusted{})
	if c.ActiveView() != ViewSecurity || c.SecurityEmphasis() != EmphasisUntrusted {
		t.Errorf("after untrusted: view %v emphasis %v", c.ActiveView(), c.SecurityEmphasis())
	}

	// Explicit activation clears emphasis.
	c.Activate(ViewDashboard)
	if c.ActiveView() != ViewDashboard || c.SecurityEmphasis() != EmphasisNone {
		t.Errorf("after activate: view %v emphasis %v", c.ActiveView(), c.SecurityEmphasis())
	}
}

func TestCoordinatorFilterByStatus(t *testing.T) {
	_, reg, c := newTestCoordinator()

	c.FilterByStatus("LISTEN")

	if got := reg.Spec(string(ViewTable)); got.Status != "LISTEN" {
		t.Errorf("table spec = %+v, want Status LISTEN", got)
	}
	if got := c.ActiveView(); got != ViewTable {
		t.Errorf("active view = %v, want %v", got, ViewTable)
	}
}

func TestCoordinatorGoToOwner(t *testing.T) {
	bus, _, c := newTestCoordinator()

	if c.GoToOwner() {
		t.Fatal("GoToOwner without a selected connection should report false")
	}

	conn := records.ConnectionRecord{Pid: 77, Name: "sshd", Laddr: "0.0.0.0", Lport: 22}
	bus.Publish(ConnectionSelected{Connection: conn})

	got, ok := c.SelectedConnection()
	if !ok || got.Lport != 22 {
		t.Fatalf("SelectedConnection = %+v, %v", got, ok)
	}

	if !c.GoToOwner() {
		t.Fatal("GoToOwner should succeed with a selected connection")
	}
	if pid, ok := c.Selection(); !ok || pid != 77 {
		t.Errorf("Selection after GoToOwner = %d, %v; want 77", pid, ok)
	}
	if got := c.ActiveView(); got != ViewTree {
		t.Errorf("active view = %v, want %v", got, ViewTree)
	}
}
