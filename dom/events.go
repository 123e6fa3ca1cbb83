package dom

import "golang.org/x/net/html"

// Listener handles a dispatched event.
type Listener func(*Event)

// Event is a synthetic click travelling from Target towards the root.
type Event struct {
	Target        *html.Node
	CurrentTarget *html.Node

	stopped bool
}

// StopPropagation prevents delivery to ancestors of the current node.
// Remaining listeners on the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether propagation was stopped.
func (e *Event) Stopped() bool {
	return e.stopped
}

// AddEventListener registers l for clicks on n or its descendants.
func (d *Document) AddEventListener(n *html.Node, l Listener) {
	if n == nil || l == nil {
		return
	}
	d.listeners[n] = append(d.listeners[n], l)
}

// Listeners returns the number of listeners registered directly on n.
func (d *Document) Listeners(n *html.Node) int {
	return len(d.listeners[n])
}

// Click dispatches a click at n and bubbles it up the ancestor chain.
func (d *Document) Click(n *html.Node) *Event {
	ev := &Event{Target: n}
	for cur := n; cur != nil; cur = cur.Parent {
		ev.CurrentTarget = cur
		for _, l := range d.listeners[cur] {
			l(ev)
		}
		if ev.stopped {
			break
		}
	}
	return ev
}
