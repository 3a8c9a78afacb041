package bus

import "hqconsole/pkg/protocol"

// Event types observed in the console. Consumers treat unknown types as no-ops.
const (
	EventAddGate          EventType = "addGate"
	EventEditGate         EventType = "editGate"
	EventGatesModalClosed EventType = "gatesModalClosed"
	EventAddDatasource    EventType = "addDatasource"
	EventNavBarSelection  EventType = "navBarSelection"
	// EventNodeSelectorForGates is the node selection of the gates page.
	EventNodeSelectorForGates EventType = "nodeSelectorForGates"
)

// NodeSelection is the detail of a node-selection event.
type NodeSelection struct {
	Address protocol.Address `json:"address"`
}

// NavSelection is the detail of a navigation-bar selection event.
type NavSelection struct {
	ID string `json:"id"`
}

// GateRef is the detail of an editGate event.
type GateRef struct {
	CKey string `json:"ckey"`
}

// NodeSelectorEvent returns the event type a node selector with the given id publishes.
func NodeSelectorEvent(selectorID string) EventType {
	return EventType(selectorID)
}
