package schema

import (
	"hqconsole/pkg/protocol"
)

// Well-known routes and topics of the console.
const (
	RouteAgents protocol.Route = "agents"
	RouteGates  protocol.Route = "gates"

	TopicInfo protocol.Topic = "info"
	TopicList protocol.Topic = "list"
)

// AgentInfo is the "info" payload of an agent or datasource.
type AgentInfo struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Datasource is one row of the agents/list payload.
type Datasource struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	Endpoint        string  `json:"endpoint,omitempty"`
	CurrentRate     float64 `json:"currentRate,omitempty"`
	LastStateChange string  `json:"lastStateChange,omitempty"`
	State           string  `json:"state,omitempty"`
}

// Gate is one row of the gates/list payload.
type Gate struct {
	CKey    string `json:"ckey"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	State   string `json:"state,omitempty"`
	// Replayable enables the replay control.
	Replayable bool `json:"replayable,omitempty"`
}

// Builtin returns a registry with the schemas of the console's own views.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := RegisterType[AgentInfo](r, AnyRoute, TopicInfo); err != nil {
		return nil, err
	}
	if err := RegisterType[[]Datasource](r, RouteAgents, TopicList); err != nil {
		return nil, err
	}
	if err := RegisterType[[]Gate](r, RouteGates, TopicList); err != nil {
		return nil, err
	}
	return r, nil
}
