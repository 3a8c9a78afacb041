package main

import (
	"github.com/spf13/cobra"

	"hqconsole/pkg/protocol"
	"hqconsole/pkg/views"
)

// dashboardFlags select what the dashboard shows at start.
type dashboardFlags struct {
	agent   string
	agentID string
	node    string
}

func (f *dashboardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.agent, "agent", "", "agent address for the agents page")
	cmd.Flags().StringVar(&f.agentID, "agent-id", "agent", "agent route for its info stream")
	cmd.Flags().StringVar(&f.node, "node", "", "hub node address for the gates page")
}

func (f *dashboardFlags) props() views.DashboardProps {
	return views.DashboardProps{
		Agent:   protocol.Address(f.agent),
		AgentID: protocol.Route(f.agentID),
		Node:    protocol.Address(f.node),
	}
}
