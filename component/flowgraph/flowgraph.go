// Package flowgraph provides flow graph analysis and validation for component connections.
package flowgraph

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
)

// FlowGraph represents a directed graph of component connections
type FlowGraph struct {
	nodes map[string]*ComponentNode // componentName -> node
	edges []FlowEdge
}

// ComponentNode represents a component in the flow graph
type ComponentNode struct {
	ComponentName string
	Component     component.Discoverable
	InputPorts    []PortInfo
	OutputPorts   []PortInfo
}

// PortInfo contains port metadata for graph analysis
type PortInfo struct {
	Name         string
	Direction    component.Direction
	ConnectionID string // Subject, or directory path for file ports
	Pattern      InteractionPattern
	Interface    *component.InterfaceContract
	Required     bool
}

// FlowEdge represents a connection between two component ports
type FlowEdge struct {
	From         ComponentPortRef   `json:"from"`
	To           ComponentPortRef   `json:"to"`
	Pattern      InteractionPattern `json:"pattern"`
	ConnectionID string             `json:"connection_id"`
	Interface    string             `json:"interface,omitempty"`
}

// ComponentPortRef references a specific port on a component
type ComponentPortRef struct {
	ComponentName string `json:"component_name"`
	PortName      string `json:"port_name"`
}

// String renders the reference as component.port
func (r ComponentPortRef) String() string {
	return r.ComponentName + "." + r.PortName
}

// InteractionPattern defines the type of interaction between components
type InteractionPattern string

const (
	// PatternStream represents NATSPort and JetStreamPort interactions
	PatternStream InteractionPattern = "stream"
	// PatternExternal represents ports outside the bus, such as watched directories
	PatternExternal InteractionPattern = "external"
)

// FlowAnalysisResult contains the results of connectivity analysis
type FlowAnalysisResult struct {
	ConnectedComponents [][]string         `json:"connected_components"`
	ConnectedEdges      []FlowEdge         `json:"connected_edges"`
	DisconnectedNodes   []DisconnectedNode `json:"disconnected_nodes"`
	OrphanedPorts       []OrphanedPort     `json:"orphaned_ports"`
	ValidationStatus    string             `json:"validation_status"`
}

// DisconnectedNode represents a component with no connections
type DisconnectedNode struct {
	ComponentName string   `json:"component_name"`
	Issue         string   `json:"issue"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// OrphanedPort represents a port with no connections
type OrphanedPort struct {
	ComponentName string              `json:"component_name"`
	PortName      string              `json:"port_name"`
	Direction     component.Direction `json:"direction"`
	ConnectionID  string              `json:"connection_id"`
	Pattern       InteractionPattern  `json:"pattern"`
	Issue         string              `json:"issue"`
	Required      bool                `json:"required"`
}

// Validation statuses
const (
	StatusHealthy  = "healthy"
	StatusWarnings = "warnings"
)

// NewFlowGraph creates a new empty FlowGraph
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		nodes: make(map[string]*ComponentNode),
		edges: make([]FlowEdge, 0),
	}
}

// GetNodes returns a copy of the component nodes
func (g *FlowGraph) GetNodes() map[string]*ComponentNode {
	result := make(map[string]*ComponentNode, len(g.nodes))
	for k, v := range g.nodes {
		result[k] = &ComponentNode{
			ComponentName: v.ComponentName,
			Component:     v.Component,
			InputPorts:    slices.Clone(v.InputPorts),
			OutputPorts:   slices.Clone(v.OutputPorts),
		}
	}
	return result
}

// GetEdges returns a copy of the edges in the graph
func (g *FlowGraph) GetEdges() []FlowEdge {
	return slices.Clone(g.edges)
}

// AddComponentNode adds a component as a node in the graph
func (g *FlowGraph) AddComponentNode(name string, comp component.Discoverable) error {
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}
	if comp == nil {
		return fmt.Errorf("component cannot be nil")
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("component %s already exists in graph", name)
	}

	g.nodes[name] = &ComponentNode{
		ComponentName: name,
		Component:     comp,
		InputPorts:    extractPortInfo(comp.InputPorts()),
		OutputPorts:   extractPortInfo(comp.OutputPorts()),
	}
	return nil
}

func extractPortInfo(ports []component.Port) []PortInfo {
	result := make([]PortInfo, 0, len(ports))

	for _, port := range ports {
		info := PortInfo{
			Name:      port.Name,
			Direction: port.Direction,
			Pattern:   PatternStream,
			Required:  port.Required,
		}

		switch cfg := port.Config.(type) {
		case component.NATSPort:
			info.ConnectionID = cfg.Subject
			info.Interface = cfg.Interface
		case component.JetStreamPort:
			info.ConnectionID = port.Subject()
			info.Interface = cfg.Interface
		case component.FilePort:
			info.ConnectionID = cfg.Path
			info.Pattern = PatternExternal
		case nil:
			info.ConnectionID = "nil_port_config"
		default:
			info.ConnectionID = fmt.Sprintf("unknown_type_%T", cfg)
			info.Pattern = PatternExternal
		}

		result = append(result, info)
	}

	return result
}

// ConnectComponentsByPatterns builds edges between output and input stream
// ports whose subjects match, in either direction. It returns an error
// listing interface contract mismatches on the edges it created.
func (g *FlowGraph) ConnectComponentsByPatterns() error {
	g.edges = g.edges[:0]

	var mismatches []string

	for _, pubName := range g.sortedNodeNames() {
		for _, out := range g.nodes[pubName].OutputPorts {
			if out.Pattern != PatternStream || out.ConnectionID == "" {
				continue
			}

			for _, subName := range g.sortedNodeNames() {
				for _, in := range g.nodes[subName].InputPorts {
					if in.Pattern != PatternStream || in.ConnectionID == "" {
						continue
					}
					if !subjectsOverlap(out.ConnectionID, in.ConnectionID) {
						continue
					}

					edge := FlowEdge{
						From:         ComponentPortRef{ComponentName: pubName, PortName: out.Name},
						To:           ComponentPortRef{ComponentName: subName, PortName: in.Name},
						Pattern:      PatternStream,
						ConnectionID: out.ConnectionID,
					}
					if out.Interface != nil {
						edge.Interface = out.Interface.Type
					}
					if !compatible(out.Interface, in.Interface) {
						mismatches = append(mismatches, fmt.Sprintf("%s (%s) -> %s (%s)",
							edge.From, out.Interface.Type, edge.To, in.Interface.Type))
					}
					g.edges = append(g.edges, edge)
				}
			}
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("interface mismatch on %s", strings.Join(mismatches, ", "))
	}
	return nil
}

// subjectsOverlap reports whether a publisher subject and a subscriber
// pattern can carry the same message. Either side may hold wildcards.
func subjectsOverlap(a, b string) bool {
	return bus.MatchSubject(a, b) || bus.MatchSubject(b, a)
}

// compatible reports whether an output contract satisfies an input contract.
// A missing contract on either side is accepted.
func compatible(out, in *component.InterfaceContract) bool {
	if out == nil || in == nil {
		return true
	}
	if out.Type == in.Type {
		return true
	}
	return slices.Contains(in.Compatible, out.Type) || slices.Contains(out.Compatible, in.Type)
}

// AnalyzeConnectivity performs graph connectivity analysis
func (g *FlowGraph) AnalyzeConnectivity() *FlowAnalysisResult {
	result := &FlowAnalysisResult{
		ConnectedEdges:      g.GetEdges(),
		ValidationStatus:    StatusHealthy,
		DisconnectedNodes:   []DisconnectedNode{},
		ConnectedComponents: g.findConnectedComponents(),
		OrphanedPorts:       g.findOrphanedPorts(),
	}

	for _, name := range g.sortedNodeNames() {
		if !g.hasEdge(name) && !g.hasExternalPort(name) {
			result.DisconnectedNodes = append(result.DisconnectedNodes, DisconnectedNode{
				ComponentName: name,
				Issue:         "Component has no connections",
				Suggestions:   []string{"Check port subjects", "Verify component configuration"},
			})
		}
	}

	critical := false
	for _, port := range result.OrphanedPorts {
		if port.Required {
			critical = true
			break
		}
	}

	if len(result.DisconnectedNodes) > 0 || critical {
		result.ValidationStatus = StatusWarnings
	}

	return result
}

func (g *FlowGraph) hasEdge(name string) bool {
	for _, edge := range g.edges {
		if edge.From.ComponentName == name || edge.To.ComponentName == name {
			return true
		}
	}
	return false
}

func (g *FlowGraph) hasExternalPort(name string) bool {
	node := g.nodes[name]
	for _, p := range append(slices.Clone(node.InputPorts), node.OutputPorts...) {
		if p.Pattern == PatternExternal {
			return true
		}
	}
	return false
}

// findConnectedComponents groups nodes reachable from each other through
// edges, treating edges as undirected.
func (g *FlowGraph) findConnectedComponents() [][]string {
	adj := make(map[string][]string)
	for _, edge := range g.edges {
		from, to := edge.From.ComponentName, edge.To.ComponentName
		adj[from] = append(adj[from], to)
		adj[to] = append(adj[to], from)
	}

	visited := make(map[string]bool)
	components := [][]string{}

	for _, name := range g.sortedNodeNames() {
		if visited[name] {
			continue
		}
		var cluster []string
		stack := []string{name}
		visited[name] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cluster = append(cluster, n)
			for _, next := range adj[n] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Strings(cluster)
		components = append(components, cluster)
	}

	return components
}

// findOrphanedPorts identifies stream ports with no connections. External
// ports are the boundary of the flow and are never orphaned.
func (g *FlowGraph) findOrphanedPorts() []OrphanedPort {
	connected := make(map[ComponentPortRef]bool)
	for _, edge := range g.edges {
		connected[edge.From] = true
		connected[edge.To] = true
	}

	orphaned := []OrphanedPort{}
	check := func(name string, ports []PortInfo, issue string) {
		for _, port := range ports {
			if port.Pattern == PatternExternal {
				continue
			}
			if connected[ComponentPortRef{ComponentName: name, PortName: port.Name}] {
				continue
			}
			orphaned = append(orphaned, OrphanedPort{
				ComponentName: name,
				PortName:      port.Name,
				Direction:     port.Direction,
				ConnectionID:  port.ConnectionID,
				Pattern:       port.Pattern,
				Issue:         issue,
				Required:      port.Required,
			})
		}
	}

	for _, name := range g.sortedNodeNames() {
		node := g.nodes[name]
		check(name, node.InputPorts, "no_publishers")
		check(name, node.OutputPorts, "no_subscribers")
	}

	return orphaned
}

func (g *FlowGraph) sortedNodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
