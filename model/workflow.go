package model

import "fmt"

type NodeKind string

const NODE_KIND_HTTP NodeKind = "http"
const NODE_KIND_HOOK NodeKind = "hook"
const NODE_KIND_TIMER NodeKind = "timer"
const NODE_KIND_JOIN NodeKind = "join"
const NODE_KIND_NOOP NodeKind = "noop"
const NODE_KIND_WORKFLOW NodeKind = "workflow"

type EdgeKind string

const EDGE_KIND_NORMAL EdgeKind = "normal"
const EDGE_KIND_IF EdgeKind = "if"
const EDGE_KIND_LOOP EdgeKind = "loop"

type Workflow struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	Id         string       `json:"id"`
	WorkflowId string       `json:"workflowId"`
	Label      string       `json:"label"`
	Kind       NodeKind     `json:"kind"`
	Http       *HttpConfig  `json:"http,omitempty"`
	Timer      *TimerConfig `json:"timer,omitempty"`
	Join       *JoinConfig  `json:"join,omitempty"`
	Subflow    *SubflowConfig `json:"subflow,omitempty"`
	InputExpr  string       `json:"inputExpr,omitempty"`
	OutputExpr string       `json:"outputExpr,omitempty"`
}

type HttpConfig struct {
	Url           string            `json:"url"`
	Method        string            `json:"method"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          map[string]any    `json:"body,omitempty"`
	TimeoutMillis int64             `json:"timeoutMillis,omitempty"`
}

type TimerConfig struct {
	DelayMillis int64 `json:"delayMillis"`
}

type JoinConfig struct {
	Conditions []string `json:"conditions"`
}

type SubflowConfig struct {
	WorkflowId string `json:"workflowId"`
}

// Edge handles carry editor positions only, the engine never reads them.
type Edge struct {
	SourceId     string   `json:"sourceId"`
	TargetId     string   `json:"targetId"`
	Kind         EdgeKind `json:"kind"`
	Condition    string   `json:"condition,omitempty"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty"`
}

func (w *Workflow) Node(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Id == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// OutboundEdges returns a node's outgoing edges in import order.
func (w *Workflow) OutboundEdges(nodeId string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.SourceId == nodeId {
			out = append(out, e)
		}
	}
	return out
}

// StartNode returns the first node without inbound edges.
func (w *Workflow) StartNode() *Node {
	targets := make(map[string]bool, len(w.Edges))
	for _, e := range w.Edges {
		targets[e.TargetId] = true
	}
	for i := range w.Nodes {
		if !targets[w.Nodes[i].Id] {
			return &w.Nodes[i]
		}
	}
	return nil
}

func Validate(wf *Workflow) error {
	if len(wf.Id) == 0 {
		return fmt.Errorf("workflow id can not be empty")
	}
	if len(wf.Nodes) == 0 {
		return fmt.Errorf("workflow %s has no nodes", wf.Id)
	}
	nodeIds := make(map[string]any)
	for _, n := range wf.Nodes {
		if _, ok := nodeIds[n.Id]; ok {
			return fmt.Errorf("node id %s is duplicate", n.Id)
		}
		nodeIds[n.Id] = ""
		if err := validateNode(&n); err != nil {
			return err
		}
	}
	for _, e := range wf.Edges {
		if _, ok := nodeIds[e.SourceId]; !ok {
			return fmt.Errorf("edge source %s not in workflow %s", e.SourceId, wf.Id)
		}
		if _, ok := nodeIds[e.TargetId]; !ok {
			return fmt.Errorf("edge target %s not in workflow %s", e.TargetId, wf.Id)
		}
		if e.Kind == EDGE_KIND_IF && len(e.Condition) == 0 {
			return fmt.Errorf("if edge %s->%s has no condition", e.SourceId, e.TargetId)
		}
	}
	if wf.StartNode() == nil {
		return fmt.Errorf("workflow %s has no start node", wf.Id)
	}
	return nil
}

func validateNode(n *Node) error {
	switch n.Kind {
	case NODE_KIND_HTTP:
		if n.Http == nil || len(n.Http.Url) == 0 {
			return fmt.Errorf("nodeId=%s, http node needs url", n.Id)
		}
	case NODE_KIND_TIMER:
		if n.Timer == nil || n.Timer.DelayMillis <= 0 {
			return fmt.Errorf("nodeId=%s, timer delay value wrong", n.Id)
		}
	case NODE_KIND_JOIN:
		if n.Join == nil || len(n.Join.Conditions) == 0 {
			return fmt.Errorf("nodeId=%s, join node needs conditions", n.Id)
		}
	case NODE_KIND_WORKFLOW:
		if n.Subflow == nil || len(n.Subflow.WorkflowId) == 0 {
			return fmt.Errorf("nodeId=%s, workflow node needs a workflow id", n.Id)
		}
	case NODE_KIND_HOOK, NODE_KIND_NOOP:
	default:
		return fmt.Errorf("nodeId=%s, unknown node kind %s", n.Id, n.Kind)
	}
	return nil
}
