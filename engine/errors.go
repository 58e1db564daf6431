package engine

import "fmt"

type ConfigurationError struct {
	WorkflowId string
	NodeId     string
	Message    string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("workflow=%s node=%s misconfigured: %s", e.WorkflowId, e.NodeId, e.Message)
}

type ActionError struct {
	NodeId string
	Cause  error
}

func (e ActionError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.NodeId, e.Cause)
}

func (e ActionError) Unwrap() error {
	return e.Cause
}
