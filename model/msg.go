package model

type ActivationMessage struct {
	InstanceId string         `json:"instanceId"`
	NodeId     string         `json:"nodeId"`
	Input      map[string]any `json:"input"`
	Timestamp  int64          `json:"timestamp"`
}

type TimerMessage struct {
	InstanceId string `json:"instanceId"`
	NodeId     string `json:"nodeId"`
	WorkflowId string `json:"workflowId"`
	DueAt      int64  `json:"dueAt"`
	ActivityId string `json:"activityId"`
}

type WorkflowRunRequest struct {
	Input map[string]any `json:"input"`
}

type InstanceDetail struct {
	Instance   *Instance      `json:"instance"`
	Activities []*Activity    `json:"activities"`
	State      map[string]any `json:"state"`
}
