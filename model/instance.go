package model

import "time"

type InstanceStatus string

const INSTANCE_RUNNING InstanceStatus = "running"
const INSTANCE_SUCCESS InstanceStatus = "success"
const INSTANCE_FAILED InstanceStatus = "failed"

type ActivityStatus string

const ACTIVITY_RUNNING ActivityStatus = "running"
const ACTIVITY_SUCCESS ActivityStatus = "success"
const ACTIVITY_FAILED ActivityStatus = "failed"

type Instance struct {
	Id               string         `json:"id"`
	WorkflowId       string         `json:"workflowId"`
	Status           InstanceStatus `json:"status"`
	Input            map[string]any `json:"input"`
	Output           map[string]any `json:"output,omitempty"`
	Error            string         `json:"error,omitempty"`
	ParentInstanceId string         `json:"parentInstanceId,omitempty"`
	ParentActivityId string         `json:"parentActivityId,omitempty"`
	// Pending tracks nodes activated but not yet completed, the instance
	// closes when it drains.
	Pending    map[string]int `json:"pending"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

type Activity struct {
	Id         string         `json:"id"`
	InstanceId string         `json:"instanceId"`
	WorkflowId string         `json:"workflowId"`
	NodeId     string         `json:"nodeId"`
	Status     ActivityStatus `json:"status"`
	Input      map[string]any `json:"input"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
