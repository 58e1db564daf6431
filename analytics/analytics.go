package analytics

type WorkflowDataCollector interface {
	RecordActivitySuccess(workflowId string, instanceId string, nodeId string, activityId string, output map[string]any)
	RecordActivityFailure(workflowId string, instanceId string, nodeId string, activityId string, reason string)
}

type noopCollector struct{}

func (noopCollector) RecordActivitySuccess(string, string, string, string, map[string]any) {}
func (noopCollector) RecordActivityFailure(string, string, string, string, string)        {}

var collector WorkflowDataCollector = noopCollector{}

// Init configures the process-wide collector. An empty fileName keeps the
// no-op collector.
func Init(fileName string) error {
	if fileName == "" {
		return nil
	}
	c, err := NewLogFileDataCollector(fileName)
	if err != nil {
		return err
	}
	collector = c
	return nil
}

func RecordActivitySuccess(workflowId string, instanceId string, nodeId string, activityId string, output map[string]any) {
	collector.RecordActivitySuccess(workflowId, instanceId, nodeId, activityId, output)
}

func RecordActivityFailure(workflowId string, instanceId string, nodeId string, activityId string, reason string) {
	collector.RecordActivityFailure(workflowId, instanceId, nodeId, activityId, reason)
}
