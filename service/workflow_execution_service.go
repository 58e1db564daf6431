package service

import (
	"github.com/loomworks/loom/engine"
	"github.com/loomworks/loom/metadata"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
)

// WorkflowExecutionService is the API facing surface over the engine.
type WorkflowExecutionService struct {
	storage         persistence.Storage
	metadataService metadata.Service
	dispatcher      *engine.Dispatcher
}

func NewWorkflowExecutionService(storage persistence.Storage, metadataService metadata.Service, dispatcher *engine.Dispatcher) *WorkflowExecutionService {
	return &WorkflowExecutionService{
		storage:         storage,
		metadataService: metadataService,
		dispatcher:      dispatcher,
	}
}

func (s *WorkflowExecutionService) SaveWorkflow(wf *model.Workflow) error {
	return s.metadataService.SaveWorkflow(wf)
}

func (s *WorkflowExecutionService) GetWorkflow(id string) (*model.Workflow, error) {
	return s.metadataService.GetWorkflow(id)
}

func (s *WorkflowExecutionService) DeleteWorkflow(id string) error {
	return s.metadataService.DeleteWorkflow(id)
}

func (s *WorkflowExecutionService) StartWorkflow(workflowId string, input map[string]any) (*model.Instance, error) {
	return s.dispatcher.StartInstance(workflowId, input, "", "")
}

func (s *WorkflowExecutionService) CompleteHook(instanceId string, nodeId string, data map[string]any) error {
	return s.dispatcher.CompleteHook(instanceId, nodeId, data)
}

// GetInstance returns the instance with its activities and the derived
// state.
func (s *WorkflowExecutionService) GetInstance(instanceId string) (*model.InstanceDetail, error) {
	instance, err := s.storage.Instances().GetInstance(instanceId)
	if err != nil {
		return nil, err
	}
	activities, err := s.storage.Instances().ListActivities(instanceId)
	if err != nil {
		return nil, err
	}
	return &model.InstanceDetail{
		Instance:   instance,
		Activities: activities,
		State:      engine.InstanceState(instance, activities),
	}, nil
}
