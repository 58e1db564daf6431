package metadata

import (
	"time"

	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	c "github.com/patrickmn/go-cache"
)

// Service is the read path for workflow definitions. Definitions are
// looked up on every activation, so reads go through a local cache.
type Service interface {
	SaveWorkflow(wf *model.Workflow) error
	GetWorkflow(id string) (*model.Workflow, error)
	DeleteWorkflow(id string) error
}

type service struct {
	dao   persistence.WorkflowDao
	cache *c.Cache
}

var _ Service = new(service)

func NewService(dao persistence.WorkflowDao) Service {
	return &service{
		dao:   dao,
		cache: c.New(10*time.Minute, 10*time.Minute),
	}
}

func (s *service) SaveWorkflow(wf *model.Workflow) error {
	if err := model.Validate(wf); err != nil {
		return err
	}
	if err := s.dao.Save(wf); err != nil {
		return err
	}
	s.cache.Delete(wf.Id)
	return nil
}

func (s *service) GetWorkflow(id string) (*model.Workflow, error) {
	if cached, found := s.cache.Get(id); found {
		return cached.(*model.Workflow), nil
	}
	wf, err := s.dao.Get(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, wf, c.DefaultExpiration)
	return wf, nil
}

func (s *service) DeleteWorkflow(id string) error {
	if err := s.dao.Delete(id); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}
