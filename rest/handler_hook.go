package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/loomworks/loom/logger"
)

// hook callers send the instance id and arbitrary payload in the body; the
// payload lands on the activity output under "body".
func (s *Server) HandleNodeHook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.completeHook(w, r, vars["id"], vars["nodeId"])
}

// HandleGeneralHook is the older callback form where the node id travels
// in the body under workflow_node (some producers still send the
// misspelled worflow_node).
func (s *Server) HandleGeneralHook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.completeHook(w, r, vars["id"], "")
}

func (s *Server) completeHook(w http.ResponseWriter, r *http.Request, workflowId string, nodeId string) {
	var body map[string]any
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid hook payload")
			return
		}
	}
	defer r.Body.Close()
	if body == nil {
		body = make(map[string]any)
	}
	if nodeId == "" {
		nodeId = stringField(body, "workflow_node")
		if nodeId == "" {
			nodeId = stringField(body, "worflow_node")
		}
	}
	instanceId := stringField(body, "instanceId")
	if instanceId == "" || nodeId == "" {
		respondWithError(w, http.StatusBadRequest, "instanceId and node are required")
		return
	}
	detail, err := s.executionService.GetInstance(instanceId)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "instance does not exist")
		return
	}
	if detail.Instance.WorkflowId != workflowId {
		respondWithError(w, http.StatusBadRequest, "instance does not belong to workflow")
		return
	}
	delete(body, "instanceId")
	delete(body, "workflow_node")
	delete(body, "worflow_node")
	err = s.executionService.CompleteHook(instanceId, nodeId, map[string]any{"body": body})
	if err != nil {
		logger.Error("error completing hook", zap.String("instance", instanceId), zap.String("node", nodeId), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "error completing hook")
		return
	}
	respondOK(w, "accepted")
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
