package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
)

func (s *Server) HandleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow json")
		return
	}
	defer r.Body.Close()
	if err := s.executionService.SaveWorkflow(&wf); err != nil {
		logger.Error("error saving workflow", zap.String("id", wf.Id), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, "created")
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	wf, err := s.executionService.GetWorkflow(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "workflow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.executionService.DeleteWorkflow(id); err != nil {
		respondWithError(w, http.StatusBadRequest, "error deleting workflow")
		return
	}
	respondOK(w, "deleted")
}

func (s *Server) HandleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var runReq model.WorkflowRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid run request")
			return
		}
	}
	defer r.Body.Close()
	instance, err := s.executionService.StartWorkflow(id, runReq.Input)
	if err != nil {
		logger.Error("error running workflow", zap.String("id", id), zap.Error(err))
		if _, ok := err.(persistence.NotFoundError); ok {
			respondWithError(w, http.StatusNotFound, "workflow does not exist")
			return
		}
		respondWithError(w, http.StatusBadRequest, "error running workflow")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"instanceId": instance.Id})
}
