package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/loomworks/loom/persistence"
)

func (s *Server) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, err := s.executionService.GetInstance(id)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			respondWithError(w, http.StatusNotFound, "instance does not exist")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "error loading instance")
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}
