package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/service"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port             int
	executionService *service.WorkflowExecutionService
}

func NewServer(httpPort int, executionService *service.WorkflowExecutionService) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr: fmt.Sprintf(":%d", httpPort),
		},
		executionService: executionService,
		Port:             httpPort,
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/workflow", s.HandleSaveWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/workflow/{id}", s.HandleGetWorkflow).Methods(http.MethodGet)
	api.HandleFunc("/workflow/{id}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)
	api.HandleFunc("/workflow/{id}/run", s.HandleRunWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/instance/{id}", s.HandleGetInstance).Methods(http.MethodGet)
	api.HandleFunc("/hook/workflow/{id}/node/{nodeId}", s.HandleNodeHook).Methods(http.MethodPost)
	api.HandleFunc("/hook/workflow/{id}", s.HandleGeneralHook).Methods(http.MethodPost)
	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": message})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
