package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loomworks/loom/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpExecutor(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, executor *HttpExecutor,
	){
		"test post with resolved body": testPostResolvedBody,
		"test get ignores body":        testGetRequest,
		"test non 2xx is an error":     testErrorStatus,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewHttpExecutor(5*time.Second))
		})
	}
}

func testPostResolvedBody(t *testing.T, executor *HttpExecutor) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"orderId": "ord-1"})
	}))
	defer srv.Close()

	cfg := &model.HttpConfig{
		Url:    srv.URL,
		Method: "POST",
		Body:   map[string]any{"user": "$.userId", "fixed": "yes"},
	}
	output, err := executor.Execute(context.Background(), cfg, map[string]any{"userId": "u-42"})
	require.NoError(t, err)

	assert.Equal(t, "u-42", received["user"])
	assert.Equal(t, "yes", received["fixed"])
	assert.Equal(t, true, output["success"])
	assert.Equal(t, http.StatusOK, output["status"])
	data := output["data"].(map[string]any)
	assert.Equal(t, "ord-1", data["orderId"])
}

func testGetRequest(t *testing.T, executor *HttpExecutor) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	output, err := executor.Execute(context.Background(), &model.HttpConfig{Url: srv.URL}, map[string]any{"ignored": 1})
	require.NoError(t, err)
	assert.Equal(t, true, output["success"])
}

func testErrorStatus(t *testing.T, executor *HttpExecutor) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := executor.Execute(context.Background(), &model.HttpConfig{Url: srv.URL, Method: "POST"}, nil)
	require.Error(t, err)
}
