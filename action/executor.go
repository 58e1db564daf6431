package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Executor runs the side effect of an http node and returns the output to
// persist on the activity.
type Executor interface {
	Execute(ctx context.Context, cfg *model.HttpConfig, input map[string]any) (map[string]any, error)
}

type HttpExecutor struct {
	client     *http.Client
	maxTimeout time.Duration
}

var _ Executor = new(HttpExecutor)

func NewHttpExecutor(maxTimeout time.Duration) *HttpExecutor {
	if maxTimeout <= 0 {
		maxTimeout = defaultTimeout
	}
	return &HttpExecutor{
		client:     &http.Client{},
		maxTimeout: maxTimeout,
	}
}

func (e *HttpExecutor) Execute(ctx context.Context, cfg *model.HttpConfig, input map[string]any) (map[string]any, error) {
	timeout := e.maxTimeout
	if cfg.TimeoutMillis > 0 {
		requested := time.Duration(cfg.TimeoutMillis) * time.Millisecond
		if requested < timeout {
			timeout = requested
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	var bodyReader io.Reader
	if method != http.MethodGet {
		body := input
		if cfg.Body != nil {
			body = util.ResolveParams(input, cfg.Body)
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.Url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Error("http call failed", zap.String("url", cfg.Url), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http call to %s returned status %d", cfg.Url, resp.StatusCode)
	}

	var data any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &data); err != nil {
			data = string(respBody)
		}
	}
	return map[string]any{
		"success": true,
		"status":  resp.StatusCode,
		"data":    data,
	}, nil
}
