package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wrapreel/internal/model"
	"wrapreel/internal/render"
)

// CreatomateAdapter submits compiled payloads to a Creatomate-compatible
// REST API and polls each render until it finishes.
type CreatomateAdapter struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	timeout      time.Duration
}

func NewCreatomateAdapter(baseURL, apiKey string, pollInterval, timeout time.Duration) *CreatomateAdapter {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &CreatomateAdapter{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

type renderRequest struct {
	Source       render.Payload `json:"source"`
	OutputFormat string         `json:"output_format"`
	SnapshotTime *float64       `json:"snapshot_time,omitempty"`
	Metadata     string         `json:"metadata,omitempty"`
}

type renderStatus struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	SnapshotURL  string `json:"snapshot_url"`
	ErrorMessage string `json:"error_message"`
}

func (a *CreatomateAdapter) Execute(ctx context.Context, in ExecuteInput) (ExecuteOutput, *Error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := renderRequest{Source: in.Payload, OutputFormat: "mp4", Metadata: in.JobID}
	if in.TaskType == model.TaskGenerateThumbnail {
		at := min(1.0, in.Payload.Duration/2)
		req.OutputFormat = "jpg"
		req.SnapshotTime = &at
	}

	var submitted []renderStatus
	if pErr := a.do(ctx, http.MethodPost, "/renders", req, &submitted); pErr != nil {
		return ExecuteOutput{}, pErr
	}
	if len(submitted) == 0 {
		return ExecuteOutput{}, &Error{
			Category:        "upstream",
			Code:            "RENDER_NOT_ACCEPTED",
			Retryable:       true,
			UserMessage:     "Renderer did not accept the job",
			InternalMessage: "empty render list in submit response",
		}
	}

	st := submitted[0]
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		switch st.Status {
		case "succeeded":
			return ExecuteOutput{
				Output: map[string]any{"provider": "creatomate", "render_id": st.ID, "url": st.URL},
				Asset:  renderedAsset(in, st.ID, st.URL),
			}, nil
		case "failed":
			return ExecuteOutput{}, &Error{
				Category:        "render",
				Code:            "RENDER_FAILED",
				Retryable:       false,
				UserMessage:     "Render failed",
				InternalMessage: st.ErrorMessage,
			}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ExecuteOutput{}, &Error{
					Category:        "network",
					Code:            "RENDER_TIMEOUT",
					Retryable:       true,
					UserMessage:     "Render took too long",
					InternalMessage: fmt.Sprintf("render %s still %s", st.ID, st.Status),
				}
			}
			return ExecuteOutput{}, canceledError(ctx.Err())
		case <-ticker.C:
		}
		var next renderStatus
		if pErr := a.do(ctx, http.MethodGet, "/renders/"+st.ID, nil, &next); pErr != nil {
			if !pErr.Retryable {
				return ExecuteOutput{}, pErr
			}
			continue
		}
		st = next
	}
}

func (a *CreatomateAdapter) do(ctx context.Context, method, path string, body, out any) *Error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Category: "internal", Code: "ENCODE_FAILED", UserMessage: "Invalid render payload", InternalMessage: err.Error()}
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return &Error{Category: "internal", Code: "REQUEST_FAILED", UserMessage: "Renderer unavailable", InternalMessage: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return canceledError(ctx.Err())
		}
		return &Error{Category: "network", Code: "UPSTREAM_UNREACHABLE", Retryable: true, UserMessage: "Renderer unavailable", InternalMessage: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Category: "upstream", Code: "BAD_RESPONSE", Retryable: true, UserMessage: "Renderer returned an invalid response", InternalMessage: err.Error()}
	}
	return nil
}

func classifyStatus(code int, body []byte) *Error {
	msg := fmt.Sprintf("status %d: %s", code, strings.TrimSpace(string(body)))
	switch {
	case code == http.StatusTooManyRequests:
		return &Error{Category: "quota", Code: "UPSTREAM_RATE_LIMITED", Retryable: true, UserMessage: "Renderer is busy", InternalMessage: msg}
	case code >= 500:
		return &Error{Category: "network", Code: "UPSTREAM_5XX", Retryable: true, UserMessage: "Renderer temporarily unavailable", InternalMessage: msg}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Category: "auth", Code: "UPSTREAM_AUTH", Retryable: false, UserMessage: "Renderer credentials rejected", InternalMessage: msg}
	default:
		return &Error{Category: "request", Code: "UPSTREAM_REJECTED", Retryable: false, UserMessage: "Renderer rejected the payload", InternalMessage: msg}
	}
}
