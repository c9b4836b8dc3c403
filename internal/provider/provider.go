package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"wrapreel/internal/model"
	"wrapreel/internal/render"

	"github.com/google/uuid"
)

// Error is a classified provider failure. Retryable errors are retried by
// the job runner with backoff.
type Error struct {
	Category        string
	Code            string
	Retryable       bool
	UserMessage     string
	InternalMessage string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.InternalMessage
}

type ExecuteInput struct {
	ShopID    string
	ProjectID string
	JobID     string
	TaskID    string
	TaskType  model.TaskType
	TraceID   string
	Payload   render.Payload
	Input     map[string]any
}

type ExecuteOutput struct {
	Output map[string]any
	Asset  *model.Asset
}

type Adapter interface {
	Execute(ctx context.Context, in ExecuteInput) (ExecuteOutput, *Error)
}

func canceledError(err error) *Error {
	return &Error{
		Category:        "canceled",
		Code:            "CANCELED",
		Retryable:       false,
		UserMessage:     "Render canceled",
		InternalMessage: err.Error(),
	}
}

// MockAdapter pretends to render. It is used when no renderer credentials
// are configured.
type MockAdapter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockAdapter) Execute(ctx context.Context, in ExecuteInput) (ExecuteOutput, *Error) {
	workDuration := 300 * time.Millisecond
	if in.TaskType == model.TaskRenderVideo {
		workDuration = 1200 * time.Millisecond
	}
	if err := waitCancelable(ctx, workDuration); err != nil {
		return ExecuteOutput{}, canceledError(err)
	}

	if raw, ok := in.Input["simulate_error"].(bool); ok && raw {
		return ExecuteOutput{}, &Error{
			Category:        "network",
			Code:            "UPSTREAM_TIMEOUT",
			Retryable:       true,
			UserMessage:     "Renderer timeout",
			InternalMessage: "mock simulate_error=true",
		}
	}

	m.mu.Lock()
	flaky := m.rng.Float64() < 0.03
	m.mu.Unlock()
	if flaky {
		return ExecuteOutput{}, &Error{
			Category:        "network",
			Code:            "UPSTREAM_5XX",
			Retryable:       true,
			UserMessage:     "Renderer temporarily unavailable",
			InternalMessage: "mock random failure",
		}
	}

	renderID := uuid.NewString()
	ext := ".mp4"
	if in.TaskType == model.TaskGenerateThumbnail {
		ext = ".jpg"
	}
	url := "https://renders.local/" + renderID + ext
	return ExecuteOutput{
		Output: map[string]any{"provider": "mock", "render_id": renderID, "url": url},
		Asset:  renderedAsset(in, renderID, url),
	}, nil
}

// renderedAsset describes the file a finished render task produced.
func renderedAsset(in ExecuteInput, renderID, url string) *model.Asset {
	asset := &model.Asset{
		ID:        uuid.NewString(),
		ShopID:    in.ShopID,
		ProjectID: in.ProjectID,
		Status:    "ready",
		Metadata: map[string]any{
			"render_id":    renderID,
			"job_id":       in.JobID,
			"blueprint_id": in.Payload.Metadata.BlueprintID,
		},
		CreatedAt: time.Now().UTC(),
	}
	switch in.TaskType {
	case model.TaskGenerateThumbnail:
		asset.Type = model.AssetThumbnail
		asset.MimeType = "image/jpeg"
		asset.StorageKey = fmt.Sprintf("shops/%s/projects/%s/thumbnail/%s.jpg", in.ShopID, in.ProjectID, renderID)
		asset.URL = url
	default:
		asset.Type = model.AssetFinalVideo
		asset.MimeType = "video/mp4"
		asset.StorageKey = fmt.Sprintf("shops/%s/projects/%s/final_video/%s.mp4", in.ShopID, in.ProjectID, renderID)
		asset.URL = url
		asset.DurationMS = int(in.Payload.Duration * 1000)
		asset.Metadata["width"] = in.Payload.Width
		asset.Metadata["height"] = in.Payload.Height
	}
	return asset
}

func waitCancelable(ctx context.Context, d time.Duration) error {
	timeout := time.NewTimer(d)
	defer timeout.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return nil
	}
}
