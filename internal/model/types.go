package model

import (
	"time"

	"wrapreel/internal/blueprint"
)

type UserRole string

const (
	RoleStaff UserRole = "staff"
	RoleOwner UserRole = "owner"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

type User struct {
	ID           string     `json:"id"`
	ShopID       string     `json:"shop_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Project is a reel draft owned by a shop. Its blueprint document is stored
// separately and is opaque to the store.
type Project struct {
	ID           string    `json:"id"`
	ShopID       string    `json:"shop_id"`
	CreatedBy    string    `json:"created_by"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand,omitempty"`
	Status       string    `json:"status"`
	CurrentJobID string    `json:"current_job_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BlueprintDoc struct {
	ProjectID  string                   `json:"project_id"`
	Blueprint  blueprint.SceneBlueprint `json:"blueprint"`
	Validation blueprint.Validation     `json:"validation"`
	Revision   int64                    `json:"revision"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

type AssetType string

const (
	AssetRenderPayload AssetType = "render_payload"
	AssetFinalVideo    AssetType = "final_video"
	AssetThumbnail     AssetType = "thumbnail"
)

type Asset struct {
	ID         string         `json:"id"`
	ShopID     string         `json:"shop_id"`
	ProjectID  string         `json:"project_id"`
	Type       AssetType      `json:"type"`
	Status     string         `json:"status"`
	StorageKey string         `json:"storage_key"`
	URL        string         `json:"url,omitempty"`
	MimeType   string         `json:"mime_type"`
	SizeBytes  int64          `json:"size_bytes"`
	DurationMS int            `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
	JobSucceeded JobStatus = "succeeded"
)

// Terminal reports whether a job in this status will not run again unless
// retried.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCanceled
}

// Job renders one compiled payload of a project.
type Job struct {
	ID              string    `json:"id"`
	ShopID          string    `json:"shop_id"`
	ProjectID       string    `json:"project_id"`
	BlueprintID     string    `json:"blueprint_id"`
	PayloadAssetID  string    `json:"payload_asset_id"`
	Status          JobStatus `json:"status"`
	Progress        float64   `json:"progress"`
	CancelRequested bool      `json:"cancel_requested"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Retryable       bool      `json:"retryable"`
	TraceID         string    `json:"trace_id"`
	IdempotencyKey  string    `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	EndedAt         time.Time `json:"ended_at,omitempty"`
}

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskFailed    TaskStatus = "failed"
	TaskCanceled  TaskStatus = "canceled"
	TaskSucceeded TaskStatus = "succeeded"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCanceled
}

// Dead reports whether a task ended without producing its output.
func (s TaskStatus) Dead() bool { return s == TaskFailed || s == TaskCanceled }

type TaskType string

const (
	TaskRenderVideo       TaskType = "render_video"
	TaskGenerateThumbnail TaskType = "generate_thumbnail"
)

type JobTask struct {
	ID          string         `json:"id"`
	JobID       string         `json:"job_id"`
	TaskKey     string         `json:"task_key"`
	TaskType    TaskType       `json:"task_type"`
	Status      TaskStatus     `json:"status"`
	Attempt     int            `json:"attempt"`
	MaxAttempt  int            `json:"max_attempt"`
	DependsOn   []string       `json:"depends_on"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ErrorMsg    string         `json:"error_message,omitempty"`
	Retryable   bool           `json:"retryable"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	EndedAt     time.Time      `json:"ended_at,omitempty"`
	WorkerID    string         `json:"worker_id,omitempty"`
	ProjectID   string         `json:"project_id"`
	TraceID     string         `json:"trace_id"`
	DisplayName string         `json:"display_name"`
}

type JobEventType string

const (
	EventJobCreated   JobEventType = "job_created"
	EventJobProgress  JobEventType = "job_progress"
	EventTaskStarted  JobEventType = "task_started"
	EventTaskSuccess  JobEventType = "task_succeeded"
	EventTaskFailed   JobEventType = "task_failed"
	EventJobCanceled  JobEventType = "job_canceled"
	EventJobSucceeded JobEventType = "job_succeeded"
	EventJobFailed    JobEventType = "job_failed"
	EventAssetReady   JobEventType = "asset_ready"
)

type JobEvent struct {
	EventID   string         `json:"event_id"`
	Seq       int64          `json:"seq"`
	TraceID   string         `json:"trace_id"`
	JobID     string         `json:"job_id"`
	ProjectID string         `json:"project_id"`
	Type      JobEventType   `json:"type"`
	TS        time.Time      `json:"ts"`
	Payload   map[string]any `json:"payload"`
}

type ExportStatus string

const (
	ExportQueued    ExportStatus = "queued"
	ExportRunning   ExportStatus = "running"
	ExportFailed    ExportStatus = "failed"
	ExportSucceeded ExportStatus = "succeeded"
)

// Export publishes a finished reel as a time-limited download link.
type Export struct {
	ID          string       `json:"id"`
	ShopID      string       `json:"shop_id"`
	ProjectID   string       `json:"project_id"`
	Status      ExportStatus `json:"status"`
	AssetID     string       `json:"asset_id,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
