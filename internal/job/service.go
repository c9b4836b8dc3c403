// Package job turns a project's blueprint into a render job and drives its
// task graph against the renderer.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wrapreel/internal/events"
	"wrapreel/internal/model"
	"wrapreel/internal/provider"
	"wrapreel/internal/render"
	"wrapreel/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTooManyRunningJobs = errors.New("too many running renders for shop")
	ErrInvalidJobState    = errors.New("invalid job state")
	ErrNoBlueprint        = errors.New("project has no blueprint")
)

const cancelCheckInterval = 100 * time.Millisecond

// ending is what a finished job records and announces for its final status.
type ending struct {
	code      string
	message   string
	retryable bool
	event     model.JobEventType
}

var endings = map[model.JobStatus]ending{
	model.JobSucceeded: {event: model.EventJobSucceeded},
	model.JobCanceled:  {code: "CANCELED", message: "Canceled by user", event: model.EventJobCanceled},
	model.JobFailed:    {code: "TASK_FAILED", message: "One or more render tasks failed", retryable: true, event: model.EventJobFailed},
}

type Service struct {
	store *store.MemoryStore
	hub   *events.Hub
	prov  provider.Adapter
	log   *zap.Logger

	maxShopJobs int
	renderSlots chan struct{}

	// pollDelay is how long a runner waits when no task is ready.
	pollDelay time.Duration
	backoff   func(attempt int) time.Duration

	mu      sync.Mutex
	perShop map[string]int
	runners map[string]bool
	wg      sync.WaitGroup
}

func NewService(st *store.MemoryStore, hub *events.Hub, prov provider.Adapter, logger *zap.Logger, maxConcurrent, maxShopJobs int) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 20
	}
	if maxShopJobs < 1 {
		maxShopJobs = 3
	}
	return &Service{
		store:       st,
		hub:         hub,
		prov:        prov,
		log:         logger,
		maxShopJobs: maxShopJobs,
		renderSlots: make(chan struct{}, maxConcurrent),
		pollDelay:   120 * time.Millisecond,
		backoff:     retryBackoff,
		perShop:     map[string]int{},
		runners:     map[string]bool{},
	}
}

// StartRender compiles the project's current blueprint and queues it for
// rendering. The blueprint must validate; audioURL is optional.
func (s *Service) StartRender(ctx context.Context, shopID, projectID, traceID, idempotencyKey, audioURL string) (model.Job, error) {
	if existing, ok := s.store.GetJobByIdempotency(shopID, idempotencyKey); ok {
		return existing, nil
	}

	project, err := s.store.GetProject(projectID)
	if err != nil {
		return model.Job{}, err
	}
	if project.ShopID != shopID {
		return model.Job{}, store.ErrForbidden
	}
	doc, err := s.store.GetBlueprint(projectID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Job{}, ErrNoBlueprint
	} else if err != nil {
		return model.Job{}, err
	}
	payload, err := render.CompileReady(doc.Blueprint, audioURL)
	if err != nil {
		return model.Job{}, err
	}
	if !s.shopHasRoom(shopID) {
		return model.Job{}, ErrTooManyRunningJobs
	}

	now := time.Now().UTC()
	job := model.Job{
		ID:             uuid.NewString(),
		ShopID:         shopID,
		ProjectID:      projectID,
		BlueprintID:    doc.Blueprint.ID,
		Status:         model.JobQueued,
		TraceID:        traceID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}
	payloadAsset, err := s.store.CreateAsset(model.Asset{
		ID:         uuid.NewString(),
		ShopID:     shopID,
		ProjectID:  projectID,
		Type:       model.AssetRenderPayload,
		Status:     "ready",
		StorageKey: fmt.Sprintf("shops/%s/projects/%s/render_payload/%s.json", shopID, projectID, job.ID),
		MimeType:   "application/json",
		DurationMS: int(payload.Duration * 1000),
		Metadata: map[string]any{
			"payload":           payload,
			"job_id":            job.ID,
			"blueprint_rev":     doc.Revision,
			"element_count":     len(payload.Elements),
			"has_audio":         audioURL != "",
			"blueprint_id":      doc.Blueprint.ID,
			"compiled_duration": payload.Duration,
		},
		CreatedAt: now,
	})
	if err != nil {
		return model.Job{}, err
	}
	job.PayloadAssetID = payloadAsset.ID

	tasks := planTasks(job)
	job, err = s.store.CreateJob(job, tasks, idempotencyKey)
	if err != nil {
		return model.Job{}, err
	}

	project.CurrentJobID = job.ID
	project.Status = "rendering"
	project.UpdatedAt = now
	_ = s.store.UpdateProject(project)

	s.emit(job, model.EventJobCreated, map[string]any{
		"status":   job.Status,
		"tasks":    len(tasks),
		"duration": payload.Duration,
	})
	s.launch(job)
	return job, nil
}

func (s *Service) GetJob(jobID string) (model.Job, error) { return s.store.GetJob(jobID) }

func (s *Service) GetJobTasks(jobID string) ([]model.JobTask, error) {
	return s.store.GetJobTasks(jobID)
}

// ListEventsFrom returns the job's events after seq fromSeq.
func (s *Service) ListEventsFrom(jobID string, fromSeq int64) ([]model.JobEvent, error) {
	return s.store.ListJobEventsFromSeq(jobID, fromSeq)
}

// Payload returns the compiled payload a job renders.
func (s *Service) Payload(job model.Job) (render.Payload, error) {
	asset, err := s.store.GetAsset(job.PayloadAssetID)
	if err != nil {
		return render.Payload{}, err
	}
	p, ok := asset.Metadata["payload"].(render.Payload)
	if !ok {
		return render.Payload{}, fmt.Errorf("asset %s: %w", asset.ID, store.ErrNotFound)
	}
	return p, nil
}

// ownedJob loads a job and checks it belongs to shopID.
func (s *Service) ownedJob(shopID, jobID string) (model.Job, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return model.Job{}, err
	}
	if job.ShopID != shopID {
		return model.Job{}, store.ErrForbidden
	}
	return job, nil
}

// CancelJob flags a job for cancellation. The runner stops queued tasks and
// interrupts running ones; a finished job is returned unchanged.
func (s *Service) CancelJob(shopID, jobID string) (model.Job, error) {
	job, err := s.ownedJob(shopID, jobID)
	if err != nil || job.Status.Terminal() {
		return job, err
	}
	job.CancelRequested = true
	if err := s.store.UpdateJob(job); err != nil {
		return model.Job{}, err
	}
	s.emit(job, model.EventJobProgress, map[string]any{
		"status":           job.Status,
		"cancel_requested": true,
		"progress":         job.Progress,
	})
	return job, nil
}

// RetryJob requeues the failed and canceled tasks of a finished job. The
// payload compiled at start is reused; blueprint edits need a new render.
func (s *Service) RetryJob(ctx context.Context, shopID, jobID, traceID string) (model.Job, error) {
	job, err := s.ownedJob(shopID, jobID)
	if err != nil {
		return model.Job{}, err
	}
	if job.Status != model.JobFailed && job.Status != model.JobCanceled {
		return model.Job{}, ErrInvalidJobState
	}
	if !s.shopHasRoom(shopID) {
		return model.Job{}, ErrTooManyRunningJobs
	}

	tasks, err := s.store.GetJobTasks(jobID)
	if err != nil {
		return model.Job{}, err
	}
	for i, t := range tasks {
		if t.Status.Dead() {
			tasks[i] = requeue(t)
		}
	}
	if err := s.store.ReplaceJobTasks(jobID, tasks); err != nil {
		return model.Job{}, err
	}

	job.Status = model.JobQueued
	job.Progress = newTaskGraph(tasks).progress()
	job.CancelRequested = false
	job.ErrorCode, job.ErrorMessage, job.Retryable = "", "", false
	job.TraceID = traceID
	job.StartedAt, job.EndedAt = time.Time{}, time.Time{}
	if err := s.store.UpdateJob(job); err != nil {
		return model.Job{}, err
	}
	s.emit(job, model.EventJobCreated, map[string]any{"status": "retry_queued"})
	s.launch(job)
	return job, nil
}

// Wait blocks until every runner has exited or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) shopHasRoom(shopID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perShop[shopID] < s.maxShopJobs
}

// launch starts a runner for job unless one is already active.
func (s *Service) launch(job model.Job) {
	s.mu.Lock()
	if s.runners[job.ID] {
		s.mu.Unlock()
		return
	}
	s.runners[job.ID] = true
	s.perShop[job.ShopID]++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job.ID, job.ShopID)
	}()
}

func (s *Service) release(jobID, shopID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runners, jobID)
	if s.perShop[shopID] > 0 {
		s.perShop[shopID]--
	}
}

// run drives one job until its task graph settles.
func (s *Service) run(jobID, shopID string) {
	defer func() {
		s.release(jobID, shopID)
		// A retry may have requeued the job while this runner was exiting.
		if job, err := s.store.GetJob(jobID); err == nil && job.Status == model.JobQueued {
			s.launch(job)
		}
	}()

	for {
		job, err := s.store.GetJob(jobID)
		if err != nil || job.Status.Terminal() {
			return
		}
		if job.StartedAt.IsZero() {
			job.StartedAt = time.Now().UTC()
			job.Status = model.JobRunning
			if s.store.UpdateJob(job) == nil {
				s.emit(job, model.EventJobProgress, map[string]any{
					"status":   job.Status,
					"progress": job.Progress,
				})
			}
		}
		if job.CancelRequested {
			s.cancelQueued(job.ID, canceledByUser)
		}

		tasks, err := s.store.GetJobTasks(jobID)
		if err != nil {
			return
		}
		g := newTaskGraph(tasks)
		if g.settled() {
			s.finish(job, g)
			return
		}

		ready := g.runnable()
		if len(ready) == 0 {
			if s.cancelQueued(job.ID, dependencyDied) > 0 {
				continue
			}
			time.Sleep(s.pollDelay)
			continue
		}

		var wg sync.WaitGroup
		for _, task := range ready {
			task := task
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.execute(job, task)
			}()
		}
		wg.Wait()
	}
}

// cancelReason decides whether a queued task should be canceled and with
// which code and message.
type cancelReason func(g taskGraph, t model.JobTask) (code, msg string, cancel bool)

func canceledByUser(taskGraph, model.JobTask) (string, string, bool) {
	return "CANCELED", "Canceled before execution", true
}

// dependencyDied cancels tasks a failed render left waiting forever.
func dependencyDied(g taskGraph, t model.JobTask) (string, string, bool) {
	dep, dead := g.deadDependency(t)
	return "DEPENDENCY_FAILED", "Dependency " + dep + " did not succeed", dead
}

// cancelQueued cancels the queued tasks reason picks and reports how many.
func (s *Service) cancelQueued(jobID string, reason cancelReason) int {
	tasks, err := s.store.GetJobTasks(jobID)
	if err != nil {
		return 0
	}
	g := newTaskGraph(tasks)
	n := 0
	for i, t := range tasks {
		if t.Status != model.TaskQueued {
			continue
		}
		if code, msg, ok := reason(g, t); ok {
			tasks[i].Status = model.TaskCanceled
			tasks[i].ErrorCode, tasks[i].ErrorMsg = code, msg
			tasks[i].EndedAt = time.Now().UTC()
			n++
		}
	}
	if n == 0 || s.store.ReplaceJobTasks(jobID, tasks) != nil {
		return 0
	}
	s.refreshProgress(jobID)
	return n
}

// attemptContext is canceled as soon as the job's cancel flag is seen. stop
// releases the watcher.
func (s *Service) attemptContext(jobID string) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(cancelCheckInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if s.cancelRequested(jobID) {
					cancel()
					return
				}
			}
		}
	}()
	return ctx, func() {
		cancel()
		<-done
	}
}

func (s *Service) execute(job model.Job, task model.JobTask) {
	s.renderSlots <- struct{}{}
	defer func() { <-s.renderSlots }()

	log := s.log.With(
		zap.String("trace_id", job.TraceID),
		zap.String("job_id", job.ID),
		zap.String("task_key", task.TaskKey),
	)

	payload, err := s.Payload(job)
	if err != nil {
		log.Error("load render payload failed", zap.Error(err))
		s.failTask(job, task, &provider.Error{
			Category:        "internal",
			Code:            "PAYLOAD_MISSING",
			UserMessage:     "Compiled payload is missing",
			InternalMessage: err.Error(),
		})
		return
	}

	tasks, err := s.store.UpdateTask(job.ID, task.ID, func(t *model.JobTask) {
		t.Status = model.TaskRunning
		t.Attempt++
		t.StartedAt = time.Now().UTC()
		t.WorkerID = "render-" + uuid.NewString()[:8]
	})
	if err != nil {
		return
	}
	current, ok := newTaskGraph(tasks).find(task.ID)
	if !ok {
		return
	}
	s.emit(job, model.EventTaskStarted, map[string]any{
		"task_id":      current.ID,
		"task_key":     current.TaskKey,
		"task_type":    current.TaskType,
		"attempt":      current.Attempt,
		"display_name": current.DisplayName,
	})

	in := provider.ExecuteInput{
		ShopID:    job.ShopID,
		ProjectID: job.ProjectID,
		JobID:     job.ID,
		TaskID:    task.ID,
		TaskType:  task.TaskType,
		TraceID:   job.TraceID,
		Payload:   payload,
		Input:     task.Input,
	}
	canceled := func(stage string) {
		s.markTaskCanceled(job.ID, task.ID, "CANCELED", "Canceled "+stage)
		s.refreshProgress(job.ID)
	}

	var lastErr *provider.Error
	for attempt := current.Attempt; attempt <= current.MaxAttempt; attempt++ {
		if s.cancelRequested(job.ID) {
			canceled("during execution")
			return
		}

		ctx, stop := s.attemptContext(job.ID)
		out, pErr := s.prov.Execute(ctx, in)
		stop()
		if pErr == nil {
			s.completeTask(job, task, out)
			return
		}

		lastErr = pErr
		log.Warn("render task attempt failed",
			zap.Int("attempt", attempt),
			zap.String("code", pErr.Code),
			zap.Bool("retryable", pErr.Retryable),
			zap.String("detail", pErr.InternalMessage),
		)
		if pErr.Code == "CANCELED" && s.cancelRequested(job.ID) {
			canceled("during execution")
			return
		}
		if !pErr.Retryable || attempt >= current.MaxAttempt {
			break
		}
		if !s.sleepUnlessCanceled(job.ID, s.backoff(attempt)) {
			canceled("during backoff")
			return
		}
		_, _ = s.store.UpdateTask(job.ID, task.ID, func(t *model.JobTask) { t.Attempt++ })
	}

	if lastErr == nil {
		lastErr = &provider.Error{
			Category:        "unknown",
			Code:            "UNKNOWN",
			UserMessage:     "Render failed",
			InternalMessage: "no attempt was made",
		}
	}
	s.failTask(job, task, lastErr)
}

func (s *Service) completeTask(job model.Job, task model.JobTask, out provider.ExecuteOutput) {
	_, _ = s.store.UpdateTask(job.ID, task.ID, func(t *model.JobTask) {
		t.Status = model.TaskSucceeded
		t.Output = out.Output
		t.EndedAt = time.Now().UTC()
		t.Retryable = false
		t.ErrorCode, t.ErrorMsg = "", ""
	})
	if out.Asset != nil {
		if _, err := s.store.CreateAsset(*out.Asset); err == nil {
			s.emit(job, model.EventAssetReady, map[string]any{
				"asset_id":   out.Asset.ID,
				"asset_type": out.Asset.Type,
				"url":        out.Asset.URL,
			})
		}
	}
	s.emit(job, model.EventTaskSuccess, map[string]any{
		"task_id":   task.ID,
		"task_key":  task.TaskKey,
		"task_type": task.TaskType,
	})
	s.refreshProgress(job.ID)
}

func (s *Service) failTask(job model.Job, task model.JobTask, pErr *provider.Error) {
	_, _ = s.store.UpdateTask(job.ID, task.ID, func(t *model.JobTask) {
		t.Status = model.TaskFailed
		t.ErrorCode, t.ErrorMsg = pErr.Code, pErr.InternalMessage
		t.Retryable = pErr.Retryable
		t.EndedAt = time.Now().UTC()
	})
	s.emit(job, model.EventTaskFailed, map[string]any{
		"task_id":      task.ID,
		"task_key":     task.TaskKey,
		"task_type":    task.TaskType,
		"error_code":   pErr.Code,
		"retryable":    pErr.Retryable,
		"user_message": pErr.UserMessage,
	})
	s.refreshProgress(job.ID)
}

func (s *Service) markTaskCanceled(jobID, taskID, code, msg string) {
	_, _ = s.store.UpdateTask(jobID, taskID, func(t *model.JobTask) {
		t.Status = model.TaskCanceled
		t.ErrorCode, t.ErrorMsg = code, msg
		t.Retryable = false
		t.EndedAt = time.Now().UTC()
	})
}

func (s *Service) refreshProgress(jobID string) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return
	}
	tasks, err := s.store.GetJobTasks(jobID)
	if err != nil {
		return
	}
	job.Progress = newTaskGraph(tasks).progress()
	_ = s.store.UpdateJob(job)
	s.emit(job, model.EventJobProgress, map[string]any{
		"status":   job.Status,
		"progress": job.Progress,
	})
}

// finish records the settled graph's outcome on the job and its project.
func (s *Service) finish(job model.Job, g taskGraph) {
	now := time.Now().UTC()
	job.Status = g.outcome(job.CancelRequested)
	end := endings[job.Status]
	job.ErrorCode, job.ErrorMessage, job.Retryable = end.code, end.message, end.retryable
	job.Progress = g.progress()
	job.EndedAt = now
	if err := s.store.UpdateJob(job); err != nil {
		return
	}

	if project, err := s.store.GetProject(job.ProjectID); err == nil && project.CurrentJobID == job.ID {
		project.Status = string(job.Status)
		project.UpdatedAt = now
		_ = s.store.UpdateProject(project)
	}

	s.log.Info("render finished",
		zap.String("trace_id", job.TraceID),
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
		zap.Duration("elapsed", now.Sub(job.StartedAt)),
	)

	payload := map[string]any{"progress": job.Progress, "status": job.Status}
	if job.Status == model.JobFailed {
		payload["error_code"] = job.ErrorCode
		payload["error_message"] = job.ErrorMessage
	}
	s.emit(job, end.event, payload)
}

func (s *Service) cancelRequested(jobID string) bool {
	job, err := s.store.GetJob(jobID)
	return err != nil || job.CancelRequested
}

// sleepUnlessCanceled waits d and reports false if the job was canceled
// meanwhile.
func (s *Service) sleepUnlessCanceled(jobID string, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if s.cancelRequested(jobID) {
			return false
		}
		time.Sleep(min(cancelCheckInterval, time.Until(deadline)))
	}
	return true
}

// emit appends an event to the job's log and fans it out to live streams.
func (s *Service) emit(job model.Job, typ model.JobEventType, payload map[string]any) {
	evt, err := s.store.AppendJobEvent(job.ID, model.JobEvent{
		TraceID:   job.TraceID,
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Type:      typ,
		TS:        time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.log.Error("append event failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.hub.Publish(job.ID, evt)
}
