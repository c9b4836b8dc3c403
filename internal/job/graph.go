package job

import (
	"math/rand"
	"time"

	"wrapreel/internal/model"

	"github.com/google/uuid"
)

const maxTaskAttempts = 3

// renderPlan is the task DAG of every render: the video first, then a
// thumbnail cut from it.
var renderPlan = []struct {
	typ       model.TaskType
	name      string
	dependsOn []model.TaskType
}{
	{typ: model.TaskRenderVideo, name: "Render video"},
	{typ: model.TaskGenerateThumbnail, name: "Thumbnail", dependsOn: []model.TaskType{model.TaskRenderVideo}},
}

func planTasks(job model.Job) []model.JobTask {
	tasks := make([]model.JobTask, 0, len(renderPlan))
	for _, step := range renderPlan {
		deps := make([]string, 0, len(step.dependsOn))
		for _, d := range step.dependsOn {
			deps = append(deps, string(d))
		}
		tasks = append(tasks, requeue(model.JobTask{
			ID:          uuid.NewString(),
			JobID:       job.ID,
			ProjectID:   job.ProjectID,
			TraceID:     job.TraceID,
			TaskKey:     string(step.typ),
			TaskType:    step.typ,
			DisplayName: step.name,
			MaxAttempt:  maxTaskAttempts,
			DependsOn:   deps,
			Input:       map[string]any{"payload_asset_id": job.PayloadAssetID},
		}))
	}
	return tasks
}

// requeue returns t as a fresh queued task, keeping only what identifies it
// and what it needs to run.
func requeue(t model.JobTask) model.JobTask {
	return model.JobTask{
		ID:          t.ID,
		JobID:       t.JobID,
		ProjectID:   t.ProjectID,
		TraceID:     t.TraceID,
		TaskKey:     t.TaskKey,
		TaskType:    t.TaskType,
		DisplayName: t.DisplayName,
		MaxAttempt:  t.MaxAttempt,
		DependsOn:   t.DependsOn,
		Input:       t.Input,
		Output:      map[string]any{},
		Status:      model.TaskQueued,
	}
}

// taskGraph answers dependency questions about one snapshot of a job's tasks.
type taskGraph struct {
	tasks  []model.JobTask
	status map[string]model.TaskStatus
}

func newTaskGraph(tasks []model.JobTask) taskGraph {
	g := taskGraph{tasks: tasks, status: make(map[string]model.TaskStatus, len(tasks))}
	for _, t := range tasks {
		g.status[t.TaskKey] = t.Status
	}
	return g
}

// runnable lists queued tasks whose dependencies have all succeeded.
func (g taskGraph) runnable() []model.JobTask {
	var out []model.JobTask
	for _, t := range g.tasks {
		if t.Status == model.TaskQueued && g.depsSucceeded(t) {
			out = append(out, t)
		}
	}
	return out
}

func (g taskGraph) depsSucceeded(t model.JobTask) bool {
	for _, dep := range t.DependsOn {
		if g.status[dep] != model.TaskSucceeded {
			return false
		}
	}
	return true
}

// deadDependency names the first dependency of t that can no longer succeed.
func (g taskGraph) deadDependency(t model.JobTask) (string, bool) {
	for _, dep := range t.DependsOn {
		if g.status[dep].Dead() {
			return dep, true
		}
	}
	return "", false
}

func (g taskGraph) settled() bool {
	for _, t := range g.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

func (g taskGraph) progress() float64 {
	if len(g.tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range g.tasks {
		if t.Status.Terminal() {
			done++
		}
	}
	return float64(done) / float64(len(g.tasks))
}

// outcome folds a settled graph into the job's final status. Any failure
// wins over cancellation.
func (g taskGraph) outcome(cancelRequested bool) model.JobStatus {
	status := model.JobSucceeded
	if cancelRequested {
		status = model.JobCanceled
	}
	for _, t := range g.tasks {
		switch t.Status {
		case model.TaskFailed:
			return model.JobFailed
		case model.TaskCanceled:
			status = model.JobCanceled
		}
	}
	return status
}

func (g taskGraph) find(id string) (model.JobTask, bool) {
	for _, t := range g.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.JobTask{}, false
}

// retryBackoff yields 1s, 2s, 4s... plus up to 20% jitter.
func retryBackoff(attempt int) time.Duration {
	base := time.Second << max(attempt-1, 0)
	return base + time.Duration(rand.Int63n(int64(base/5)))
}
