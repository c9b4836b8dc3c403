package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"wrapreel/internal/blueprint"
	"wrapreel/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]model.User
	userByEmail map[string]string
	usersByShop map[string][]string

	refreshTokens map[string]model.RefreshToken

	projects   map[string]model.Project
	blueprints map[string]model.BlueprintDoc

	jobs             map[string]model.Job
	tasksByJob       map[string][]model.JobTask
	eventsByJob      map[string][]model.JobEvent
	eventSeqByJob    map[string]int64
	idempotencyToJob map[string]string

	assets         map[string]model.Asset
	assetByProject map[string][]string

	exports map[string]model.Export
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:            map[string]model.User{},
		userByEmail:      map[string]string{},
		usersByShop:      map[string][]string{},
		refreshTokens:    map[string]model.RefreshToken{},
		projects:         map[string]model.Project{},
		blueprints:       map[string]model.BlueprintDoc{},
		jobs:             map[string]model.Job{},
		tasksByJob:       map[string][]model.JobTask{},
		eventsByJob:      map[string][]model.JobEvent{},
		eventSeqByJob:    map[string]int64{},
		idempotencyToJob: map[string]string{},
		assets:           map[string]model.Asset{},
		assetByProject:   map[string][]string{},
		exports:          map[string]model.Export{},
	}
}

func (s *MemoryStore) CreateProject(project model.Project) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; ok {
		return model.Project{}, ErrConflict
	}
	s.projects[project.ID] = project
	return project, nil
}

func (s *MemoryStore) ListProjects(shopID string, page, pageSize int) ([]model.Project, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []model.Project
	for _, p := range s.projects {
		if p.ShopID == shopID {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return paginate(items, page, pageSize)
}

func (s *MemoryStore) GetProject(projectID string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return model.Project{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdateProject(project model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return ErrNotFound
	}
	s.projects[project.ID] = project
	return nil
}

// DeleteProject removes the project and its blueprint document. Jobs and
// assets are kept for audit.
func (s *MemoryStore) DeleteProject(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return ErrNotFound
	}
	delete(s.projects, projectID)
	delete(s.blueprints, projectID)
	return nil
}

// SaveBlueprint stores a snapshot and bumps the document revision.
func (s *MemoryStore) SaveBlueprint(projectID string, bp blueprint.SceneBlueprint, v blueprint.Validation) (model.BlueprintDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return model.BlueprintDoc{}, ErrNotFound
	}
	doc := model.BlueprintDoc{
		ProjectID:  projectID,
		Blueprint:  bp.Clone(),
		Validation: v,
		Revision:   s.blueprints[projectID].Revision + 1,
		UpdatedAt:  time.Now().UTC(),
	}
	s.blueprints[projectID] = doc
	return doc, nil
}

func (s *MemoryStore) GetBlueprint(projectID string) (model.BlueprintDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.blueprints[projectID]
	if !ok {
		return model.BlueprintDoc{}, ErrNotFound
	}
	doc.Blueprint = doc.Blueprint.Clone()
	return doc, nil
}

func (s *MemoryStore) DeleteBlueprint(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blueprints, projectID)
}

func (s *MemoryStore) CreateJob(job model.Job, tasks []model.JobTask, idempotencyKey string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idempotencyKey != "" {
		k := job.ShopID + ":" + idempotencyKey
		if existing, ok := s.idempotencyToJob[k]; ok {
			return s.jobs[existing], nil
		}
		s.idempotencyToJob[k] = job.ID
	}
	s.jobs[job.ID] = job
	s.tasksByJob[job.ID] = append([]model.JobTask(nil), tasks...)
	s.eventsByJob[job.ID] = []model.JobEvent{}
	s.eventSeqByJob[job.ID] = 0
	return job, nil
}

func (s *MemoryStore) GetJobByIdempotency(shopID, idempotencyKey string) (model.Job, bool) {
	if idempotencyKey == "" {
		return model.Job{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobID, ok := s.idempotencyToJob[shopID+":"+idempotencyKey]
	if !ok {
		return model.Job{}, false
	}
	job, ok := s.jobs[jobID]
	return job, ok
}

func (s *MemoryStore) GetJob(jobID string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return j, nil
}

func (s *MemoryStore) UpdateJob(job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetJobTasks(jobID string) ([]model.JobTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks, ok := s.tasksByJob[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.JobTask(nil), tasks...), nil
}

// UpdateTask applies fn to one task under the store lock so concurrent task
// runners never overwrite each other's changes.
func (s *MemoryStore) UpdateTask(jobID, taskID string, fn func(*model.JobTask)) ([]model.JobTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, ok := s.tasksByJob[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			fn(&tasks[i])
			return append([]model.JobTask(nil), tasks...), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ReplaceJobTasks(jobID string, tasks []model.JobTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasksByJob[jobID]; !ok {
		return ErrNotFound
	}
	s.tasksByJob[jobID] = append([]model.JobTask(nil), tasks...)
	return nil
}

func (s *MemoryStore) AppendJobEvent(jobID string, event model.JobEvent) (model.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return model.JobEvent{}, ErrNotFound
	}
	seq := s.eventSeqByJob[jobID] + 1
	s.eventSeqByJob[jobID] = seq
	event.Seq = seq
	event.EventID = uuid.NewString()
	s.eventsByJob[jobID] = append(s.eventsByJob[jobID], event)
	return event, nil
}

func (s *MemoryStore) ListJobEventsFromSeq(jobID string, fromSeq int64) ([]model.JobEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.eventsByJob[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.JobEvent, 0, len(events))
	for _, e := range events {
		if e.Seq > fromSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAsset(asset model.Asset) (model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[asset.ID]; ok {
		return model.Asset{}, ErrConflict
	}
	s.assets[asset.ID] = asset
	s.assetByProject[asset.ProjectID] = append(s.assetByProject[asset.ProjectID], asset.ID)
	return asset, nil
}

func (s *MemoryStore) GetAsset(assetID string) (model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[assetID]
	if !ok {
		return model.Asset{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListAssets(shopID, projectID string, assetType model.AssetType, page, pageSize int) ([]model.Asset, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Asset
	for _, a := range s.assets {
		if a.ShopID != shopID {
			continue
		}
		if projectID != "" && a.ProjectID != projectID {
			continue
		}
		if assetType != "" && a.Type != assetType {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, pageSize)
}

func (s *MemoryStore) CreateExport(exp model.Export) (model.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[exp.ID] = exp
	return exp, nil
}

func (s *MemoryStore) GetExport(exportID string) (model.Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.exports[exportID]
	if !ok {
		return model.Export{}, ErrNotFound
	}
	return exp, nil
}

func (s *MemoryStore) UpdateExport(exp model.Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exports[exp.ID]; !ok {
		return ErrNotFound
	}
	s.exports[exp.ID] = exp
	return nil
}

func paginate[T any](items []T, page, pageSize int) ([]T, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		return []T{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return append([]T{}, items[start:end]...), total
}
