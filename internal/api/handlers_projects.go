package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wrapreel/internal/model"
	"wrapreel/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createProjectRequest struct {
	Name  string `json:"name" binding:"required"`
	Brand string `json:"brand"`
}

func (s *Server) createProject(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid project payload", false, nil)
		return
	}
	now := time.Now().UTC()
	project := model.Project{
		ID:        uuid.NewString(),
		ShopID:    shopIDFromContext(c),
		CreatedBy: userIDFromContext(c),
		Name:      strings.TrimSpace(req.Name),
		Brand:     strings.TrimSpace(req.Brand),
		Status:    "draft",
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.store.CreateProject(project)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(c, http.StatusConflict, "PROJECT_CONFLICT", "Project already exists", false, nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create project", false, nil)
		return
	}
	writeData(c, http.StatusCreated, created)
}

func (s *Server) listProjects(c *gin.Context) {
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("page_size"), 20)
	items, total := s.store.ListProjects(shopIDFromContext(c), page, pageSize)
	writeData(c, http.StatusOK, gin.H{
		"items":     items,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// loadProject resolves :project_id for the caller's shop and writes the
// error response itself when it cannot.
func (s *Server) loadProject(c *gin.Context) (model.Project, bool) {
	project, err := s.store.GetProject(c.Param("project_id"))
	if err != nil || project.ShopID != shopIDFromContext(c) {
		writeError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found", false, nil)
		return model.Project{}, false
	}
	return project, true
}

func (s *Server) getProject(c *gin.Context) {
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	writeData(c, http.StatusOK, project)
}

type patchProjectRequest struct {
	Name  *string `json:"name"`
	Brand *string `json:"brand"`
}

func (s *Server) patchProject(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	var req patchProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid patch payload", false, nil)
		return
	}
	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Brand != nil {
		project.Brand = strings.TrimSpace(*req.Brand)
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProject(project); err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update project", false, nil)
		return
	}
	writeData(c, http.StatusOK, project)
}

func (s *Server) deleteProject(c *gin.Context) {
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	if err := s.store.DeleteProject(project.ID); err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete project", false, nil)
		return
	}
	s.editors.Close(project.ID)
	writeData(c, http.StatusOK, gin.H{"ok": true})
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	var n int
	_, err := fmt.Sscanf(raw, "%d", &n)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
