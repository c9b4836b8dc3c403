package api

import (
	"errors"
	"net/http"

	"wrapreel/internal/blueprint"
	"wrapreel/internal/render"
	"wrapreel/internal/sceneops"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errNoBlueprint = errors.New("no blueprint")

// editBlueprint runs fn on the project's editor session and writes the
// resulting snapshot.
func (s *Server) editBlueprint(c *gin.Context, fn func(ed *blueprint.Editor) error) {
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	session, err := s.editors.Open(project.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open blueprint", true, nil)
		return
	}
	snap, err := session.Do(fn)
	if err != nil {
		s.writeBlueprintError(c, err)
		return
	}
	writeData(c, http.StatusOK, snap)
}

func (s *Server) writeBlueprintError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNoBlueprint):
		writeError(c, http.StatusConflict, "NO_BLUEPRINT", "No blueprint created yet", false, nil)
	case errors.Is(err, sceneops.ErrUnknownStrategy):
		writeError(c, http.StatusBadRequest, "UNKNOWN_STRATEGY", err.Error(), false, nil)
	default:
		writeError(c, http.StatusInternalServerError, "BLUEPRINT_SAVE_FAILED", "Failed to save blueprint", true, nil)
	}
}

// requireBlueprint maps an edit that found no blueprint to errNoBlueprint.
func requireBlueprint(applied bool) error {
	if !applied {
		return errNoBlueprint
	}
	return nil
}

func (s *Server) getBlueprint(c *gin.Context) {
	s.editBlueprint(c, func(*blueprint.Editor) error { return nil })
}

func (s *Server) putBlueprint(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var bp blueprint.SceneBlueprint
	if err := c.ShouldBindJSON(&bp); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid blueprint payload", false, nil)
		return
	}
	if bp.ID == "" {
		bp.ID = uuid.NewString()
	}
	if bp.Scenes == nil {
		bp.Scenes = []blueprint.Scene{}
	}
	// total_duration is derived; whatever the client sent is overwritten.
	bp.TotalDuration = blueprint.SumDurations(bp.Scenes)
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		ed.Replace(bp)
		return nil
	})
}

func (s *Server) clearBlueprint(c *gin.Context) {
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		ed.Clear()
		return nil
	})
}

type formatRequest struct {
	Format      blueprint.Format      `json:"format" binding:"required"`
	AspectRatio blueprint.AspectRatio `json:"aspect_ratio" binding:"required"`
	TemplateID  string                `json:"template_id"`
}

func (s *Server) patchFormat(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "format and aspect_ratio are required", false, nil)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.SetFormat(req.Format, req.AspectRatio, req.TemplateID))
	})
}

type styleRequest struct {
	OverlayPack string              `json:"overlay_pack"`
	Font        string              `json:"font"`
	TextStyle   blueprint.TextStyle `json:"text_style"`
}

func (s *Server) patchStyle(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req styleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid style payload", false, nil)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.SetOverlayPack(req.OverlayPack, req.Font, req.TextStyle))
	})
}

type captionRequest struct {
	Caption string `json:"caption"`
}

func (s *Server) patchCaption(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req captionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid caption payload", false, nil)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.SetCaption(req.Caption))
	})
}

type sceneTextRequest struct {
	Texts []string `json:"texts" binding:"required"`
}

func (s *Server) patchSceneText(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req sceneTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "texts is required", false, nil)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.SetSceneText(req.Texts))
	})
}

type strategyRequest struct {
	Strategy string          `json:"strategy" binding:"required"`
	Params   sceneops.Params `json:"params"`
}

func (s *Server) optimizeScenes(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "strategy is required", false, nil)
		return
	}
	t, err := sceneops.OptimizerByName(req.Strategy, req.Params)
	if err != nil {
		s.writeBlueprintError(c, err)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.OptimizeScenes(t))
	})
}

func (s *Server) resequenceScenes(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "strategy is required", false, nil)
		return
	}
	r, err := sceneops.ResequencerByName(req.Strategy, req.Params)
	if err != nil {
		s.writeBlueprintError(c, err)
		return
	}
	s.editBlueprint(c, func(ed *blueprint.Editor) error {
		return requireBlueprint(ed.ResequenceScenes(r))
	})
}

func (s *Server) getValidation(c *gin.Context) {
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	session, err := s.editors.Open(project.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open blueprint", true, nil)
		return
	}
	writeData(c, http.StatusOK, session.Snapshot().Validation)
}

type compileRequest struct {
	AudioURL string `json:"audio_url"`
	Strict   bool   `json:"strict"`
}

// compileBlueprint previews the render payload for the current blueprint.
// Strict requests are refused while the blueprint does not validate.
func (s *Server) compileBlueprint(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req compileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid compile payload", false, nil)
			return
		}
	}
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	session, err := s.editors.Open(project.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open blueprint", true, nil)
		return
	}
	snap := session.Snapshot()
	if snap.Blueprint == nil {
		writeError(c, http.StatusConflict, "NO_BLUEPRINT", "No blueprint created yet", false, nil)
		return
	}
	if req.Strict && !snap.Validation.Valid {
		writeNotReady(c, snap.Validation)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"payload":    render.Compile(*snap.Blueprint, req.AudioURL),
		"validation": snap.Validation,
		"revision":   snap.Revision,
	})
}
