package api

import (
	"fmt"
	"net/http"
	"time"

	"wrapreel/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const downloadURLTTL = 10 * time.Minute

func (s *Server) listAssets(c *gin.Context) {
	projectID := c.Query("project_id")
	assetType := model.AssetType(c.Query("type"))
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("page_size"), 20)
	items, total := s.store.ListAssets(shopIDFromContext(c), projectID, assetType, page, pageSize)
	writeData(c, http.StatusOK, gin.H{
		"items":     items,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

func (s *Server) getAsset(c *gin.Context) {
	asset, err := s.store.GetAsset(c.Param("asset_id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "ASSET_NOT_FOUND", "Asset not found", false, nil)
		return
	}
	if asset.ShopID != shopIDFromContext(c) {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "No access to asset", false, nil)
		return
	}
	writeData(c, http.StatusOK, asset)
}

func (s *Server) createExport(c *gin.Context) {
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	now := time.Now().UTC()
	exp := model.Export{
		ID:        uuid.NewString(),
		ShopID:    project.ShopID,
		ProjectID: project.ID,
		Status:    model.ExportQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.store.CreateExport(exp); err != nil {
		writeError(c, http.StatusInternalServerError, "EXPORT_CREATE_FAILED", "Failed to create export", true, nil)
		return
	}
	go s.resolveExport(exp.ID)
	writeData(c, http.StatusAccepted, exp)
}

func (s *Server) loadExport(c *gin.Context) (model.Export, bool) {
	exp, err := s.store.GetExport(c.Param("export_id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "EXPORT_NOT_FOUND", "Export not found", false, nil)
		return model.Export{}, false
	}
	if exp.ShopID != shopIDFromContext(c) {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "No access to export", false, nil)
		return model.Export{}, false
	}
	return exp, true
}

func (s *Server) getExport(c *gin.Context) {
	exp, ok := s.loadExport(c)
	if !ok {
		return
	}
	writeData(c, http.StatusOK, exp)
}

func (s *Server) getExportDownloadURL(c *gin.Context) {
	exp, ok := s.loadExport(c)
	if !ok {
		return
	}
	if exp.Status != model.ExportSucceeded {
		writeError(c, http.StatusConflict, "EXPORT_NOT_READY", "Export is not ready", true, map[string]any{"status": exp.Status})
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"export_id":      exp.ID,
		"download_url":   exp.DownloadURL,
		"expires_in_sec": int(downloadURLTTL.Seconds()),
	})
}

// resolveExport waits for the project's newest rendered video and links it.
func (s *Server) resolveExport(exportID string) {
	exp, err := s.store.GetExport(exportID)
	if err != nil {
		return
	}
	exp.Status = model.ExportRunning
	exp.UpdatedAt = time.Now().UTC()
	_ = s.store.UpdateExport(exp)

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		assets, _ := s.store.ListAssets(exp.ShopID, exp.ProjectID, model.AssetFinalVideo, 1, 1)
		if len(assets) > 0 {
			exp.Status = model.ExportSucceeded
			exp.AssetID = assets[0].ID
			exp.DownloadURL = downloadURL(assets[0])
			exp.UpdatedAt = time.Now().UTC()
			_ = s.store.UpdateExport(exp)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	exp.Status = model.ExportFailed
	exp.UpdatedAt = time.Now().UTC()
	_ = s.store.UpdateExport(exp)
	s.log.Warn("export timed out waiting for a rendered video", zap.String("export_id", exp.ID), zap.String("project_id", exp.ProjectID))
}

// downloadURL prefers the renderer's public URL and falls back to a
// storage link.
func downloadURL(asset model.Asset) string {
	if asset.URL != "" {
		return asset.URL
	}
	return fmt.Sprintf("https://storage.local/%s?expires_in=%d&token=%s", asset.StorageKey, int(downloadURLTTL.Seconds()), uuid.NewString())
}
