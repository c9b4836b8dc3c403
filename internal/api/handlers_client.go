package api

import (
	"net/http"

	"wrapreel/internal/auth"
	"wrapreel/internal/blueprint"
	"wrapreel/internal/render"

	"github.com/gin-gonic/gin"
)

func (s *Server) clientBootstrap(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{
		"minimum_client_versions": gin.H{
			"web":     "0.1.0",
			"ios":     "0.1.0",
			"android": "0.1.0",
		},
		"feature_flags": gin.H{
			"sse_job_events":       true,
			"ws_job_events":        true,
			"blueprint_editor":     true,
			"scene_optimizer":      true,
			"asset_library":        true,
			"export_download":      true,
			"creatomate_rendering": true,
		},
		"role":        roleFromContext(c),
		"permissions": auth.Permissions(roleFromContext(c)),
		"blueprint": gin.H{
			"formats":        blueprint.Formats,
			"aspect_ratios":  blueprint.AspectRatios,
			"text_styles":    blueprint.TextStyles,
			"text_positions": blueprint.TextPositions,
			"animations":     blueprint.Animations,
			"overlay_packs":  render.OverlayPacks(),
			"frame_rate":     render.FrameRate,
			"optimizers":     []string{"keep_first", "drop_shorter_than", "cap_length", "longest"},
			"resequencers":   []string{"reverse", "move", "fit_duration"},
		},
		"sse": gin.H{
			"heartbeat_sec": 15,
			"retry_ms":      2000,
		},
	})
}
