package api

import (
	"wrapreel/internal/auth"
	"wrapreel/internal/editor"
	"wrapreel/internal/events"
	"wrapreel/internal/job"
	"wrapreel/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	auth    *auth.Service
	store   *store.MemoryStore
	jobs    *job.Service
	hub     *events.Hub
	editors *editor.Registry
	log     *zap.Logger
}

func NewServer(authSvc *auth.Service, st *store.MemoryStore, jobs *job.Service, hub *events.Hub, editors *editor.Registry, logger *zap.Logger) *Server {
	return &Server{
		auth:    authSvc,
		store:   st,
		jobs:    jobs,
		hub:     hub,
		editors: editors,
		log:     logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(s.log))

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		writeData(c, 200, gin.H{"status": "ok"})
	})

	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.auth))
	{
		authed.GET("/client/bootstrap", s.clientBootstrap)
		authed.POST("/auth/logout", s.logout)
		authed.GET("/me", s.me)

		authed.GET("/shop/members", s.listMembers)
		authed.POST("/shop/staff", RequirePermission(auth.PermManageStaff), s.addStaff)
		authed.POST("/shop/staff/:user_id/disable", RequirePermission(auth.PermManageStaff), s.disableStaff)

		editProject := RequirePermission(auth.PermEditProject)
		authed.POST("/projects", editProject, s.createProject)
		authed.GET("/projects", s.listProjects)
		authed.GET("/projects/:project_id", s.getProject)
		authed.PATCH("/projects/:project_id", editProject, s.patchProject)
		authed.DELETE("/projects/:project_id", RequirePermission(auth.PermDeleteProject), s.deleteProject)

		bp := authed.Group("/projects/:project_id/blueprint")
		bp.GET("", s.getBlueprint)
		bp.GET("/validation", s.getValidation)
		bp.POST("/compile", s.compileBlueprint)

		bpEdit := bp.Group("", RequirePermission(auth.PermEditBlueprint))
		bpEdit.PUT("", s.putBlueprint)
		bpEdit.DELETE("", s.clearBlueprint)
		bpEdit.PATCH("/format", s.patchFormat)
		bpEdit.PATCH("/style", s.patchStyle)
		bpEdit.PATCH("/caption", s.patchCaption)
		bpEdit.PATCH("/scene-text", s.patchSceneText)
		bpEdit.POST("/optimize", s.optimizeScenes)
		bpEdit.POST("/resequence", s.resequenceScenes)

		runRender := RequirePermission(auth.PermRender)
		authed.POST("/projects/:project_id/renders", runRender, s.startRender)
		authed.GET("/jobs/:job_id", s.getJob)
		authed.POST("/jobs/:job_id/cancel", runRender, s.cancelJob)
		authed.POST("/jobs/:job_id/retry", runRender, s.retryJob)
		authed.GET("/jobs/:job_id/events", s.streamJobEvents)
		authed.GET("/jobs/:job_id/ws", s.wsJobEvents)

		authed.GET("/assets", s.listAssets)
		authed.GET("/assets/:asset_id", s.getAsset)

		authed.POST("/projects/:project_id/export", RequirePermission(auth.PermExport), s.createExport)
		authed.GET("/exports/:export_id", s.getExport)
		authed.GET("/exports/:export_id/download-url", s.getExportDownloadURL)
	}

	return r
}
