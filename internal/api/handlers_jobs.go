package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wrapreel/internal/job"
	"wrapreel/internal/model"
	"wrapreel/internal/render"
	"wrapreel/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type startRenderRequest struct {
	AudioURL string `json:"audio_url"`
}

func (s *Server) startRender(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req startRenderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid render payload", false, nil)
			return
		}
	}
	project, ok := s.loadProject(c)
	if !ok {
		return
	}
	idempotencyKey := c.GetHeader("Idempotency-Key")
	j, err := s.jobs.StartRender(c.Request.Context(), project.ShopID, project.ID, traceIDFromContext(c), idempotencyKey, strings.TrimSpace(req.AudioURL))
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNoBlueprint):
			writeError(c, http.StatusConflict, "NO_BLUEPRINT", "No blueprint created yet", false, nil)
		case errors.Is(err, render.ErrNotReady):
			doc, _ := s.store.GetBlueprint(project.ID)
			writeNotReady(c, doc.Validation)
		case errors.Is(err, job.ErrTooManyRunningJobs):
			writeError(c, http.StatusTooManyRequests, "SHOP_RENDER_LIMIT", "Too many running renders", true, nil)
		default:
			s.log.Error("start render failed", zap.String("trace_id", traceIDFromContext(c)), zap.Error(err))
			writeError(c, http.StatusInternalServerError, "START_RENDER_FAILED", "Failed to start render", true, nil)
		}
		return
	}
	writeData(c, http.StatusCreated, j)
}

// loadJob resolves :job_id for the caller's shop.
func (s *Server) loadJob(c *gin.Context) (model.Job, bool) {
	j, err := s.jobs.GetJob(c.Param("job_id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", false, nil)
		return model.Job{}, false
	}
	if j.ShopID != shopIDFromContext(c) {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "No access to job", false, nil)
		return model.Job{}, false
	}
	return j, true
}

func (s *Server) getJob(c *gin.Context) {
	j, ok := s.loadJob(c)
	if !ok {
		return
	}
	tasks, _ := s.jobs.GetJobTasks(j.ID)
	writeData(c, http.StatusOK, gin.H{
		"job":   j,
		"tasks": tasks,
	})
}

func (s *Server) cancelJob(c *gin.Context) {
	j, err := s.jobs.CancelJob(shopIDFromContext(c), c.Param("job_id"))
	if err != nil {
		s.writeJobError(c, err)
		return
	}
	writeData(c, http.StatusOK, j)
}

func (s *Server) retryJob(c *gin.Context) {
	j, err := s.jobs.RetryJob(c.Request.Context(), shopIDFromContext(c), c.Param("job_id"), traceIDFromContext(c))
	if err != nil {
		s.writeJobError(c, err)
		return
	}
	writeData(c, http.StatusOK, j)
}

func (s *Server) writeJobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", false, nil)
	case errors.Is(err, store.ErrForbidden):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "No access to job", false, nil)
	case errors.Is(err, job.ErrInvalidJobState):
		writeError(c, http.StatusConflict, "INVALID_JOB_STATE", "Only failed/canceled jobs can retry", false, nil)
	case errors.Is(err, job.ErrTooManyRunningJobs):
		writeError(c, http.StatusTooManyRequests, "SHOP_RENDER_LIMIT", "Too many running renders", true, nil)
	default:
		writeError(c, http.StatusInternalServerError, "JOB_UPDATE_FAILED", "Failed to update job", true, nil)
	}
}

// eventCursor reads the resume point from Last-Event-ID or ?from_seq.
func eventCursor(c *gin.Context) int64 {
	fromSeq := parseLastEventSeq(c.GetHeader("Last-Event-ID"))
	if q := c.Query("from_seq"); q != "" {
		if v, err := strconv.ParseInt(q, 10, 64); err == nil && v > 0 {
			fromSeq = v
		}
	}
	return fromSeq
}

func (s *Server) streamJobEvents(c *gin.Context) {
	j, ok := s.loadJob(c)
	if !ok {
		return
	}

	lastSeq := eventCursor(c)
	sub, unsubscribe := s.hub.Subscribe(j.ID, 128)
	defer unsubscribe()
	backlog, _ := s.jobs.ListEventsFrom(j.ID, lastSeq)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		writeError(c, http.StatusInternalServerError, "SSE_UNSUPPORTED", "Streaming unsupported", false, nil)
		return
	}

	for _, evt := range backlog {
		writeSSE(c, evt)
		lastSeq = evt.Seq
	}
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if evt.Seq <= lastSeq {
				continue
			}
			writeSSE(c, evt)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(c.Writer, ": ping %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeSSE(c *gin.Context, evt model.JobEvent) {
	payload, _ := json.Marshal(evt)
	fmt.Fprintf(c.Writer, "id: %d\n", evt.Seq)
	fmt.Fprintf(c.Writer, "event: %s\n", evt.Type)
	fmt.Fprintf(c.Writer, "data: %s\n\n", string(payload))
}

func parseLastEventSeq(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsJobEvents streams the same events as the SSE endpoint over a WebSocket,
// one JSON event per text message.
func (s *Server) wsJobEvents(c *gin.Context) {
	j, ok := s.loadJob(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("job_id", j.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	lastSeq := eventCursor(c)
	sub, unsubscribe := s.hub.Subscribe(j.ID, 128)
	defer unsubscribe()
	backlog, _ := s.jobs.ListEventsFrom(j.ID, lastSeq)

	// The read pump only handles control frames and notices the client
	// going away.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(evt model.JobEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(evt) == nil
	}

	for _, evt := range backlog {
		if !send(evt) {
			return
		}
		lastSeq = evt.Seq
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if evt.Seq <= lastSeq {
				continue
			}
			if !send(evt) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
