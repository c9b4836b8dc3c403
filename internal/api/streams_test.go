package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"wrapreel/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderReadyProject creates a project with a renderable blueprint and
// starts a render for it.
func renderReadyProject(t *testing.T, h http.Handler, token string) (projectID, jobID string) {
	t.Helper()
	projectID = createProject(t, h, token)
	base := "/api/v1/projects/" + projectID
	code, _ := call(t, h, http.MethodPut, base+"/blueprint", token, map[string]any{
		"format":       "reel",
		"aspect_ratio": "9:16",
		"scenes":       []map[string]any{{"clip_url": "https://cdn.test/a.mp4", "start": 0, "end": 2}},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp := call(t, h, http.MethodPost, base+"/renders", token, map[string]any{})
	require.Equal(t, http.StatusCreated, code)
	var j struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &j))
	return projectID, j.ID
}

func waitJobSucceeded(t *testing.T, h http.Handler, token, jobID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		code, resp := call(t, h, http.MethodGet, "/api/v1/jobs/"+jobID, token, nil)
		if code != http.StatusOK {
			return false
		}
		var got struct {
			Job struct {
				Status model.JobStatus `json:"status"`
			} `json:"job"`
		}
		_ = json.Unmarshal(resp.Data, &got)
		return got.Job.Status == model.JobSucceeded
	}, 20*time.Second, 50*time.Millisecond)
}

func TestJobEventsOverWebSocket(t *testing.T) {
	env := setupTestRouter(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := login(t, env.handler, "owner@a.test")
	_, jobID := renderReadyProject(t, env.handler, token)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/jobs/" + jobID + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?access_token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(20*time.Second)))

	var seen []model.JobEvent
	for {
		var evt model.JobEvent
		require.NoError(t, conn.ReadJSON(&evt))
		seen = append(seen, evt)
		if evt.Type == model.EventJobSucceeded || evt.Type == model.EventJobFailed {
			break
		}
	}
	assert.Equal(t, model.EventJobCreated, seen[0].Type)
	assert.Equal(t, model.EventJobSucceeded, seen[len(seen)-1].Type)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Seq, seen[i-1].Seq, "events must arrive once and in order")
	}
}

func TestQueryTokenOnlyAcceptedForUpgrades(t *testing.T) {
	env := setupTestRouter(t)
	token := login(t, env.handler, "owner@a.test")
	code, _ := call(t, env.handler, http.MethodGet, "/api/v1/projects?access_token="+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestJobEventsSSEResumesAfterLastEventID(t *testing.T) {
	env := setupTestRouter(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := login(t, env.handler, "owner@a.test")
	_, jobID := renderReadyProject(t, env.handler, token)
	waitJobSucceeded(t, env.handler, token, jobID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/jobs/"+jobID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Last-Event-ID", "1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var ids []int64
	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "id: "); ok {
			id, err := strconv.ParseInt(v, 10, 64)
			require.NoError(t, err)
			ids = append(ids, id)
		}
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			types = append(types, v)
			if v == string(model.EventJobSucceeded) {
				break
			}
		}
	}
	require.NotEmpty(t, ids)
	assert.Equal(t, int64(2), ids[0], "the acknowledged event is not replayed")
	assert.NotContains(t, types, string(model.EventJobCreated))
	assert.Equal(t, string(model.EventJobSucceeded), types[len(types)-1])
}

func TestExportLinksRenderedVideo(t *testing.T) {
	env := setupTestRouter(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := login(t, env.handler, "owner@a.test")
	projectID, jobID := renderReadyProject(t, env.handler, token)
	waitJobSucceeded(t, env.handler, token, jobID)

	code, resp := call(t, env.handler, http.MethodGet, "/api/v1/assets?project_id="+projectID+"&type=final_video", token, nil)
	require.Equal(t, http.StatusOK, code)
	var assets struct {
		Items []model.Asset `json:"items"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &assets))
	require.Equal(t, 1, assets.Total)

	code, resp = call(t, env.handler, http.MethodPost, "/api/v1/projects/"+projectID+"/export", token, map[string]any{})
	require.Equal(t, http.StatusAccepted, code)
	var exp model.Export
	require.NoError(t, json.Unmarshal(resp.Data, &exp))

	otherToken := login(t, env.handler, "owner@b.test")
	code, _ = call(t, env.handler, http.MethodGet, "/api/v1/exports/"+exp.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	require.Eventually(t, func() bool {
		code, resp := call(t, env.handler, http.MethodGet, "/api/v1/exports/"+exp.ID, token, nil)
		var got model.Export
		_ = json.Unmarshal(resp.Data, &got)
		return code == http.StatusOK && got.Status == model.ExportSucceeded
	}, 5*time.Second, 50*time.Millisecond)

	httpResp, err := srv.Client().Do(authedRequest(t, srv.URL+"/api/v1/exports/"+exp.ID+"/download-url", token))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	var body struct {
		Data struct {
			DownloadURL  string `json:"download_url"`
			ExpiresInSec int    `json:"expires_in_sec"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&body))
	assert.Equal(t, assets.Items[0].URL, body.Data.DownloadURL)
	assert.Equal(t, 600, body.Data.ExpiresInSec)
}

func authedRequest(t *testing.T, url, token string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
