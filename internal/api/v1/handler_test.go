package v1

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"restodocks/internal/config"
	"restodocks/internal/linker"
	"restodocks/internal/model"
	"restodocks/internal/store"
)

type sseEvent struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "restodocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	h := NewHandler(cfg, st, linker.NewCoordinator(cfg, linker.WithStore(st)), Dirs{Uploads: dir, Outputs: dir}, nil)

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return router, st
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Продукты_цены"))
	_, err := f.NewSheet("Карточки Кухня")
	require.NoError(t, err)

	rows := []struct {
		sheet, cell string
		values      []any
	}{
		{"Продукты_цены", "A2", []any{"№", "Наименование", "Стоимость"}},
		{"Продукты_цены", "A3", []any{1, "Salt", 10}},
		{"Продукты_цены", "A4", []any{2, "Flour", 40}},
		{"Карточки Кухня", "A5", []any{"№", "Ингридиент", "Ед", "Шт/гр"}},
		{"Карточки Кухня", "A6", []any{1, "Salt", "гр", 5}},
		{"Карточки Кухня", "A7", []any{2, "Шафран", "гр", 1}},
	}
	for _, r := range rows {
		require.NoError(t, f.SetSheetRow(r.sheet, r.cell, &r.values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, operation string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if operation != "" {
		require.NoError(t, w.WriteField("operation", operation))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", "ТТК.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func readEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev sseEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestCreateRunStreamsAndDownloads(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, string(model.OpLinkPrices), workbookBytes(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, linker.EventStart, events[0].Type)
	last := events[len(events)-1]
	require.Equal(t, linker.EventDone, last.Type, last.Message)

	var done struct {
		Report      model.RunReport `json:"report"`
		DownloadURL string          `json:"downloadUrl"`
	}
	require.NoError(t, json.Unmarshal(last.Data, &done))
	assert.Equal(t, 1, done.Report.Summaries)
	require.Len(t, done.Report.Unresolved, 1)
	assert.Equal(t, "Шафран", done.Report.Unresolved[0].Name)
	require.True(t, strings.HasPrefix(done.DownloadURL, "/api/download/"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, done.DownloadURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "restodocks-link-prices.xlsx")

	out, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer out.Close()
	sum, err := out.GetCellFormula("Карточки Кухня", "J8")
	require.NoError(t, err)
	assert.Equal(t, "SUM(J6:J7)", sum)

	// 链接只能使用一次
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, done.DownloadURL, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRunRejectsBadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "bogus", workbookBytes(t)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunReportsMissingLedger(t *testing.T) {
	router, _ := newTestRouter(t)

	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, string(model.OpAll), buf.Bytes()))
	events := readEvents(t, w.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, linker.EventError, events[len(events)-1].Type)
}

func TestRunHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, string(model.OpAddMissing), workbookBytes(t)))
	events := readEvents(t, w.Body.String())
	var done struct {
		Report model.RunReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(events[len(events)-1].Data, &done))
	runID := done.Report.RunID
	require.NotEmpty(t, runID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []store.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, runID, list.Runs[0].ID)
	assert.Equal(t, 1, list.Runs[0].Appended)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var detail RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, store.RunSuccess, detail.Run.Status)
	assert.NotEmpty(t, detail.Sheets)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 1, status.TotalRuns)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, runID, status.LastRun.ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/runs/"+runID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildContentDisposition("ТТК_linked.xlsx", model.OpLinkPrices)
	want := "attachment; filename=\"restodocks-link-prices.xlsx\"; filename*=UTF-8''%D0%A2%D0%A2%D0%9A_linked.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}
