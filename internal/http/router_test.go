package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/metrics"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/spreadsheet"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUser = "owner@example.com"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	hooks := &service.Hooks{Cache: store.NewMemoryKV(), Metrics: metrics.Nop{}, Logger: logger}
	occupancy := service.NewOccupancyService(st, hooks, logger)

	router := NewRouter(directory.HeaderDirectory{}, logger)
	router.RegisterHealthRoutes()
	router.RegisterCampRoutes(NewCampHandler(service.NewCampService(st, hooks, logger), logger))
	router.RegisterOccupancyRoutes(NewOccupancyHandler(occupancy, logger))
	router.RegisterImportRoutes(NewImportHandler(service.NewImportService(st, hooks, logger), occupancy, 1<<20, logger))
	router.RegisterReportRoutes(NewReportHandler(service.NewReportService(st, hooks, 0, logger), logger))
	router.RegisterPersonnelRoutes(NewPersonnelHandler(
		service.NewPersonnelService(st, logger), service.NewAttendanceService(st, logger), logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(directory.HeaderEmail, testUser)
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func createCamp(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, env := do(t, srv, http.MethodPost, "/api/camps", map[string]any{"name": "Kamp A"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	return decode[service.GetCampResponse](t, env.Result).Camp.ID
}

func TestRouter_Healthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/camps", nil)
	require.NoError(t, err)
	status, env := send(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, ResultError, env.Code)
	assert.Equal(t, "error", env.Type)

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/api/camps", nil)
	require.NoError(t, err)
	req.Header.Set(directory.HeaderEmail, testUser)
	req.Header.Set(directory.HeaderApproved, "maybe")
	status, _ = send(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_OccupancyFlow(t *testing.T) {
	srv := newTestServer(t)
	campID := createCamp(t, srv)

	status, env := do(t, srv, http.MethodPost, "/api/rooms", map[string]any{
		"campId": campID, "number": "101", "project": "Site A", "capacity": 2, "availableBeds": 99,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	room := decode[service.RoomResponse](t, env.Result).Room
	assert.Equal(t, 2, room.AvailableBeds)

	for _, reg := range []string{"W1", "W2"} {
		status, env = do(t, srv, http.MethodPost, "/api/workers", map[string]any{
			"campId": campID, "roomId": room.ID, "name": "Ali", "surname": "Veli",
			"registrationNumber": reg, "project": "Site A", "entryDate": "01.02.2024",
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env = do(t, srv, http.MethodPost, "/api/workers", map[string]any{
		"campId": campID, "roomId": room.ID, "name": "Ayşe", "surname": "Kaya",
		"registrationNumber": "W3", "project": "Site A",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ResultError, env.Code)

	status, env = do(t, srv, http.MethodPost, "/api/workers", map[string]any{
		"campId": campID, "name": "Ayşe", "registrationNumber": "W4", "project": "Site A",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, srv, http.MethodGet, "/api/rooms/"+room.ID, nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[service.RoomResponse](t, env.Result).Room
	assert.Len(t, got.Workers, 2)
	assert.Zero(t, got.AvailableBeds)

	status, env = do(t, srv, http.MethodGet, "/api/reports/stats?campId="+campID, nil)
	require.Equal(t, http.StatusOK, status)
	rep := decode[domain.OccupancyReport](t, env.Result)
	assert.Equal(t, 100.0, rep.OccupancyRate)

	status, env = do(t, srv, http.MethodGet, "/api/camps/"+campID+"/consistency", nil)
	require.Equal(t, http.StatusOK, status)
	consistency := decode[domain.ConsistencyReport](t, env.Result)
	assert.True(t, consistency.OK())

	status, env = do(t, srv, http.MethodDelete, "/api/rooms/"+room.ID+"?campId="+campID, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, 2, decode[service.DeleteRoomResponse](t, env.Result).DeletedWorkers)

	status, _ = do(t, srv, http.MethodGet, "/api/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_MoveWorker(t *testing.T) {
	srv := newTestServer(t)
	campID := createCamp(t, srv)

	var rooms []*domain.Room
	for _, n := range []string{"1", "2"} {
		status, env := do(t, srv, http.MethodPost, "/api/rooms", map[string]any{
			"campId": campID, "number": n, "project": "Site A", "capacity": 1,
		})
		require.Equal(t, http.StatusCreated, status)
		rooms = append(rooms, decode[service.RoomResponse](t, env.Result).Room)
	}
	status, env := do(t, srv, http.MethodPost, "/api/workers", map[string]any{
		"campId": campID, "roomId": rooms[0].ID, "name": "Ali", "surname": "Veli",
		"registrationNumber": "W1", "project": "Site A",
	})
	require.Equal(t, http.StatusCreated, status)
	worker := decode[service.WorkerResponse](t, env.Result).Worker

	status, env = do(t, srv, http.MethodPut, "/api/workers/"+worker.ID, map[string]any{"campId": campID, "roomId": rooms[1].ID})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, rooms[1].ID, decode[service.WorkerResponse](t, env.Result).Worker.RoomID)

	status, _ = do(t, srv, http.MethodPut, "/api/workers/"+worker.ID, map[string]any{"campId": "other", "roomId": rooms[0].ID})
	assert.Equal(t, http.StatusForbidden, status)

	// campId is checked on field updates too
	status, _ = do(t, srv, http.MethodPut, "/api/workers/"+worker.ID, map[string]any{"campId": "other", "name": "Mehmet"})
	assert.Equal(t, http.StatusForbidden, status)
	status, env = do(t, srv, http.MethodPut, "/api/workers/"+worker.ID, map[string]any{"campId": campID, "name": "Mehmet"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Mehmet", decode[service.WorkerResponse](t, env.Result).Worker.Name)
}

func TestRouter_ImportRoomsJSON(t *testing.T) {
	srv := newTestServer(t)
	campID := createCamp(t, srv)

	status, env := do(t, srv, http.MethodPost, "/api/rooms/import", map[string]any{
		"campId": campID,
		"records": []map[string]any{
			{"Oda No": "5", "Şantiyesi": "Site A", "Kapasite": 3},
			{"oda no": "6", "ŞANTİYESİ": "Site A", "Kapasite": "x"},
		},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	body := decode[struct {
		Message string              `json:"message"`
		Results domain.ImportResult `json:"results"`
	}](t, env.Result)
	assert.Equal(t, 1, body.Results.Success)
	assert.Equal(t, 1, body.Results.Failed)
	require.Len(t, body.Results.Errors, 1)
	assert.Contains(t, body.Results.Errors[0], "row 3:")
	assert.NotEmpty(t, body.Message)

	status, env = do(t, srv, http.MethodGet, "/api/rooms?campId="+campID, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[service.ListRoomsResponse](t, env.Result)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, 3, list.Items[0].AvailableBeds)
}

func TestRouter_ImportRoomsMultipart(t *testing.T) {
	srv := newTestServer(t)
	campID := createCamp(t, srv)

	data, err := spreadsheet.ExportCamp([]*domain.Room{
		{ID: "r1", Number: "7", Project: "Site A", Capacity: 2},
		{ID: "r2", Number: "8", Project: "Site B", Capacity: 4},
	}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("campId", campID))
	fw, err := mw.CreateFormFile("file", "rooms.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/rooms/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(directory.HeaderEmail, testUser)
	status, env := send(t, req)
	require.Equal(t, http.StatusOK, status, env.Message)
	body := decode[struct {
		Results domain.ImportResult `json:"results"`
	}](t, env.Result)
	assert.Equal(t, 2, body.Results.Success)
}

func TestRouter_TemplateAndExport(t *testing.T) {
	srv := newTestServer(t)
	campID := createCamp(t, srv)

	for _, path := range []string{"/api/import/template", "/api/camps/" + campID + "/export"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set(directory.HeaderEmail, testUser)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	}
}

func TestRouter_Personnel(t *testing.T) {
	srv := newTestServer(t)

	status, env := do(t, srv, http.MethodPost, "/api/personnel", map[string]any{
		"site": "Site A", "employeeId": "E-1", "firstName": "Emre", "lastName": "Demir", "hireDate": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	p := decode[service.PersonnelResponse](t, env.Result).Personnel

	status, env = do(t, srv, http.MethodPost, "/api/attendance", map[string]any{
		"personnelId": p.ID, "date": "2024-03-02", "status": "present",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = do(t, srv, http.MethodGet, "/api/attendance/summary?site=Site%20A&date=2024-03-02", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	sum := decode[domain.DailySummary](t, env.Result)
	assert.Equal(t, 1, sum.Counts[domain.AttendancePresent])
	assert.Zero(t, sum.Unrecorded)

	status, _ = do(t, srv, http.MethodPost, "/api/personnel", map[string]any{
		"site": "Site A", "employeeId": "E-1", "firstName": "X", "lastName": "Y",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		domain.NotFound("x"):     http.StatusNotFound,
		domain.ForeignCamp("x"):  http.StatusForbidden,
		domain.NoCapacity("x"):   http.StatusConflict,
		domain.DuplicateKey("x"): http.StatusConflict,
		domain.Validation("x"):   http.StatusBadRequest,
		domain.Unauthorized("x"): http.StatusUnauthorized,
		domain.Forbidden("x"):    http.StatusForbidden,
		assert.AnError:           http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(err), err.Error())
	}
}
