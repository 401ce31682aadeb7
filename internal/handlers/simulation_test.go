package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/auth"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/netfile"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/sim"
)

type testAPI struct {
	handler http.Handler
	engine  *sim.Engine
	auth    *auth.Service
	users   *db.MemoryUserCollection
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	network, err := netfile.Builtin("cross", roadnet.DefaultSettings())
	require.NoError(t, err)
	opts := sim.DefaultOptions()
	opts.RunID = "api-run"
	engine := sim.NewEngine(network, opts)

	authService := newAuthService(t)
	users := db.NewMemoryUserCollection()
	ctx := context.Background()
	require.NoError(t, authService.EnsureOperator(ctx, users, auth.Operator{Username: "viewer", Password: "viewer-pass", Role: models.RoleViewer}))
	require.NoError(t, authService.EnsureOperator(ctx, users, auth.Operator{Username: "operator", Password: "operator-pass", Role: models.RoleOperator}))

	return &testAPI{
		handler: NewRouter(RouterConfig{Simulation: engine, AuthService: authService, Users: users, RateLimit: 1000}),
		engine:  engine,
		auth:    authService,
		users:   users,
	}
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(models.LoginRequest{Username: username, Password: password})
	w := a.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "api-run", health["run_id"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/vehicles", "/api/roads", "/api/intersections", "/api/auth/me"} {
		w := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_ViewerReadsProjection(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.engine.AddVehicle("car-1", roadnet.Position{Road: 0, Offset: 10}))
	api.engine.Step()
	token := api.login(t, "viewer", "viewer-pass")

	w := api.do(t, http.MethodGet, "/api/vehicles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var vehicles []models.Telemetry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&vehicles))
	require.Len(t, vehicles, 1)
	assert.Equal(t, "car-1", vehicles[0].VehicleID)
	assert.Equal(t, int64(1), vehicles[0].Tick)

	w = api.do(t, http.MethodGet, "/api/vehicles/car-1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/api/vehicles/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/roads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roads []models.Road
	require.NoError(t, json.NewDecoder(w.Body).Decode(&roads))
	assert.Len(t, roads, 2)

	w = api.do(t, http.MethodGet, "/api/intersections", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var intersections []models.Intersection
	require.NoError(t, json.NewDecoder(w.Body).Decode(&intersections))
	require.Len(t, intersections, 1)
	assert.Equal(t, [2]int{0, 1}, intersections[0].Roads)

	w = api.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"viewer"`)

	w = api.do(t, http.MethodPost, "/api/vehicles", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "viewers cannot spawn")
	w = api.do(t, http.MethodDelete, "/api/vehicles/car-1", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "viewers cannot remove")
}

func TestRouter_OperatorSpawnsAndRemoves(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "operator", "operator-pass")

	w := api.do(t, http.MethodPost, "/api/vehicles", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var random models.SpawnResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&random))
	assert.NotEmpty(t, random.ID)
	assert.Equal(t, "parked_seeking_path", random.Telemetry.State)

	w = api.do(t, http.MethodPost, "/api/vehicles", token, []byte(`{"road":1,"offset":25}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed models.SpawnResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))
	assert.Equal(t, 1, placed.Telemetry.Road)
	assert.Equal(t, 25.0, placed.Telemetry.Offset)

	bad := []string{`{"road":1}`, `{"road":9,"offset":1}`, `{"road":0,"offset":500}`, `{"road":`, `{"road":0,"offset":50}`, `{"road":1,"offset":49.5}`}
	for _, body := range bad {
		w = api.do(t, http.MethodPost, "/api/vehicles", token, []byte(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	assert.Len(t, api.engine.Vehicles(), 2)
	w = api.do(t, http.MethodDelete, "/api/vehicles/"+placed.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodDelete, "/api/vehicles/"+placed.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, api.engine.Vehicles(), 1)
}

func TestRouter_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	limited := NewRouter(RouterConfig{Simulation: api.engine, AuthService: api.auth, Users: api.users, RateLimit: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
