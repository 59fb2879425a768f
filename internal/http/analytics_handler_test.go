package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/internal/sessions"
	"funnelscope/internal/testsupport"
)

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]interface{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &payload))
	}
	return resp.StatusCode, payload
}

func TestFunnelStagesEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	funnel := testsupport.CreateTestFunnel(t, db, "Stages API Funnel")
	startedAt := time.Now().UTC().Add(-time.Hour)

	stage := func(s string) testsupport.SessionOption {
		return func(session *sessions.Session) { session.CurrentStage = s }
	}
	for i := 0; i < 4; i++ {
		testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(sessions.StageAwareness))
	}
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, stage(sessions.StagePurchase))

	status, payload := getJSON(t, app, fmt.Sprintf("/api/v1/funnels/%d/stages?range=24h", funnel.ID))
	require.Equal(t, http.StatusOK, status)

	stagesField, ok := payload["stages"].([]interface{})
	require.True(t, ok)
	require.Len(t, stagesField, 2)
	assert.Equal(t, "25.00", payload["overall_conversion_rate"])

	first := stagesField[0].(map[string]interface{})
	assert.Equal(t, sessions.StageAwareness, first["stage"])
	assert.Equal(t, 4.0, first["sessions"])
}

func TestFunnelNotFoundReturns404(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	status, payload := getJSON(t, app, "/api/v1/funnels/9999/stages")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "FUNNEL_NOT_FOUND", payload["code"])
}

func TestFunnelTrafficInvalidDimensionReturns400(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	funnel := testsupport.CreateTestFunnel(t, db, "Traffic API Funnel")

	status, payload := getJSON(t, app, fmt.Sprintf("/api/v1/funnels/%d/traffic?dimension=nope", funnel.ID))
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", payload["code"])
}

func TestFunnelTrafficEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	funnel := testsupport.CreateTestFunnel(t, db, "Traffic Breakdown Funnel")
	startedAt := time.Now().UTC().Add(-time.Hour)

	device := func(d string) testsupport.SessionOption {
		return func(session *sessions.Session) { session.DeviceType = d }
	}
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, device("desktop"))
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, device("desktop"))
	testsupport.CreateTestSession(t, db, funnel.ID, startedAt, device("mobile"))

	status, payload := getJSON(t, app, fmt.Sprintf("/api/v1/funnels/%d/traffic?range=24h&dimension=device", funnel.ID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3.0, payload["total"])

	results := payload["results"].([]interface{})
	require.Len(t, results, 2)
	top := results[0].(map[string]interface{})
	assert.Equal(t, "desktop", top["key"])
	assert.Equal(t, 66.7, top["percentage"])
}

func TestFunnelInvalidRangeReturns400(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	funnel := testsupport.CreateTestFunnel(t, db, "Range Funnel")

	status, _ := getJSON(t, app, fmt.Sprintf("/api/v1/funnels/%d/stages?range=forever", funnel.ID))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	status, payload := getJSON(t, app, "/_health")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", payload["status"])
}

func TestFrequencyEndpointRequiresEvent(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateTestApp(t, db)

	funnel := testsupport.CreateTestFunnel(t, db, "Frequency API Funnel")

	status, payload := getJSON(t, app, fmt.Sprintf("/api/v1/funnels/%d/frequency", funnel.ID))
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", payload["code"])
}
