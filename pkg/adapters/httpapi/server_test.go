package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd"
	"github.com/flowdhq/flowd/pkg/adapters/httpapi"
	"github.com/flowdhq/flowd/pkg/adapters/memory"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/observability"
)

func hiringScenario() *domain.Scenario {
	return &domain.Scenario{
		ID: "hiring",
		Actors: map[string]*domain.ActorDef{
			"employer": {Title: "Employer"},
		},
		Actions: map[string]*domain.ActionDef{
			"offer": {
				Actors: []string{"employer"},
				Responses: map[string]*domain.ResponseDef{
					"ok": {
						Update: []*domain.UpdateInstruction{
							{Select: "assets.contract", Patch: true},
						},
					},
					"retracted": {},
				},
			},
		},
		States: map[string]*domain.StateDef{
			domain.StateInitial: {
				Actions: []string{"offer"},
				Transitions: []domain.StateTransition{
					{On: "offer.retracted", Goto: domain.StateCancelled},
					{On: "offer", Goto: domain.StateSuccess},
				},
			},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	scenarios := memory.NewScenarioStore()
	scenarios.Add(hiringScenario())

	registry := prometheus.NewRegistry()
	engine := flowd.New(scenarios, memory.NewStore(),
		flowd.WithMetrics(observability.NewMetrics(registry)),
	)

	server := httptest.NewServer(httpapi.NewHandler(engine, registry))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeProcess(t *testing.T, resp *http.Response) *domain.Process {
	t.Helper()
	defer resp.Body.Close()

	var process domain.Process
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&process))
	return &process
}

func TestServer_ProcessLifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/processes", map[string]any{
		"scenario": "hiring",
		"actors":   map[string]string{"employer": "acme"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	process := decodeProcess(t, resp)
	assert.NotEmpty(t, process.ID)
	assert.Equal(t, domain.StateInitial, process.Current.Key)

	getResp, err := http.Get(server.URL + "/processes/" + process.ID)
	require.NoError(t, err)
	fetched := decodeProcess(t, getResp)
	assert.Equal(t, process.ID, fetched.ID)

	resp = postJSON(t, server.URL+"/processes/"+process.ID+"/responses", map[string]any{
		"action": "offer",
		"key":    "ok",
		"actor":  "employer",
		"data":   map[string]any{"amount": "4200.00"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stepped := decodeProcess(t, resp)
	assert.Equal(t, domain.StateSuccess, stepped.Current.Key)
	assert.Equal(t, "4200.00", stepped.Assets["contract"]["amount"])
}

func TestServer_StartUnknownScenario(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/processes", map[string]any{"scenario": "missing"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SubmitInvalidResponse(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/processes", map[string]any{
		"scenario": "hiring",
		"actors":   map[string]string{"employer": "acme"},
	})
	process := decodeProcess(t, resp)

	// The scenario declares no "approve" action in the current state.
	resp = postJSON(t, server.URL+"/processes/"+process.ID+"/responses", map[string]any{
		"action": "approve",
		"key":    "ok",
		"actor":  "employer",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_InvokeWithoutActionUsesDefault(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/processes", map[string]any{
		"scenario": "hiring",
		"actors":   map[string]string{"employer": "acme"},
	})
	process := decodeProcess(t, resp)

	// An empty body invokes the single action available in the current
	// state.
	invokeResp, err := http.Post(server.URL+"/processes/"+process.ID+"/invoke", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, invokeResp.StatusCode)

	stepped := decodeProcess(t, invokeResp)
	assert.Equal(t, domain.StateSuccess, stepped.Current.Key)
}

func TestServer_GetScenario(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/scenarios/hiring")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scenario domain.Scenario
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scenario))
	assert.Equal(t, "hiring", scenario.ID)
	assert.Contains(t, scenario.Actions, "offer")
}

func TestServer_HealthAndMetrics(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
