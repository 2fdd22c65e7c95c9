package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/nodes"
	"github.com/galinilin/docgemma-connect/internal/observability"
	"github.com/galinilin/docgemma-connect/internal/runner"
	"github.com/galinilin/docgemma-connect/internal/sessions"
	"github.com/galinilin/docgemma-connect/internal/tools"
	"github.com/galinilin/docgemma-connect/internal/tools/clinical"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	store := sessions.NewMemoryStore()
	registry := tools.NewRegistry()
	clinical.RegisterAll(registry)

	cfg := graph.DefaultConfig()
	g := nodes.Build(cfg, nodes.Deps{
		Adapter:           model.NewFakeAdapter(),
		Registry:          registry,
		MaxToolIterations: cfg.MaxToolIterations,
	})
	agentRunner := runner.New(g, store)

	return newServer(serverConfig{
		Store:    store,
		Runner:   agentRunner,
		Registry: registry,
		Logger:   observability.NewLogger(observability.LogConfig{}),
		Metrics:  observability.NewMetrics(),
	})
}

func TestDecodeJSONRequest(t *testing.T) {
	previousMax := maxAPIRequestBodyBytes
	maxAPIRequestBodyBytes = 64
	t.Cleanup(func() { maxAPIRequestBodyBytes = previousMax })

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
		rec := httptest.NewRecorder()

		var payload struct {
			Message string `json:"message"`
		}
		status, err := decodeJSONRequest(rec, req, &payload)
		if err != nil || status != 0 {
			t.Fatalf("decodeJSONRequest() status=%d err=%v", status, err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		body := `{"message":"` + strings.Repeat("a", int(maxAPIRequestBodyBytes)) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()

		var payload map[string]any
		status, err := decodeJSONRequest(rec, req, &payload)
		if err == nil || status != http.StatusRequestEntityTooLarge {
			t.Fatalf("decodeJSONRequest() status=%d err=%v, want status=%d err!=nil", status, err, http.StatusRequestEntityTooLarge)
		}
	})
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	createResp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /sessions: %v", err)
	}
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d, want %d", createResp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a non-empty session id")
	}

	listResp, err := http.Get(ts.URL + "/sessions")
	if err != nil {
		t.Fatalf("GET /sessions: %v", err)
	}
	defer listResp.Body.Close()
	var list []map[string]any
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}

	getResp, err := http.Get(ts.URL + "/sessions/" + created.ID)
	if err != nil {
		t.Fatalf("GET /sessions/{id}: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /sessions/{id} status = %d, want %d", getResp.StatusCode, http.StatusOK)
	}

	missingResp, err := http.Get(ts.URL + "/sessions/does-not-exist")
	if err != nil {
		t.Fatalf("GET /sessions/{missing}: %v", err)
	}
	defer missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /sessions/{missing} status = %d, want %d", missingResp.StatusCode, http.StatusNotFound)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+created.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /sessions/{id}: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE /sessions/{id} status = %d, want %d", delResp.StatusCode, http.StatusNoContent)
	}
}

func TestListToolsReturnsRegisteredDefinitions(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/tools")
	if err != nil {
		t.Fatalf("GET /tools: %v", err)
	}
	defer resp.Body.Close()

	var listing []toolListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode tools response: %v", err)
	}
	if len(listing) != 4 {
		t.Fatalf("expected 4 registered tools, got %d", len(listing))
	}

	names := map[string]bool{}
	for _, tl := range listing {
		names[tl.Name] = true
	}
	for _, want := range []string{"check_drug_safety", "search_medical_literature", "search_clinical_trials", "lookup_patient_chart"} {
		if !names[want] {
			t.Fatalf("expected tool %q in listing", want)
		}
	}
}
