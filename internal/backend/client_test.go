package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campscout/internal/config"
)

type rpcCall struct {
	Kind string
	Path string
	Args map[string]any
}

// newTestBackend serves canned values per RPC path and records calls.
func newTestBackend(t *testing.T, values map[string]any) (*Client, *[]rpcCall) {
	t.Helper()
	var calls []rpcCall

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad rpc body: %v", err)
		}
		args, _ := req.Args.(map[string]any)
		calls = append(calls, rpcCall{
			Kind: r.URL.Path[len("/api/"):],
			Path: req.Path,
			Args: args,
		})

		resp := map[string]any{"status": "success", "value": values[req.Path]}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	return New(config.BackendConfig{URL: server.URL}), &calls
}

func TestGetNextAndClaim(t *testing.T) {
	client, calls := newTestBackend(t, map[string]any{
		"scraperDevelopment:getNextAndClaim": map[string]any{
			"_id":        "req_123",
			"sourceName": "Trackers Earth",
			"sourceUrl":  "https://trackersearth.com",
			"status":     "in_progress",
		},
	})

	req, err := client.GetNextAndClaim(context.Background(), "worker-1", "city_9")
	if err != nil {
		t.Fatal(err)
	}
	if req == nil || req.ID != "req_123" || req.SourceName != "Trackers Earth" {
		t.Fatalf("claimed request = %+v", req)
	}

	call := (*calls)[0]
	if call.Kind != "mutation" || call.Path != "scraperDevelopment:getNextAndClaim" {
		t.Fatalf("call = %+v", call)
	}
	if call.Args["workerId"] != "worker-1" || call.Args["cityId"] != "city_9" {
		t.Fatalf("claim args = %v", call.Args)
	}
}

func TestGetNextAndClaimNoWork(t *testing.T) {
	client, _ := newTestBackend(t, map[string]any{})

	req, err := client.GetNextAndClaim(context.Background(), "worker-1", "")
	if err != nil {
		t.Fatalf("empty queue must not error: %v", err)
	}
	if req != nil {
		t.Fatalf("expected nil request for empty queue, got %+v", req)
	}
}

func TestClaimQueueItemRace(t *testing.T) {
	client, _ := newTestBackend(t, map[string]any{
		"directoryQueue:claimQueueItem": false,
	})

	claimed, err := client.ClaimQueueItem(context.Background(), "item_1")
	if err != nil {
		t.Fatalf("lost claim race must not error: %v", err)
	}
	if claimed {
		t.Fatalf("expected claim to report false")
	}
}

func TestRecordTestResultsArgs(t *testing.T) {
	client, calls := newTestBackend(t, map[string]any{})

	samples := []TestSample{{Name: "Week 1", Dates: "Jun 15-19", Available: true}}
	report := TestReport{SessionsFound: 8, Samples: samples}
	if err := client.RecordTestResults(context.Background(), "req_1", report); err != nil {
		t.Fatal(err)
	}

	args := (*calls)[0].Args
	if args["sessionsFound"] != float64(8) {
		t.Fatalf("sessionsFound = %v", args["sessionsFound"])
	}
	if _, present := args["error"]; present {
		t.Fatalf("empty error must be omitted")
	}
	if _, present := args["sampleData"]; !present {
		t.Fatalf("sampleData missing")
	}
}

// An accepted zero-session run carries its explanation to the backend.
func TestRecordTestResultsZeroSessionsNote(t *testing.T) {
	client, calls := newTestBackend(t, map[string]any{})

	report := TestReport{Note: "sessions for next summer are not posted yet", CheckAfter: "2027-03-01"}
	if err := client.RecordTestResults(context.Background(), "req_1", report); err != nil {
		t.Fatal(err)
	}

	args := (*calls)[0].Args
	if args["sessionsFound"] != float64(0) {
		t.Fatalf("sessionsFound = %v", args["sessionsFound"])
	}
	if args["note"] != "sessions for next summer are not posted yet" {
		t.Fatalf("note = %v", args["note"])
	}
	if args["checkAfter"] != "2027-03-01" {
		t.Fatalf("checkAfter = %v", args["checkAfter"])
	}
	if _, present := args["error"]; present {
		t.Fatalf("empty error must be omitted")
	}
}

func TestBackendErrorSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "error",
			"errorMessage": "request not found",
		})
	}))
	defer server.Close()

	client := New(config.BackendConfig{URL: server.URL})
	err := client.UpdateScraperCode(context.Background(), "missing", "code")
	if err == nil {
		t.Fatalf("expected backend error to surface")
	}
}

func TestProcessDiscoveryResults(t *testing.T) {
	client, calls := newTestBackend(t, map[string]any{
		"discovery:processDiscoveryResults": map[string]any{
			"orgsCreated":    3,
			"orgsExisted":    2,
			"sourcesCreated": 3,
		},
	})

	out, err := client.ProcessDiscoveryResults(context.Background(), "task_1",
		[]string{"https://a.com", "https://b.com"})
	if err != nil {
		t.Fatal(err)
	}
	if out.OrgsCreated != 3 || out.OrgsExisted != 2 || out.SourcesCreated != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	if (*calls)[0].Kind != "action" {
		t.Fatalf("processDiscoveryResults must be an action, got %s", (*calls)[0].Kind)
	}
}
