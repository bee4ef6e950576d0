package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmed/ledgerd/internal/ledger"
	"github.com/openmed/ledgerd/internal/models"
	"github.com/openmed/ledgerd/internal/node"
	"github.com/openmed/ledgerd/internal/peers"
	"github.com/openmed/ledgerd/internal/rpc"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	chain, err := ledger.NewChain(1)
	if err != nil {
		t.Fatalf("chain construction failed: %v", err)
	}
	n := node.New(chain, peers.NewRegistry(), rpc.NewPeerClient(0), nil)
	return NewRouter(n)
}

func perform(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.Engine().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w := perform(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health returned %d", w.Code)
	}
}

func TestSubmitMineAndChainFlow(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodPost, "/api/v1/records", map[string]any{
		"patient_id": "p-31",
		"details":    "blood panel",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit returned %d: %s", w.Code, w.Body)
	}
	var submitResp struct {
		Index int64 `json:"index"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitResp.Index != 1 {
		t.Errorf("record mapped to index %d, want 1", submitResp.Index)
	}

	w = perform(t, router, http.MethodPost, "/api/v1/mine", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("mine returned %d: %s", w.Code, w.Body)
	}

	w = perform(t, router, http.MethodGet, "/api/v1/chain", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chain returned %d", w.Code)
	}
	var snapshot models.ChainSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode chain response: %v", err)
	}
	if snapshot.Length != 2 {
		t.Errorf("chain length %d, want 2", snapshot.Length)
	}
	if !ledger.IsChainValid(snapshot.Chain) {
		t.Error("served chain fails validation after the JSON round trip")
	}
}

func TestMineWithNothingPending(t *testing.T) {
	router := newTestRouter(t)
	w := perform(t, router, http.MethodPost, "/api/v1/mine", nil)
	if w.Code != http.StatusOK {
		t.Errorf("mine with empty queue returned %d, want 200", w.Code)
	}
}

func TestSubmitRejectsEmptyRecord(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodPost, "/api/v1/records", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty record returned %d, want 400", w.Code)
	}
}

func TestPeerRegistrationEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodPost, "/api/v1/peers", map[string]any{
		"addresses": []string{"10.1.2.3:8080", "10.1.2.3:8080", "10.4.5.6:8080"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", w.Code, w.Body)
	}

	w = perform(t, router, http.MethodGet, "/api/v1/peers", nil)
	var listResp struct {
		Peers []string `json:"peers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode peers response: %v", err)
	}
	if len(listResp.Peers) != 2 {
		t.Errorf("peer list %v, want 2 distinct entries", listResp.Peers)
	}

	w = perform(t, router, http.MethodPost, "/api/v1/peers", map[string]any{
		"addresses": []string{"not-an-address"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed address returned %d, want 400", w.Code)
	}
}

func TestPeerRegistrationBatchIsAllOrNothing(t *testing.T) {
	router := newTestRouter(t)

	// One malformed address rejects the batch; the valid addresses listed
	// before it must not slip into the registry.
	w := perform(t, router, http.MethodPost, "/api/v1/peers", map[string]any{
		"addresses": []string{"10.1.2.3:8080", "10.4.5.6:8080", "not-an-address"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("mixed batch returned %d, want 400", w.Code)
	}

	w = perform(t, router, http.MethodGet, "/api/v1/peers", nil)
	var listResp struct {
		Peers []string `json:"peers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode peers response: %v", err)
	}
	if len(listResp.Peers) != 0 {
		t.Errorf("rejected batch registered peers: %v", listResp.Peers)
	}
}

func TestDifficultyEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodPut, "/api/v1/difficulty", map[string]any{"difficulty": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("set difficulty returned %d: %s", w.Code, w.Body)
	}

	w = perform(t, router, http.MethodGet, "/api/v1/difficulty", nil)
	var resp struct {
		Difficulty int `json:"difficulty"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode difficulty response: %v", err)
	}
	if resp.Difficulty != 2 {
		t.Errorf("difficulty %d, want 2", resp.Difficulty)
	}

	w = perform(t, router, http.MethodPut, "/api/v1/difficulty", map[string]any{"difficulty": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid difficulty returned %d, want 400", w.Code)
	}
}

func TestNodeInfoEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodGet, "/api/v1/node/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("node info returned %d", w.Code)
	}
	var info models.NodeInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info response: %v", err)
	}
	if info.APIVersion != node.APIVersion {
		t.Errorf("API version %q, want %q", info.APIVersion, node.APIVersion)
	}
}

func TestResolveEndpointWithoutPeers(t *testing.T) {
	router := newTestRouter(t)

	w := perform(t, router, http.MethodPost, "/api/v1/consensus/resolve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve returned %d", w.Code)
	}
	var outcome struct {
		Replaced    bool `json:"replaced"`
		ChainLength int  `json:"chain_length"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode resolve response: %v", err)
	}
	if outcome.Replaced || outcome.ChainLength != 1 {
		t.Errorf("got replaced=%v length=%d, want kept at 1", outcome.Replaced, outcome.ChainLength)
	}
}
