package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"kassa.org/internal/config"
	"kassa.org/internal/registry"
	"kassa.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	limits := config.DefaultConfig().Limits
	limits.RateBurst = 1000
	limits.RatePerSecond = 1000

	api := New(registry.NewInMemory(), stream.New(), "test", limits)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	resp, err := c.client.Get(u.String())
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAPIAccountLifecycle(t *testing.T) {
	api := newTestAPI(t)

	// Open an interest-earning account with an initial balance.
	resp := api.post("/v1/accounts", map[string]any{
		"name":            "Alice",
		"initial_balance": "1000",
		"type":            "interest_earning",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc == "" {
		t.Fatal("missing Location header")
	}
	acc := decode[map[string]any](t, resp)
	id := acc["id"].(string)
	if acc["balance"].(string) != "1000" {
		t.Fatalf("unexpected initial balance: %v", acc["balance"])
	}

	// Deposit 200.
	resp = api.post("/v1/accounts/"+id+"/deposits", map[string]any{
		"amount": "200",
		"note":   "payday",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	mv := decode[map[string]any](t, resp)
	after := mv["account"].(map[string]any)
	if after["balance"].(string) != "1200" {
		t.Fatalf("unexpected balance after deposit: %v", after["balance"])
	}

	// Withdrawing more than the balance conflicts and changes nothing.
	resp = api.post("/v1/accounts/"+id+"/withdrawals", map[string]any{
		"amount": "1300",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/accounts/"+id+"/balance", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	bal := decode[map[string]any](t, resp)
	if bal["balance"].(string) != "1200" {
		t.Fatalf("unexpected balance: %v", bal["balance"])
	}

	// Full history: initial entry plus the deposit.
	resp = api.get("/v1/accounts/"+id+"/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	hist := decode[map[string]any](t, resp)
	items := hist["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(items))
	}

	// Month end pays 2% interest on 1200.
	resp = api.post("/v1/accounts/"+id+"/month-end", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	entries := me["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 month-end entry, got %d", len(entries))
	}
	after = me["account"].(map[string]any)
	if after["balance"].(string) != "1224" {
		t.Fatalf("unexpected balance after month end: %v", after["balance"])
	}
}

func TestAPILineOfCreditRequiresLimit(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/accounts", map[string]any{
		"name":            "Bob",
		"initial_balance": "0",
		"type":            "line_of_credit",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPILineOfCreditFloor(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/accounts", map[string]any{
		"name":            "Bob",
		"initial_balance": "0",
		"type":            "line_of_credit",
		"credit_limit":    "500",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	acc := decode[map[string]any](t, resp)
	id := acc["id"].(string)

	resp = api.post("/v1/accounts/"+id+"/withdrawals", map[string]any{"amount": "500"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("withdrawal to the floor should succeed, got %d", resp.StatusCode)
	}
	mv := decode[map[string]any](t, resp)
	if balance := mv["account"].(map[string]any)["balance"].(string); balance != "-500" {
		t.Fatalf("unexpected balance: %v", balance)
	}

	resp = api.post("/v1/accounts/"+id+"/withdrawals", map[string]any{"amount": "1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 past the floor, got %d", resp.StatusCode)
	}
}

func TestAPIInvalidAmountRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/accounts", map[string]any{
		"name":            "Carol",
		"initial_balance": "50",
		"type":            "gift_card",
		"monthly_deposit": "20",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	acc := decode[map[string]any](t, resp)
	id := acc["id"].(string)

	for _, amount := range []string{"0", "-5"} {
		resp = api.post("/v1/accounts/"+id+"/deposits", map[string]any{"amount": amount})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for amount %s, got %d", amount, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// State unchanged.
	resp = api.get("/v1/accounts/"+id+"/balance", nil)
	bal := decode[map[string]any](t, resp)
	if bal["balance"].(string) != "50" {
		t.Fatalf("unexpected balance: %v", bal["balance"])
	}
}

func TestAPIUnknownAccount(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/accounts/01HZZZZZZZZZZZZZZZZZZZZZZZ", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatal("expected error message")
	}
	if rid, ok := errBody["request_id"].(string); !ok || rid == "" {
		t.Fatal("expected request id in error payload")
	}
}

func TestAPIRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/accounts", map[string]any{
		"name":            "Alice",
		"initial_balance": "10",
		"type":            "interest_earning",
		"surprise":        true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := api.get("/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()
}
