package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segyhp/pawn-ledger/internal/config"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/handler"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "e2e.db") + "?_foreign_keys=on"
	a, err := New(context.Background(), testConfig(config.DriverSQLite, dsn), discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	health := handler.NewHealthHandler(a.DB, a.Redis, 0)
	server := httptest.NewServer(handler.NewRouter(a.Ledger, health, a.Metrics, discard()))
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, method, url string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeView(t *testing.T, env envelope) domain.ContractView {
	t.Helper()
	var view domain.ContractView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

// TestPawnLedgerEndToEnd drives one contract from pawn to redemption over
// HTTP against a SQLite ledger.
func TestPawnLedgerEndToEnd(t *testing.T) {
	server := setupServer(t)
	api := server.URL + "/api/v1"

	// Step 1: pawn a phone
	status, env := call(t, http.MethodPost, api+"/contracts", map[string]any{
		"customer":      map[string]string{"name": "Nguyen Van A", "phone": "0901234567"},
		"device":        "iPhone 13 Pro",
		"principal":     "10000000",
		"duration_days": 30,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	created := decodeView(t, env)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.True(t, created.Accrual.InterestOwed.Equal(decimal.NewFromInt(25_000)), created.Accrual.InterestOwed.String())
	assert.True(t, created.RedemptionTotal.Equal(decimal.NewFromInt(10_025_000)))
	contractURL := api + "/contracts/" + created.ID.String()

	// Step 2: read it back
	status, env = call(t, http.MethodGet, contractURL, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Nguyen Van A", decodeView(t, env).CustomerName)

	// Step 3: a payment below one day of interest is rejected
	status, env = call(t, http.MethodPost, contractURL+"/renew", map[string]string{"amount": "1000"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	// Step 4: renew
	status, env = call(t, http.MethodPost, contractURL+"/renew", map[string]string{"amount": "250000"})
	require.Equal(t, http.StatusOK, status, env.Error)
	renewed := decodeView(t, env)
	assert.Equal(t, 1, renewed.Version)
	assert.Equal(t, domain.TransactionInterestPayment, renewed.Transactions[len(renewed.Transactions)-1].Kind)

	// Step 5: the book shows one active contract
	status, env = call(t, http.MethodGet, api+"/summary", nil)
	require.Equal(t, http.StatusOK, status)
	var summary domain.Summary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.ActiveContracts)
	assert.True(t, summary.OutstandingPrincipal.Equal(decimal.NewFromInt(10_000_000)))

	// Step 6: the statement renders as HTML
	resp, err := http.Get(contractURL + "/statement")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	// Step 7: redeem at the quote
	status, env = call(t, http.MethodPost, contractURL+"/redeem", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	redeemed := decodeView(t, env)
	assert.Equal(t, domain.StatusRedeemed, redeemed.Status)
	settlement := redeemed.Transactions[len(redeemed.Transactions)-1]
	assert.Equal(t, domain.TransactionRedemption, settlement.Kind)
	assert.True(t, settlement.Amount.Equal(decimal.NewFromInt(10_025_000)), settlement.Amount.String())

	// Step 8: a closed contract cannot be redeemed twice
	status, env = call(t, http.MethodPost, contractURL+"/redeem", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Error)

	// Step 9: unknown contracts are 404
	status, env = call(t, http.MethodGet, api+"/contracts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "CONTRACT_NOT_FOUND", env.Error)

	// Step 10: the customer was registered along the way
	status, env = call(t, http.MethodGet, api+"/customers?q=nguyen", nil)
	require.Equal(t, http.StatusOK, status)
	var customers []domain.Customer
	require.NoError(t, json.Unmarshal(env.Data, &customers))
	require.Len(t, customers, 1)
	assert.Equal(t, created.CustomerID, customers[0].ID)
}

func TestReadinessWithSQLite(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
