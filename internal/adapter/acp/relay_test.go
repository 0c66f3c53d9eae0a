package acp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
)

func newTestRelay(t *testing.T, handler http.HandlerFunc) *Relay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	relay := NewRelay(
		config.ACPConfig{ActionURL: srv.URL + "/", TimeoutSeconds: 5},
		config.AgentConfig{WalletAddress: wallet, EntityID: 3},
		srv.Client(),
	)
	return relay.WithRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 1})
}

func TestRelayInitiateJob(t *testing.T) {
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, wallet, r.Header.Get("wallet-address"))
		assert.Equal(t, "3", r.Header.Get("x-entity-id"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xprovider", body["providerAddress"])
		assert.Equal(t, "0xevaluator", body["evaluatorAddress"])
		assert.Equal(t, 2.5, body["price"])
		assert.Equal(t, "2026-01-02T03:04:05Z", body["expiredAt"])
		assert.Equal(t, "Find Yields", body["serviceRequirement"].(map[string]interface{})["name"])

		_, _ = w.Write([]byte(`{"data":{"jobId":77,"txHash":"0xabc"}}`))
	})

	jobID, err := relay.InitiateJob(context.Background(), domain.NewJob{
		ClientAddress:      wallet,
		ProviderAddress:    "0xprovider",
		EvaluatorAddress:   "0xevaluator",
		Price:              2.5,
		ExpiredAt:          expiry,
		ServiceRequirement: map[string]interface{}{"name": "Find Yields"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), jobID)
}

func TestRelayInitiateJobWithoutID(t *testing.T) {
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"txHash":"0xabc"}`))
	})

	_, err := relay.InitiateJob(context.Background(), domain.NewJob{ExpiredAt: time.Now()})
	assert.True(t, domain.IsACPError(err, domain.ACPErrorAPI))
}

func TestRelayRetriesWithSameIdempotencyKey(t *testing.T) {
	var (
		calls int32
		keys  = make(chan string, 3)
	)
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("Idempotency-Key")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"txHash":"0xdone"}`))
	})

	txHash, err := relay.SignMemo(context.Background(), 9, true, "ok")
	require.NoError(t, err)
	assert.Equal(t, "0xdone", txHash)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	first := <-keys
	assert.Equal(t, first, <-keys)
	assert.Equal(t, first, <-keys)
}

func TestRelayDoesNotRetryContractErrors(t *testing.T) {
	var calls int32
	relay := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"memo already signed"}}`))
	})

	_, err := relay.RespondToJob(context.Background(), 1, 2, true, nil, "")
	require.Error(t, err)
	assert.True(t, domain.IsACPError(err, domain.ACPErrorContract))
	assert.Contains(t, err.Error(), "memo already signed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
