package acp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/observability"
)

const wallet = "0x1111111111111111111111111111111111111111"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ACPConfig{APIURL: srv.URL + "/", TimeoutSeconds: 5, SDKVersion: "1.2.3"}, wallet, srv.Client())
}

func TestClientBrowseAgents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/v2/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "meme", q.Get("search"))
		assert.Equal(t, "successfulJobCount,successRate", q.Get("sortBy"))
		assert.Equal(t, "5", q.Get("top_k"))
		assert.Equal(t, wallet, q.Get("walletAddressesToExclude"))
		assert.Equal(t, "all", q.Get("graduationStatus"))
		assert.Equal(t, "go", r.Header.Get("x-sdk-language"))
		assert.Equal(t, "1.2.3", r.Header.Get("x-sdk-version"))

		_, _ = w.Write([]byte(`{"data":[{"id":7,"name":"Memer","walletAddress":"0xabc","offerings":[{"name":"meme","price":0.1,"priceUsd":"0.1"}]}]}`))
	})

	agents, err := client.BrowseAgents(context.Background(), domain.BrowseAgentsQuery{
		Keyword:          "meme",
		SortBy:           []domain.AgentSort{domain.SortSuccessfulJobCount, domain.SortSuccessRate},
		TopK:             5,
		GraduationStatus: domain.GraduationAll,
	})
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, int64(7), agents[0].ID)
	require.Len(t, agents[0].Offerings, 1)
	assert.Equal(t, "0xabc", agents[0].Offerings[0].ProviderAddress)
	assert.Equal(t, 0.1, agents[0].Offerings[0].PriceUSD)
}

func TestClientGetAgentNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents", r.URL.Path)
		assert.Equal(t, "0xdead", r.URL.Query().Get("filters[walletAddress]"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.GetAgent(context.Background(), "0xdead")
	require.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestClientListJobsPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/active", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("pagination[page]"))
		assert.Equal(t, "25", r.URL.Query().Get("pagination[pageSize]"))
		assert.Equal(t, wallet, r.Header.Get("wallet-address"))
		_, _ = w.Write([]byte(`{"data":[{"id":1,"phase":2,"price":3,"memos":[{"id":9,"memoType":6,"nextPhase":2,"status":"APPROVED"}]}]}`))
	})

	jobs, err := client.GetActiveJobs(context.Background(), 2, 25)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.PhaseTransaction, jobs[0].Phase)
	assert.Equal(t, domain.MemoTypePayableRequest, jobs[0].Memos[0].Type)
}

func TestClientListJobsUnknownStatus(t *testing.T) {
	client := NewClient(config.ACPConfig{APIURL: "http://127.0.0.1:1"}, wallet, nil)
	_, err := client.ListJobs(context.Background(), "archived", 1, 10)
	require.Error(t, err)
}

func TestClientListingsAndTraceHeader(t *testing.T) {
	var paths, traces []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		traces = append(traces, r.Header.Get(observability.TraceIDHeader))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	ctx := observability.WithTraceID(context.Background(), "trace-1")
	_, err := client.GetCompletedJobs(ctx, 1, 10)
	require.NoError(t, err)
	_, err = client.GetCancelledJobs(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"/jobs/completed", "/jobs/cancelled"}, paths)
	assert.Equal(t, []string{"trace-1", ""}, traces)
}

func TestClientGetJobAndMemo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/42":
			_, _ = w.Write([]byte(`{"data":{"id":42,"phase":4,"context":"{\"k\":\"v\"}","memos":[]}}`))
		case "/jobs/42/memos/3":
			_, _ = w.Write([]byte(`{"data":{"id":3,"memoType":4,"nextPhase":4,"status":"PENDING","content":"https://x"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	job, err := client.GetJob(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, job.Phase)
	assert.Equal(t, "v", job.Context["k"])

	memo, err := client.GetMemo(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.Equal(t, "https://x", memo.Content)
}

func TestClientAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/jobs/1" {
			_, _ = w.Write([]byte(`{"error":{"message":"job not indexed"}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream"}}`))
	})

	_, err := client.GetJob(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, domain.IsACPError(err, domain.ACPErrorAPI))
	assert.Contains(t, err.Error(), "job not indexed")

	_, err = client.GetJob(context.Background(), 2)
	var acpErr *domain.ACPError
	require.ErrorAs(t, err, &acpErr)
	assert.Equal(t, http.StatusBadGateway, acpErr.StatusCode)
}

func TestRelayPostsActions(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer relay-token", r.Header.Get("Authorization"))
		assert.Equal(t, "7", r.Header.Get("x-entity-id"))
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		switch r.URL.Path {
		case "/jobs/5/respond", "/jobs/5/pay", "/jobs/5/deliver":
			_, _ = w.Write([]byte(`{"txHash":"0xaaa"}`))
		case "/memos/9/sign":
			_, _ = w.Write([]byte(`{"data":{"txHash":"0xbbb"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	relay := NewRelay(
		config.ACPConfig{ActionURL: srv.URL, ActionToken: "relay-token", TimeoutSeconds: 5},
		config.AgentConfig{WalletAddress: wallet, EntityID: 7},
		srv.Client(),
	)
	ctx := context.Background()

	tx, err := relay.RespondToJob(ctx, 5, 1, true, nil, "ok")
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", tx)

	_, err = relay.PayJob(ctx, 5, 2, 1.5, "paid")
	require.NoError(t, err)

	_, err = relay.DeliverJob(ctx, 5, domain.Deliverable{Type: "url", Value: "https://example.com"})
	require.NoError(t, err)

	tx, err = relay.SignMemo(ctx, 9, false, "no")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", tx)

	require.Len(t, keys, 4)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestRelayRetriesServerErrorsWithSameKey(t *testing.T) {
	var calls int32
	var firstKey, lastKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			firstKey = r.Header.Get("Idempotency-Key")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		lastKey = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{"txHash":"0xccc"}`))
	}))
	defer srv.Close()

	relay := NewRelay(config.ACPConfig{ActionURL: srv.URL, TimeoutSeconds: 5}, config.AgentConfig{}, srv.Client()).
		WithRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 2})

	tx, err := relay.SignMemo(context.Background(), 1, true, "")
	require.NoError(t, err)
	assert.Equal(t, "0xccc", tx)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, firstKey, lastKey)
}

func TestRelayDoesNotRetryRejections(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"memo already signed"}}`))
	}))
	defer srv.Close()

	relay := NewRelay(config.ACPConfig{ActionURL: srv.URL, TimeoutSeconds: 5}, config.AgentConfig{}, srv.Client()).
		WithRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})

	_, err := relay.SignMemo(context.Background(), 1, true, "")
	require.Error(t, err)
	assert.True(t, domain.IsACPError(err, domain.ACPErrorContract))
	assert.Contains(t, err.Error(), "memo already signed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRelayGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	relay := NewRelay(config.ACPConfig{ActionURL: srv.URL, TimeoutSeconds: 5}, config.AgentConfig{}, srv.Client()).
		WithRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})

	_, err := relay.PayJob(context.Background(), 1, 1, 1, "")
	require.Error(t, err)
	assert.True(t, domain.IsACPError(err, domain.ACPErrorTransactionFailed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
