package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/pkg/auth"
)

const testSecret = "acpctl-test-secret"

func setupEnv(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	apiURL := "http://127.0.0.1:1"
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		apiURL = server.URL
	}

	t.Setenv("ACP_API_URL", apiURL)
	t.Setenv("WEBHOOK_JWT_SECRET", testSecret)
	t.Setenv("WEBHOOK_JWT_ISSUER", "acpagent")
	t.Setenv("WEBHOOK_JWT_AUDIENCE", "acp-webhooks")
	t.Setenv("AGENT_WALLET_ADDRESS", "0x1111111111111111111111111111111111111111")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommandIssuesValidToken(t *testing.T) {
	setupEnv(t, nil)

	out, err := run(t, "token", "--subject", "ops", "--scope", "admin", "-o", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ops", result["subject"])
	assert.Equal(t, "ADMIN", result["scope"])

	service := auth.NewJWTAuthService(config.AuthConfig{
		WebhookSecret: testSecret,
		Issuer:        "acpagent",
		Audience:      "acp-webhooks",
	})
	claims, err := service.ValidateToken(result["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestInvalidOutputMode(t *testing.T) {
	setupEnv(t, nil)

	_, err := run(t, "token", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output mode")
}

func TestJobsListQueriesListing(t *testing.T) {
	var gotPath, gotPage string
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("pagination[page]")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":5,"phase":2,"price":"1.5","memos":[]}]}`))
	})

	out, err := run(t, "jobs", "list", "--status", "completed", "--page", "2", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, "/jobs/completed", gotPath)
	assert.Equal(t, "2", gotPage)

	var jobs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, float64(5), jobs[0]["id"])
}

func TestJobsListFiltersByPhase(t *testing.T) {
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":5,"phase":1,"memos":[]},{"id":6,"phase":2,"memos":[]}]}`))
	})

	out, err := run(t, "jobs", "list", "--phase", "transaction", "-o", "json")
	require.NoError(t, err)

	var jobs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, float64(6), jobs[0]["id"])

	_, err = run(t, "jobs", "list", "--phase", "limbo")
	require.Error(t, err)
}

func TestJobsListRejectsUnknownStatus(t *testing.T) {
	setupEnv(t, nil)

	_, err := run(t, "jobs", "list", "--status", "pending")
	require.Error(t, err)
}

func TestJobsGetPrintsMemos(t *testing.T) {
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":5,"phase":2,"price":1.5,"memos":[{"id":9,"memoType":0,"content":"pay me","nextPhase":3,"status":"PENDING"}]}}`))
	})

	out, err := run(t, "jobs", "get", "5", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Job 5 is in TRANSACTION, price 1.5")
	assert.Contains(t, out, "EVALUATION")
	assert.Contains(t, out, "pay me")

	_, err = run(t, "jobs", "get", "abc")
	require.Error(t, err)
}

func TestAgentsBrowseSendsQuery(t *testing.T) {
	var gotSearch, gotTopK string
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		gotTopK = r.URL.Query().Get("top_k")
		_, _ = w.Write([]byte(`{"data":[{"id":3,"name":"Meme Maker","walletAddress":"0x2222222222222222222222222222222222222222","offerings":[]}]}`))
	})

	out, err := run(t, "agents", "browse", "meme", "--top-k", "4", "--no-color")
	require.NoError(t, err)

	assert.Equal(t, "meme", gotSearch)
	assert.Equal(t, "4", gotTopK)
	assert.Contains(t, out, "Meme Maker")
	assert.Contains(t, out, "0x2222...2222")
	assert.Contains(t, out, "1 agent(s) found")
}

func TestJobsInitiateOpensJob(t *testing.T) {
	var posted map[string]interface{}
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/agents":
			assert.Equal(t, "0x2222222222222222222222222222222222222222", r.URL.Query().Get("filters[walletAddress]"))
			_, _ = w.Write([]byte(`{"data":[{"id":3,"name":"Yield Desk","walletAddress":"0x2222222222222222222222222222222222222222","offerings":[{"name":"Find Yields","price":1.25}]}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_, _ = w.Write([]byte(`{"data":{"jobId":77}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	t.Setenv("ACP_ACTION_URL", apiURLFromEnv(t))
	t.Setenv("ACP_ACTION_MAX_ATTEMPTS", "1")

	out, err := run(t, "jobs", "initiate",
		"--provider", "0x2222222222222222222222222222222222222222",
		"--offering", "find yields",
		"--requirement", `{"asset":"USDC"}`,
		"-o", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, float64(77), result["job_id"])
	assert.Equal(t, "Find Yields", result["offering"])

	require.NotNil(t, posted)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", posted["providerAddress"])
	assert.Equal(t, "0x1111111111111111111111111111111111111111", posted["evaluatorAddress"])
	requirement, ok := posted["serviceRequirement"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Find Yields", requirement["name"])
}

func TestJobsInitiateRequiresProvider(t *testing.T) {
	setupEnv(t, nil)

	_, err := run(t, "jobs", "initiate", "--requirement", "hello")
	require.Error(t, err)
}

func TestParseRequirement(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"asset": "USDC"}, parseRequirement(`{"asset":"USDC"}`))
	assert.Equal(t, "make a meme", parseRequirement("make a meme"))
	assert.Equal(t, "[1,2]", parseRequirement("[1,2]"))
}

func apiURLFromEnv(t *testing.T) string {
	t.Helper()
	url := os.Getenv("ACP_API_URL")
	require.NotEmpty(t, url)
	return url
}
