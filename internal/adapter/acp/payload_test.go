package acp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/internal/domain"
)

const newTaskPayload = `{
	"id": 101,
	"providerAddress": "0xprovider",
	"clientAddress": "0xclient",
	"evaluatorAddress": "0xevaluator",
	"price": "0.25",
	"phase": 0,
	"context": "{\"origin\":\"webhook\"}",
	"memoToSign": "11",
	"memos": [
		{"id": 11, "memoType": 0, "content": "{\"name\":\"meme\",\"serviceRequirement\":{\"prompt\":\"flower\"}}", "nextPhase": 1, "status": "PENDING", "expiry": 1760000000}
	]
}`

func TestParseJobPayload(t *testing.T) {
	job, memoToSign, err := ParseJobPayload([]byte(newTaskPayload))
	require.NoError(t, err)

	assert.Equal(t, int64(101), job.ID)
	assert.Equal(t, 0.25, job.Price)
	assert.Equal(t, domain.PhaseRequest, job.Phase)
	assert.Equal(t, "0xevaluator", job.EvaluatorAddress)
	assert.Equal(t, map[string]interface{}{"origin": "webhook"}, job.Context)
	assert.Equal(t, "meme", job.ServiceName())
	assert.Equal(t, map[string]interface{}{"prompt": "flower"}, job.ServiceRequirement())

	require.NotNil(t, memoToSign)
	assert.Equal(t, int64(11), memoToSign.ID)
	assert.Equal(t, domain.PhaseNegotiation, memoToSign.NextPhase)
	assert.Equal(t, domain.MemoStatusPending, memoToSign.Status)
	require.NotNil(t, memoToSign.Expiry)
	assert.Equal(t, int64(1760000000), memoToSign.Expiry.Unix())
}

func TestParseJobPayloadObjectContextWithoutMemoToSign(t *testing.T) {
	job, memoToSign, err := ParseJobPayload([]byte(`{"id": 5, "phase": 3, "price": 1, "context": {"a": 1}, "memos": []}`))
	require.NoError(t, err)
	assert.Nil(t, memoToSign)
	assert.Equal(t, domain.PhaseEvaluation, job.Phase)
	assert.Equal(t, float64(1), job.Context["a"])
}

func TestParseJobPayloadBadStringContext(t *testing.T) {
	job, _, err := ParseJobPayload([]byte(`{"id": 5, "phase": 1, "context": "not json", "memos": []}`))
	require.NoError(t, err)
	assert.Nil(t, job.Context)
}

func TestParseJobPayloadUnknownMemoToSign(t *testing.T) {
	_, memoToSign, err := ParseJobPayload([]byte(`{"id": 5, "phase": 1, "memoToSign": 99, "memos": [{"id": 1, "memoType": 0, "nextPhase": 2, "status": "PENDING"}]}`))
	require.NoError(t, err)
	assert.Nil(t, memoToSign)
}

func TestParseJobPayloadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing id":    `{"phase": 1}`,
		"unknown phase": `{"id": 1, "phase": 42}`,
		"bad memo id":   `{"id": 1, "phase": 1, "memos": [{"id": "x"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseJobPayload([]byte(payload))
			require.Error(t, err)
		})
	}
}
