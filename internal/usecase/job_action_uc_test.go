package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/internal/domain"
)

func TestRespondRequiresNegotiationMemo(t *testing.T) {
	actions := &fakeActions{}
	uc := NewJobActionUsecase(actions)

	job := &domain.Job{ID: 3, Memos: []*domain.Memo{memo(1, domain.PhaseTransaction)}}
	_, err := uc.Respond(context.Background(), job, true, nil, "")
	require.ErrorIs(t, err, domain.ErrNoNegotiationMemo)
	assert.Empty(t, actions.calls)
}

func TestRespondDefaultReason(t *testing.T) {
	actions := &fakeActions{}
	uc := NewJobActionUsecase(actions)

	job := &domain.Job{ID: 3, Memos: []*domain.Memo{memo(11, domain.PhaseNegotiation)}}

	tx, err := uc.Respond(context.Background(), job, false, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "0xhash", tx)

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, actionCall{Op: "respond", JobID: 3, MemoID: 11, Accept: false, Reason: "Job 3 rejected"}, call)
}

func TestPayUsesFirstTransactionMemo(t *testing.T) {
	actions := &fakeActions{}
	uc := NewJobActionUsecase(actions)

	job := &domain.Job{ID: 9, Memos: []*domain.Memo{
		memo(1, domain.PhaseNegotiation),
		memo(2, domain.PhaseTransaction),
		memo(3, domain.PhaseTransaction),
	}}

	_, err := uc.Pay(context.Background(), job, 1.5, "")
	require.NoError(t, err)

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, int64(2), call.MemoID)
	assert.Equal(t, 1.5, call.Amount)
	assert.Equal(t, "Job 9 paid", call.Reason)
}

func TestPayWithoutTransactionMemo(t *testing.T) {
	uc := NewJobActionUsecase(&fakeActions{})
	_, err := uc.Pay(context.Background(), &domain.Job{ID: 1}, 1, "")
	require.ErrorIs(t, err, domain.ErrNoTransactionMemo)
}

func TestDeliverRequiresEvaluationMemo(t *testing.T) {
	actions := &fakeActions{}
	uc := NewJobActionUsecase(actions)
	deliverable := domain.Deliverable{Type: "url", Value: "https://example.com"}

	job := &domain.Job{ID: 4, Memos: []*domain.Memo{memo(1, domain.PhaseTransaction)}}
	_, err := uc.Deliver(context.Background(), job, deliverable)
	require.ErrorIs(t, err, domain.ErrNoDeliveryMemo)

	job.Memos = append(job.Memos, memo(2, domain.PhaseEvaluation))
	_, err = uc.Deliver(context.Background(), job, deliverable)
	require.NoError(t, err)

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, deliverable, call.Deliverable)
}

func TestEvaluateSignsLatestMemo(t *testing.T) {
	actions := &fakeActions{}
	uc := NewJobActionUsecase(actions)

	job := &domain.Job{ID: 5, Memos: []*domain.Memo{memo(7, domain.PhaseCompleted)}}
	_, err := uc.Evaluate(context.Background(), job, true, "")
	require.NoError(t, err)

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, actionCall{Op: "sign", MemoID: 7, Accept: true, Reason: "Job 5 delivery accepted"}, call)
}

func TestEvaluateWithoutEvaluationMemo(t *testing.T) {
	uc := NewJobActionUsecase(&fakeActions{})
	_, err := uc.Evaluate(context.Background(), &domain.Job{ID: 5}, true, "")
	require.ErrorIs(t, err, domain.ErrNoEvaluationMemo)
}

func TestActionErrorsAreWrapped(t *testing.T) {
	uc := NewJobActionUsecase(&fakeActions{err: errRelay})
	job := &domain.Job{ID: 8, Memos: []*domain.Memo{memo(1, domain.PhaseNegotiation)}}

	_, err := uc.Respond(context.Background(), job, true, nil, "custom")
	require.ErrorIs(t, err, errRelay)
	assert.Contains(t, err.Error(), "respond job 8")
}

func TestActionsRejectNilJob(t *testing.T) {
	uc := NewJobActionUsecase(&fakeActions{})
	_, err := uc.Respond(context.Background(), nil, true, nil, "")
	require.ErrorIs(t, err, domain.ErrNilJob)
}
