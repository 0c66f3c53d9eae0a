package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/internal/domain"
)

func newTask(job *domain.Job, memoToSign *domain.Memo) domain.QueueItem {
	return domain.QueueItem{DeliveryID: "d", Kind: domain.ItemKindNewTask, Job: job, MemoToSign: memoToSign}
}

func evaluation(job *domain.Job) domain.QueueItem {
	return domain.QueueItem{DeliveryID: "d", Kind: domain.ItemKindEvaluate, Job: job}
}

func TestBuyerPaysInNegotiation(t *testing.T) {
	actions := &fakeActions{}
	p := NewBuyerProcessor(NewJobActionUsecase(actions))

	job := &domain.Job{
		ID:    10,
		Price: 2.5,
		Phase: domain.PhaseNegotiation,
		Memos: []*domain.Memo{memo(1, domain.PhaseNegotiation), memo(2, domain.PhaseTransaction)},
	}
	require.NoError(t, p.Process(context.Background(), newTask(job, nil)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, "pay", call.Op)
	assert.Equal(t, 2.5, call.Amount)
	assert.Equal(t, int64(2), call.MemoID)
}

func TestBuyerSkipsNegotiationWithoutTransactionMemo(t *testing.T) {
	actions := &fakeActions{}
	p := NewBuyerProcessor(NewJobActionUsecase(actions))

	job := &domain.Job{ID: 10, Phase: domain.PhaseNegotiation, Memos: []*domain.Memo{memo(1, domain.PhaseNegotiation)}}
	require.ErrorIs(t, p.Process(context.Background(), newTask(job, nil)), domain.ErrNoActionRequired)
	assert.Empty(t, actions.calls)
}

func TestBuyerSelfEvaluates(t *testing.T) {
	actions := &fakeActions{}
	p := NewBuyerProcessor(NewJobActionUsecase(actions))

	job := &domain.Job{ID: 10, Phase: domain.PhaseEvaluation, Memos: []*domain.Memo{memo(4, domain.PhaseCompleted)}}
	require.NoError(t, p.Process(context.Background(), evaluation(job)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, "sign", call.Op)
	assert.True(t, call.Accept)
}

func TestBuyerLogsTerminalPhases(t *testing.T) {
	actions := &fakeActions{}
	p := NewBuyerProcessor(NewJobActionUsecase(actions))

	for _, phase := range []domain.JobPhase{domain.PhaseCompleted, domain.PhaseRejected} {
		require.NoError(t, p.Process(context.Background(), newTask(&domain.Job{ID: 1, Phase: phase}, nil)))
	}
	assert.Empty(t, actions.calls)
}

func TestSellerAcceptsRequest(t *testing.T) {
	actions := &fakeActions{}
	p := NewSellerProcessor(NewJobActionUsecase(actions), StaticDeliverable(domain.Deliverable{Type: "url", Value: "https://example.com"}))

	negotiation := memo(5, domain.PhaseNegotiation)
	job := &domain.Job{ID: 20, Phase: domain.PhaseRequest, Memos: []*domain.Memo{negotiation}}
	require.NoError(t, p.Process(context.Background(), newTask(job, negotiation)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, actionCall{Op: "respond", JobID: 20, MemoID: 5, Accept: true, Reason: "Job 20 accepted"}, call)
}

func TestSellerDeliversWhenPaid(t *testing.T) {
	actions := &fakeActions{}
	deliverable := domain.Deliverable{Type: "url", Value: "https://example.com"}
	p := NewSellerProcessor(NewJobActionUsecase(actions), StaticDeliverable(deliverable))

	toEvaluation := memo(6, domain.PhaseEvaluation)
	job := &domain.Job{ID: 21, Phase: domain.PhaseTransaction, Memos: []*domain.Memo{memo(5, domain.PhaseTransaction), toEvaluation}}
	require.NoError(t, p.Process(context.Background(), newTask(job, toEvaluation)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.Equal(t, "deliver", call.Op)
	assert.Equal(t, deliverable, call.Deliverable)
}

func TestSellerIgnoresRequestWithoutMemoToSign(t *testing.T) {
	actions := &fakeActions{}
	p := NewSellerProcessor(NewJobActionUsecase(actions), StaticDeliverable(domain.Deliverable{}))

	job := &domain.Job{ID: 22, Phase: domain.PhaseRequest, Memos: []*domain.Memo{memo(5, domain.PhaseNegotiation)}}
	require.ErrorIs(t, p.Process(context.Background(), newTask(job, nil)), domain.ErrNoActionRequired)
	require.ErrorIs(t, p.Process(context.Background(), evaluation(job)), domain.ErrNoActionRequired)
	assert.Empty(t, actions.calls)
}

func TestSellerSurfacesRelayFailure(t *testing.T) {
	p := NewSellerProcessor(NewJobActionUsecase(&fakeActions{err: errRelay}), StaticDeliverable(domain.Deliverable{}))

	negotiation := memo(5, domain.PhaseNegotiation)
	job := &domain.Job{ID: 23, Phase: domain.PhaseRequest, Memos: []*domain.Memo{negotiation}}
	require.ErrorIs(t, p.Process(context.Background(), newTask(job, negotiation)), errRelay)
}

func TestEvaluatorAcceptsNonEmptyDeliverable(t *testing.T) {
	actions := &fakeActions{}
	p := NewEvaluatorProcessor(NewJobActionUsecase(actions))

	delivery := memo(8, domain.PhaseCompleted)
	delivery.Content = `{"type":"url","value":"https://example.com"}`
	job := &domain.Job{ID: 30, Phase: domain.PhaseEvaluation, Memos: []*domain.Memo{delivery}}
	require.NoError(t, p.Process(context.Background(), evaluation(job)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.True(t, call.Accept)
	assert.Equal(t, "Job 30 delivery accepted", call.Reason)
}

func TestEvaluatorRejectsEmptyDeliverable(t *testing.T) {
	actions := &fakeActions{}
	p := NewEvaluatorProcessor(NewJobActionUsecase(actions))

	job := &domain.Job{ID: 31, Phase: domain.PhaseEvaluation, Memos: []*domain.Memo{memo(8, domain.PhaseCompleted)}}
	require.NoError(t, p.Process(context.Background(), evaluation(job)))

	call, ok := actions.only()
	require.True(t, ok)
	assert.False(t, call.Accept)
	assert.Equal(t, "Deliverable is empty", call.Reason)
}

func TestEvaluatorIgnoresNewTasks(t *testing.T) {
	p := NewEvaluatorProcessor(NewJobActionUsecase(&fakeActions{}))
	job := &domain.Job{ID: 32, Phase: domain.PhaseEvaluation, Memos: []*domain.Memo{memo(8, domain.PhaseCompleted)}}
	require.ErrorIs(t, p.Process(context.Background(), newTask(job, nil)), domain.ErrNoActionRequired)
}

func TestProcessorRoles(t *testing.T) {
	actions := NewJobActionUsecase(&fakeActions{})
	assert.Equal(t, domain.RoleBuyer, NewBuyerProcessor(actions).Role())
	assert.Equal(t, domain.RoleSeller, NewSellerProcessor(actions, StaticDeliverable(domain.Deliverable{})).Role())
	assert.Equal(t, domain.RoleEvaluator, NewEvaluatorProcessor(actions).Role())
}
