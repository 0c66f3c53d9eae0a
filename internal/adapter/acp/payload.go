package acp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alfanzaky/acpagent/internal/domain"
)

// flexNumber decodes a JSON number that the backend sometimes sends as a string.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(strings.TrimSpace(s))
		return nil
	}
	*n = flexNumber(data)
	return nil
}

func (n flexNumber) Int64() (int64, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.ParseInt(string(n), 10, 64)
}

func (n flexNumber) Float64() (float64, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.ParseFloat(string(n), 64)
}

type wireMemo struct {
	ID           flexNumber `json:"id"`
	MemoType     flexNumber `json:"memoType"`
	Content      string     `json:"content"`
	NextPhase    flexNumber `json:"nextPhase"`
	Status       string     `json:"status"`
	SignedReason *string    `json:"signedReason"`
	Expiry       flexNumber `json:"expiry"`
}

type wireJob struct {
	ID               flexNumber      `json:"id"`
	ProviderAddress  string          `json:"providerAddress"`
	ClientAddress    string          `json:"clientAddress"`
	EvaluatorAddress string          `json:"evaluatorAddress"`
	Price            flexNumber      `json:"price"`
	Phase            flexNumber      `json:"phase"`
	Memos            []wireMemo      `json:"memos"`
	Context          json.RawMessage `json:"context"`
	MemoToSign       flexNumber      `json:"memoToSign"`
}

type wireOffering struct {
	Name              string                 `json:"name"`
	Price             flexNumber             `json:"price"`
	PriceUSD          flexNumber             `json:"priceUsd"`
	RequirementSchema map[string]interface{} `json:"requirementSchema"`
}

type wireAgent struct {
	ID             flexNumber             `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	WalletAddress  string                 `json:"walletAddress"`
	Offerings      []wireOffering         `json:"offerings"`
	TwitterHandle  string                 `json:"twitterHandle"`
	Cluster        string                 `json:"cluster"`
	Metrics        map[string]interface{} `json:"metrics"`
	ProcessingTime string                 `json:"processingTime"`
}

// ParseJobPayload decodes an ACP job event as delivered to new-task and
// evaluation webhooks. The returned memo is the one named by memoToSign, or
// nil when the event does not carry one.
func ParseJobPayload(raw []byte) (*domain.Job, *domain.Memo, error) {
	var wire wireJob
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, nil, fmt.Errorf("invalid job payload: %w", err)
	}

	job, err := wire.toDomain()
	if err != nil {
		return nil, nil, err
	}
	if job.ID <= 0 {
		return nil, nil, fmt.Errorf("invalid job payload: id is required")
	}

	memoToSignID, err := wire.MemoToSign.Int64()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid memoToSign: %w", err)
	}
	if wire.MemoToSign == "" {
		return job, nil, nil
	}
	return job, job.MemoByID(memoToSignID), nil
}

func (w *wireJob) toDomain() (*domain.Job, error) {
	id, err := w.ID.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	price, err := w.Price.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid job price: %w", err)
	}
	phaseValue, err := w.Phase.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid job phase: %w", err)
	}
	phase := domain.JobPhase(phaseValue)
	if !phase.IsValid() {
		return nil, fmt.Errorf("invalid job phase %d", phaseValue)
	}

	job := &domain.Job{
		ID:               id,
		ProviderAddress:  w.ProviderAddress,
		ClientAddress:    w.ClientAddress,
		EvaluatorAddress: w.EvaluatorAddress,
		Price:            price,
		Phase:            phase,
		Memos:            make([]*domain.Memo, 0, len(w.Memos)),
		Context:          decodeContext(w.Context),
	}

	for i := range w.Memos {
		memo, err := w.Memos[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("memo %d: %w", i, err)
		}
		job.Memos = append(job.Memos, memo)
	}

	return job, nil
}

func (w *wireMemo) toDomain() (*domain.Memo, error) {
	id, err := w.ID.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid memo id: %w", err)
	}
	memoType, err := w.MemoType.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid memo type: %w", err)
	}
	nextPhase, err := w.NextPhase.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid memo next phase: %w", err)
	}

	memo := &domain.Memo{
		ID:           id,
		Type:         domain.MemoType(memoType),
		Content:      w.Content,
		NextPhase:    domain.JobPhase(nextPhase),
		Status:       domain.MemoStatus(strings.ToUpper(w.Status)),
		SignedReason: w.SignedReason,
	}

	expiry, err := w.Expiry.Int64()
	if err != nil {
		return nil, fmt.Errorf("invalid memo expiry: %w", err)
	}
	if expiry > 0 {
		t := time.Unix(expiry, 0).UTC()
		memo.Expiry = &t
	}

	return memo, nil
}

// decodeContext accepts an object or a JSON-encoded string. Anything else
// yields nil.
func decodeContext(raw json.RawMessage) map[string]interface{} {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil
		}
		raw = []byte(encoded)
	}

	var ctx map[string]interface{}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil
	}
	return ctx
}

func (w *wireAgent) toDomain() *domain.Agent {
	id, _ := w.ID.Int64()
	agent := &domain.Agent{
		ID:             id,
		Name:           w.Name,
		Description:    w.Description,
		WalletAddress:  w.WalletAddress,
		TwitterHandle:  w.TwitterHandle,
		Cluster:        w.Cluster,
		Metrics:        w.Metrics,
		ProcessingTime: w.ProcessingTime,
		Offerings:      make([]*domain.Offering, 0, len(w.Offerings)),
	}

	for _, o := range w.Offerings {
		price, _ := o.Price.Float64()
		priceUSD, _ := o.PriceUSD.Float64()
		agent.Offerings = append(agent.Offerings, &domain.Offering{
			ProviderAddress:   w.WalletAddress,
			Name:              o.Name,
			Price:             price,
			PriceUSD:          priceUSD,
			RequirementSchema: o.RequirementSchema,
		})
	}

	return agent
}
