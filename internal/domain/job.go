package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobPhase is the lifecycle tag the ACP backend attaches to a job.
// The agent only inspects it; transitions are owned by the backend.
type JobPhase int

const (
	PhaseRequest JobPhase = iota
	PhaseNegotiation
	PhaseTransaction
	PhaseEvaluation
	PhaseCompleted
	PhaseRejected
	PhaseExpired
)

var phaseNames = map[JobPhase]string{
	PhaseRequest:     "REQUEST",
	PhaseNegotiation: "NEGOTIATION",
	PhaseTransaction: "TRANSACTION",
	PhaseEvaluation:  "EVALUATION",
	PhaseCompleted:   "COMPLETED",
	PhaseRejected:    "REJECTED",
	PhaseExpired:     "EXPIRED",
}

func (p JobPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

// IsValid reports whether the phase is one of the known ACP phases.
func (p JobPhase) IsValid() bool {
	_, ok := phaseNames[p]
	return ok
}

// IsTerminal reports whether no further action is expected on the job.
func (p JobPhase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseRejected || p == PhaseExpired
}

// ParseJobPhase accepts either the phase name or its numeric value.
func ParseJobPhase(value string) (JobPhase, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for phase, name := range phaseNames {
		if name == normalized || fmt.Sprint(int(phase)) == normalized {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("unknown job phase %q", value)
}

// MemoType mirrors the on-chain memo type enumeration.
type MemoType int

const (
	MemoTypeMessage MemoType = iota
	MemoTypeContextURL
	MemoTypeImageURL
	MemoTypeVoiceURL
	MemoTypeObjectURL
	MemoTypeTxHash
	MemoTypePayableRequest
	MemoTypePayableTransfer
	MemoTypePayableTransferEscrow
)

// MemoStatus is the signing state of a memo.
type MemoStatus string

const (
	MemoStatusPending  MemoStatus = "PENDING"
	MemoStatusApproved MemoStatus = "APPROVED"
	MemoStatusRejected MemoStatus = "REJECTED"
)

// Memo is a message attached to a job that moves it towards NextPhase once signed.
type Memo struct {
	ID           int64      `json:"id"`
	Type         MemoType   `json:"type"`
	Content      string     `json:"content"`
	NextPhase    JobPhase   `json:"next_phase"`
	Status       MemoStatus `json:"status"`
	SignedReason *string    `json:"signed_reason,omitempty"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Job is the handle delivered by the ACP backend for an in-flight negotiation.
type Job struct {
	ID               int64                  `json:"id"`
	ProviderAddress  string                 `json:"provider_address"`
	ClientAddress    string                 `json:"client_address"`
	EvaluatorAddress string                 `json:"evaluator_address"`
	Price            float64                `json:"price"`
	Phase            JobPhase               `json:"phase"`
	Memos            []*Memo                `json:"memos"`
	Context          map[string]interface{} `json:"context,omitempty"`
}

// Deliverable is what a seller hands over when the job reaches EVALUATION.
type Deliverable struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// NegotiationPayload is the JSON body of the memo that opens negotiation.
type NegotiationPayload struct {
	Name               string      `json:"name,omitempty"`
	ServiceRequirement interface{} `json:"serviceRequirement,omitempty"`
}

// UnmarshalJSON accepts the camelCase, snake_case and legacy "message" spellings.
func (p *NegotiationPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if name, ok := raw["name"]; ok {
		if err := json.Unmarshal(name, &p.Name); err != nil {
			return fmt.Errorf("invalid negotiation name: %w", err)
		}
	}

	for _, key := range []string{"serviceRequirement", "service_requirement", "message"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var requirement interface{}
		if err := json.Unmarshal(value, &requirement); err != nil {
			return fmt.Errorf("invalid service requirement: %w", err)
		}
		p.ServiceRequirement = requirement
		break
	}

	return nil
}

// LatestMemo returns the most recently appended memo, or nil.
func (j *Job) LatestMemo() *Memo {
	if j == nil || len(j.Memos) == 0 {
		return nil
	}
	return j.Memos[len(j.Memos)-1]
}

// MemoByID finds a memo by its on-chain id.
func (j *Job) MemoByID(id int64) *Memo {
	if j == nil {
		return nil
	}
	for _, memo := range j.Memos {
		if memo != nil && memo.ID == id {
			return memo
		}
	}
	return nil
}

// FirstMemoWithNextPhase returns the earliest memo that leads into phase.
func (j *Job) FirstMemoWithNextPhase(phase JobPhase) *Memo {
	if j == nil {
		return nil
	}
	for _, memo := range j.Memos {
		if memo != nil && memo.NextPhase == phase {
			return memo
		}
	}
	return nil
}

// HasMemoWithNextPhase reports whether any memo leads into phase.
func (j *Job) HasMemoWithNextPhase(phase JobPhase) bool {
	return j.FirstMemoWithNextPhase(phase) != nil
}

func (j *Job) negotiationPayload() (*NegotiationPayload, *Memo) {
	memo := j.FirstMemoWithNextPhase(PhaseNegotiation)
	if memo == nil || memo.Content == "" {
		return nil, memo
	}

	var payload NegotiationPayload
	if err := json.Unmarshal([]byte(memo.Content), &payload); err != nil {
		return nil, memo
	}
	return &payload, memo
}

// ServiceRequirement returns what the buyer asked for in the negotiation memo.
func (j *Job) ServiceRequirement() interface{} {
	payload, _ := j.negotiationPayload()
	if payload == nil {
		return nil
	}
	if payload.ServiceRequirement != nil {
		return payload.ServiceRequirement
	}
	return payload
}

// ServiceName returns the offering name from the negotiation memo. When the
// memo is not JSON its raw content is used.
func (j *Job) ServiceName() string {
	payload, memo := j.negotiationPayload()
	if payload != nil {
		return payload.Name
	}
	if memo != nil {
		return memo.Content
	}
	return ""
}

// Deliverable returns the content of the memo that leads into COMPLETED.
func (j *Job) Deliverable() string {
	memo := j.FirstMemoWithNextPhase(PhaseCompleted)
	if memo == nil {
		return ""
	}
	return memo.Content
}
