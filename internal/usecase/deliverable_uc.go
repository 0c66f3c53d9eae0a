package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/utils"
)

// Offerings with a built-in deliverable.
const (
	ServiceFindYields  = "Find Yields"
	ServiceBoostLeague = "Boost League"
)

const textDeliverable = "text"

// DeliverableBuilderFunc adapts a function to domain.DeliverableBuilder
type DeliverableBuilderFunc func(ctx context.Context, job *domain.Job) (domain.Deliverable, error)

func (f DeliverableBuilderFunc) Build(ctx context.Context, job *domain.Job) (domain.Deliverable, error) {
	return f(ctx, job)
}

// StaticDeliverable hands over the same deliverable for every job
func StaticDeliverable(deliverable domain.Deliverable) domain.DeliverableBuilder {
	return DeliverableBuilderFunc(func(context.Context, *domain.Job) (domain.Deliverable, error) {
		return deliverable, nil
	})
}

// DeliverableRegistry picks a builder by the offering name found in the
// job's negotiation memo. Names match ignoring case.
type DeliverableRegistry struct {
	mu       sync.RWMutex
	builders map[string]domain.DeliverableBuilder
	fallback domain.DeliverableBuilder
}

var _ domain.DeliverableBuilder = (*DeliverableRegistry)(nil)

// NewDeliverableRegistry creates a registry. Jobs for unregistered offerings
// go to fallback, or get their requirement echoed back when fallback is nil.
func NewDeliverableRegistry(fallback domain.DeliverableBuilder) *DeliverableRegistry {
	if fallback == nil {
		fallback = DeliverableBuilderFunc(echoRequirement)
	}
	return &DeliverableRegistry{
		builders: make(map[string]domain.DeliverableBuilder),
		fallback: fallback,
	}
}

// Register binds a builder to an offering name
func (r *DeliverableRegistry) Register(service string, builder domain.DeliverableBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[serviceKey(service)] = builder
}

// RegisterDefaults binds the built-in offerings
func (r *DeliverableRegistry) RegisterDefaults() *DeliverableRegistry {
	r.Register(ServiceFindYields, DeliverableBuilderFunc(buildYieldProjection))
	r.Register(ServiceBoostLeague, DeliverableBuilderFunc(buildBoostLeague))
	return r
}

func (r *DeliverableRegistry) Build(ctx context.Context, job *domain.Job) (domain.Deliverable, error) {
	if job == nil {
		return domain.Deliverable{}, domain.ErrNilJob
	}

	service := job.ServiceName()
	r.mu.RLock()
	builder, ok := r.builders[serviceKey(service)]
	r.mu.RUnlock()

	if !ok {
		logger.Debug("No deliverable builder for service, using fallback",
			logger.JobID(job.ID),
			logger.String("service", service),
		)
		builder = r.fallback
	}
	return builder.Build(ctx, job)
}

func serviceKey(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

// riskAPY is the assumed yearly yield per risk level.
var riskAPY = map[string]float64{
	"low":    0.04,
	"medium": 0.08,
	"high":   0.15,
}

const (
	defaultAPY     = 0.06
	yieldFeeRate   = 0.001
	yieldRuleWidth = 64
)

// buildYieldProjection renders a simple prorated APY projection, no
// compounding, from asset, amount, duration_days, risk_level, apy and notes.
func buildYieldProjection(_ context.Context, job *domain.Job) (domain.Deliverable, error) {
	fields := requirementFields(job.ServiceRequirement(), "raw")

	asset := stringField(fields, "USDC", "asset")
	amount := numberField(fields, 0, "amount")
	days := int(numberField(fields, 30, "duration_days"))
	risk := stringField(fields, "medium", "risk level", "risk_level")
	notes := stringField(fields, "", "notes")

	apy := numberField(fields, 0, "apy")
	if apy <= 0 {
		var ok bool
		if apy, ok = riskAPY[strings.ToLower(risk)]; !ok {
			apy = defaultAPY
		}
	}

	years := float64(max(days, 0)) / 365
	projected := amount * apy * years
	fees := amount * yieldFeeRate
	rule := strings.Repeat("-", yieldRuleWidth)

	lines := []string{
		"Find Yields - Draft Projection",
		rule,
		"INPUTS",
		rule,
		row("Asset", asset),
		row("Amount", "$"+utils.FormatMoney(amount)),
		row("Duration (days)", strconv.Itoa(days)),
		row("Risk level", fmt.Sprintf("%s (APY %s)", risk, utils.FormatPercent(apy))),
	}
	if notes != "" {
		lines = append(lines, row("Notes", notes))
	}
	lines = append(lines,
		"",
		"RESULTS",
		rule,
		row("APY (assumed)", utils.FormatPercent(apy)),
		row("Projected yield", "$"+utils.FormatMoney(projected)),
		row("Est. fees (0.10%)", "$"+utils.FormatMoney(fees)),
		row("Projected end balance", "$"+utils.FormatMoney(amount+projected-fees)),
		rule,
		"Method: simple prorated APY, no compounding.",
	)

	return domain.Deliverable{Type: textDeliverable, Value: strings.Join(lines, "\n")}, nil
}

func buildBoostLeague(_ context.Context, job *domain.Job) (domain.Deliverable, error) {
	fields := requirementFields(job.ServiceRequirement(), "leagueboost")
	request := stringField(fields, "(none provided)", "leagueboost")
	rule := strings.Repeat("-", yieldRuleWidth)

	text := strings.Join([]string{
		"Boost League - Request Summary",
		rule,
		row("Request", request),
		rule,
		"Status: queued for processing",
	}, "\n")
	return domain.Deliverable{Type: textDeliverable, Value: text}, nil
}

func echoRequirement(_ context.Context, job *domain.Job) (domain.Deliverable, error) {
	service := job.ServiceName()
	if service == "" {
		service = "(none)"
	}

	input := "null"
	if encoded, err := json.MarshalIndent(job.ServiceRequirement(), "", "  "); err == nil {
		input = string(encoded)
	}
	return domain.Deliverable{
		Type:  textDeliverable,
		Value: fmt.Sprintf("Unknown service: %s\nInput:\n%s", service, input),
	}, nil
}

func row(label, value string) string {
	return fmt.Sprintf("%-21s | %s", label, value)
}

// requirementFields turns a requirement into a field map. Text that is not a
// JSON object lands under rawKey.
func requirementFields(requirement interface{}, rawKey string) map[string]interface{} {
	switch v := requirement.(type) {
	case map[string]interface{}:
		return v
	case string:
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(v), &fields); err == nil && fields != nil {
			return fields
		}
		return map[string]interface{}{rawKey: v}
	default:
		return map[string]interface{}{}
	}
}

func stringField(fields map[string]interface{}, fallback string, keys ...string) string {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(value)); s != "" {
			return s
		}
	}
	return fallback
}

func numberField(fields map[string]interface{}, fallback float64, keys ...string) float64 {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64); err == nil {
				return f
			}
		}
	}
	return fallback
}
