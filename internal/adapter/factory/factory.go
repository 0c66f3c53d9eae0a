package factory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/logger"
)

// processorFactory is a thread-safe registry mapping agent roles to the
// processor that decides what to do with a dequeued job.
type processorFactory struct {
	mu         sync.RWMutex
	processors map[string]domain.JobProcessor
}

// NewProcessorFactory creates a new processor registry instance.
func NewProcessorFactory() domain.ProcessorFactory {
	return &processorFactory{
		processors: make(map[string]domain.JobProcessor),
	}
}

// RegisterProcessor registers a processor under the given role.
func (f *processorFactory) RegisterProcessor(role string, processor domain.JobProcessor) {
	if processor == nil {
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(role))
	if !domain.IsValidRole(normalized) {
		logger.Warn("Ignoring processor for unknown role", logger.String("role", role))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.processors[normalized] = processor
}

// GetProcessor returns the processor registered for role.
func (f *processorFactory) GetProcessor(role string) (domain.JobProcessor, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return nil, fmt.Errorf("agent role is required")
	}

	f.mu.RLock()
	processor, ok := f.processors[normalized]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no processor for %s", domain.ErrUnknownRole, normalized)
	}

	return processor, nil
}
