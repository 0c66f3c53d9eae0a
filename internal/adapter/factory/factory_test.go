package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfanzaky/acpagent/internal/domain"
)

type stubProcessor struct{ role string }

func (s stubProcessor) Role() string { return s.role }

func (s stubProcessor) Process(context.Context, domain.QueueItem) error { return nil }

func TestProcessorFactoryNormalizesRole(t *testing.T) {
	f := NewProcessorFactory()
	f.RegisterProcessor("  Seller ", stubProcessor{role: domain.RoleSeller})

	p, err := f.GetProcessor("SELLER")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, p.Role())
}

func TestProcessorFactoryUnknownRole(t *testing.T) {
	f := NewProcessorFactory()

	_, err := f.GetProcessor("buyer")
	require.ErrorIs(t, err, domain.ErrUnknownRole)

	_, err = f.GetProcessor(" ")
	require.Error(t, err)
}

func TestProcessorFactoryIgnoresNil(t *testing.T) {
	f := NewProcessorFactory()
	f.RegisterProcessor("buyer", nil)

	_, err := f.GetProcessor("buyer")
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestProcessorFactoryIgnoresUnknownRole(t *testing.T) {
	f := NewProcessorFactory()
	f.RegisterProcessor("broker", stubProcessor{role: "broker"})

	_, err := f.GetProcessor("broker")
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}
