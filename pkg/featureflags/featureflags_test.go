package featureflags

import (
	"context"
	"testing"

	"ftc-platform/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredReturnsFallback(t *testing.T) {
	ff := ProvideFeatureFlag(FeatureParams{Config: &config.Config{}})
	assert.True(t, ff.IsEnabled(context.Background(), AIEvaluationIngestion, "event-1", true))
	assert.False(t, ff.IsEnabled(context.Background(), AIEvaluationIngestion, "event-1", false))
}

func TestStatic(t *testing.T) {
	ff := Static{AIEvaluationIngestion: false}
	assert.False(t, ff.IsEnabled(context.Background(), AIEvaluationIngestion, "", true))
	assert.True(t, ff.IsEnabled(context.Background(), TrainingDataExport, "", true))
}
