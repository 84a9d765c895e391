package evaluation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "ftc-platform/services/evaluation"

type instruments struct {
	ingested metric.Int64Counter
	tokens   metric.Int64Counter
	batch    metric.Int64Histogram
}

// newInstruments falls back to the global provider, a no-op unless tracing
// setup installed one. Instrument errors only disable the instrument.
func newInstruments(mp metric.MeterProvider) instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)

	var in instruments
	var err error
	if in.ingested, err = m.Int64Counter("evaluations.ingested",
		metric.WithDescription("AI evaluations processed, by source and outcome")); err != nil {
		zap.L().Warn("metric disabled", zap.String("name", "evaluations.ingested"), zap.Error(err))
	}
	if in.tokens, err = m.Int64Counter("evaluations.tokens",
		metric.WithDescription("model tokens reported with stored AI evaluations")); err != nil {
		zap.L().Warn("metric disabled", zap.String("name", "evaluations.tokens"), zap.Error(err))
	}
	if in.batch, err = m.Int64Histogram("evaluations.batch.size",
		metric.WithDescription("items per batch ingestion call")); err != nil {
		zap.L().Warn("metric disabled", zap.String("name", "evaluations.batch.size"), zap.Error(err))
	}
	return in
}

func (in instruments) recordIngested(ctx context.Context, source string, ok, failed int, tokens int) {
	if in.ingested != nil {
		if ok > 0 {
			in.ingested.Add(ctx, int64(ok), metric.WithAttributes(
				attribute.String("source", source), attribute.String("outcome", "success")))
		}
		if failed > 0 {
			in.ingested.Add(ctx, int64(failed), metric.WithAttributes(
				attribute.String("source", source), attribute.String("outcome", "failed")))
		}
	}
	if in.tokens != nil && tokens > 0 {
		in.tokens.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("source", source)))
	}
}

func (in instruments) recordBatchSize(ctx context.Context, n int) {
	if in.batch != nil {
		in.batch.Record(ctx, int64(n))
	}
}
