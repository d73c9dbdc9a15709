package moderation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvanhorn/chatgate/internal/observability/metrics"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// Classifier is the probabilistic stage of the pipeline.
type Classifier interface {
	Check(ctx context.Context, text string) Decision
}

// Pipeline composes the rule engine and the classifier gate into a
// single moderation operation. The rule engine runs first; a rule block
// is final and the classifier is never consulted for it, so a
// deterministic block can never be overridden by the model.
type Pipeline struct {
	rules      *RuleEngine
	classifier Classifier
	metrics    *metrics.GateMetrics
	tracer     trace.Tracer
	logger     *logging.Logger
}

func NewPipeline(rules *RuleEngine, classifier Classifier, gm *metrics.GateMetrics, logger *logging.Logger) *Pipeline {
	if rules == nil {
		panic("moderation: rule engine cannot be nil")
	}
	if classifier == nil {
		panic("moderation: classifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		rules:      rules,
		classifier: classifier,
		metrics:    gm,
		tracer:     otel.Tracer("chatgate.internal.moderation"),
		logger:     logger,
	}
}

// Moderate checks text against the rules and, when they allow it, the
// classifier. The classifier's verdict is returned verbatim.
func (p *Pipeline) Moderate(ctx context.Context, text string) Decision {
	ctx, span := p.tracer.Start(ctx, "moderation.moderate")
	defer span.End()

	if d := p.rules.Check(text); !d.Allowed {
		span.SetAttributes(
			attribute.String("moderation.stage", "rules"),
			attribute.String("moderation.category", d.Category),
		)
		p.metrics.ObserveDecision("rules", d.Category, false)
		p.logger.Warn("text blocked by rule engine", "category", d.Category, "reason", d.Reason)
		return d
	}

	d := p.classifier.Check(ctx, text)
	span.SetAttributes(
		attribute.String("moderation.stage", "classifier"),
		attribute.Bool("moderation.allowed", d.Allowed),
	)
	p.metrics.ObserveDecision("classifier", d.Category, d.Allowed)
	if !d.Allowed {
		p.logger.Warn("text blocked by classifier", "reason", d.Reason)
	}
	return d
}
