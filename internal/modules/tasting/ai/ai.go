// Package ai adapts text-generation backends to the tasting plan contract:
// given a request, return a schema-valid plan or fail.
package ai

import (
	"context"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/prompts"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/schema"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/platform/openai"
)

// Generator returns a validated plan. Every failure, schema violations included,
// satisfies errors.Is(err, tasting.ErrUpstreamGenerationFailed).
type Generator interface {
	Generate(ctx context.Context, req tasting.GenerationRequest) (*schema.Plan, error)
}

type openAIGenerator struct {
	log    *logger.Logger
	client openai.Client
}

func NewOpenAIGenerator(log *logger.Logger, client openai.Client) Generator {
	return &openAIGenerator{log: log.With("service", "OpenAIPlanGenerator"), client: client}
}

func (g *openAIGenerator) Generate(ctx context.Context, req tasting.GenerationRequest) (*schema.Plan, error) {
	ctx, span := observability.Tracer().Start(ctx, "ai.generate_plan")
	defer span.End()

	system, user := prompts.Render(req)
	raw, err := g.client.GenerateJSON(ctx, system, user, schema.Name, schema.JSONSchema())
	if err != nil {
		span.RecordError(err)
		return nil, tasting.UpstreamFailure("ai generate", err)
	}
	plan, err := schema.Parse(raw, req.WineCount)
	if err != nil {
		span.RecordError(err)
		g.log.Warn("AI response failed schema validation", "error", err, "occasion", req.Occasion)
		return nil, tasting.UpstreamFailure("ai schema", err)
	}
	return plan, nil
}
