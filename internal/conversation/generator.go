package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvanhorn/chatgate/pkg/logging"
)

const chatSystemPrompt = "You are a helpful and friendly assistant. Respond concisely to the user's query."

// Higher temperature than the moderation classifier: replies should be
// varied, verdicts should not.
const chatTemperature = 0.7

// Generator produces assistant replies with the full session history as
// context. It records the user turn before invoking the model and the
// assistant turn after a successful completion, so on error the user
// turn is already in the history and no assistant turn is.
type Generator struct {
	client  LLMClient
	store   Store
	model   string
	timeout time.Duration
	tracer  trace.Tracer
	logger  *logging.Logger
}

func NewGenerator(client LLMClient, store Store, model string, timeout time.Duration, logger *logging.Logger) *Generator {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if store == nil {
		panic("conversation: store cannot be nil")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		client:  client,
		store:   store,
		model:   model,
		timeout: timeout,
		tracer:  otel.Tracer("chatgate.internal.conversation.generator"),
		logger:  logger,
	}
}

// Generate runs one completion for the session. No retries: a failed
// call surfaces immediately so the controller can record the error turn.
func (g *Generator) Generate(ctx context.Context, sessionID, userText string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "conversation.generate")
	defer span.End()
	span.SetAttributes(attribute.String("chatgate.session_id", sessionID))

	history, err := g.store.Messages(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: failed to load history: %w", err)
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: chatRole(turn.Role), Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: userText})

	if err := g.store.Append(ctx, sessionID, Turn{Role: RoleHuman, Content: userText}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: failed to record user turn: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.client.Complete(callCtx, LLMRequest{
		Model:       g.model,
		System:      chatSystemPrompt,
		Messages:    messages,
		Temperature: chatTemperature,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: generation failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("conversation: model returned an empty reply")
	}

	if err := g.store.Append(ctx, sessionID, Turn{Role: RoleAssistant, Content: resp.Text}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: failed to record assistant turn: %w", err)
	}

	g.logger.Debug("generated reply",
		"session_id", sessionID,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return resp.Text, nil
}

func chatRole(role Role) string {
	if role == RoleAssistant {
		return ChatRoleAssistant
	}
	return ChatRoleUser
}
