package conversation

import (
	"context"
	"time"

	"github.com/pvanhorn/chatgate/internal/moderation"
	"github.com/pvanhorn/chatgate/internal/observability/metrics"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// User-visible messages. The prefixes deliberately differ so a user can
// tell which side of the exchange was at fault.
const (
	InputBlockedPrefix   = "🚫 Your input was blocked: "
	OutputBlockedPrefix  = "⚠️ My response was blocked due to policy violation: "
	GenerationErrorReply = "I'm sorry, I encountered an issue while processing your request. Please try again."
)

// Structured log messages for turn outcomes. The offline moderation
// report parses the log by these exact strings; change them only
// together with the analytics reader.
const (
	LogMsgInputAccepted    = "user input accepted; sending to generator"
	LogMsgInputBlocked     = "user input was blocked by moderation"
	LogMsgOutputAccepted   = "generated reply passed output moderation"
	LogMsgOutputBlocked    = "generated reply blocked by moderation"
	LogMsgGenerationFailed = "generation failed"
)

// Terminal turn outcomes, used as metric labels.
const (
	TurnDelivered     = "delivered"
	TurnInputBlocked  = "input_blocked"
	TurnOutputBlocked = "output_blocked"
	TurnError         = "error"
)

// Moderator is the decision surface the controller consumes.
type Moderator interface {
	Moderate(ctx context.Context, text string) moderation.Decision
}

// ReplyGenerator produces the assistant reply for one allowed user turn
// and records both turns on success.
type ReplyGenerator interface {
	Generate(ctx context.Context, sessionID, userText string) (string, error)
}

// Controller walks one user turn through input moderation, generation,
// and output moderation, repairing the session history whenever an
// already-recorded reply has to be withdrawn. Turns for the same session
// are serialized so a repair can never interleave with another turn.
type Controller struct {
	moderator Moderator
	generator ReplyGenerator
	store     Store
	metrics   *metrics.GateMetrics
	logger    *logging.Logger
	locks     *sessionLocks
}

func NewController(moderator Moderator, generator ReplyGenerator, store Store, gm *metrics.GateMetrics, logger *logging.Logger) *Controller {
	if moderator == nil {
		panic("conversation: moderator cannot be nil")
	}
	if generator == nil {
		panic("conversation: generator cannot be nil")
	}
	if store == nil {
		panic("conversation: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		moderator: moderator,
		generator: generator,
		store:     store,
		metrics:   gm,
		logger:    logger,
		locks:     newSessionLocks(),
	}
}

// HandleTurn processes one user message and always returns a displayable
// string: the model's reply, a refusal, or an error message. It never
// returns an error; every failure mode ends in a recorded terminal turn.
// At every exit the session history holds exactly one human turn and one
// assistant turn for this interaction, and the assistant turn's content
// equals the returned text.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, userText string) string {
	start := time.Now()
	c.locks.Lock(sessionID)
	defer c.locks.Unlock(sessionID)

	if d := c.moderator.Moderate(ctx, userText); !d.Allowed {
		reply := InputBlockedPrefix + d.Reason
		c.logger.Warn(LogMsgInputBlocked, "session_id", sessionID, "category", d.Category, "reason", d.Reason)
		c.append(ctx, sessionID,
			Turn{Role: RoleHuman, Content: userText},
			Turn{Role: RoleAssistant, Content: reply},
		)
		c.observe(TurnInputBlocked, start)
		return reply
	}
	c.logger.Info(LogMsgInputAccepted, "session_id", sessionID)

	reply, err := c.generator.Generate(ctx, sessionID, userText)
	if err != nil {
		c.logger.Error(LogMsgGenerationFailed, "session_id", sessionID, "error", err)
		c.repairFailedTurn(ctx, sessionID, userText)
		c.append(ctx, sessionID, Turn{Role: RoleAssistant, Content: GenerationErrorReply})
		c.observe(TurnError, start)
		return GenerationErrorReply
	}

	if d := c.moderator.Moderate(ctx, reply); !d.Allowed {
		refusal := OutputBlockedPrefix + d.Reason
		c.logger.Warn(LogMsgOutputBlocked, "session_id", sessionID, "category", d.Category, "reason", d.Reason)
		// The raw, policy-violating reply is already in the history;
		// replace it with the refusal the user actually sees.
		c.retract(ctx, sessionID)
		c.append(ctx, sessionID, Turn{Role: RoleAssistant, Content: refusal})
		c.observe(TurnOutputBlocked, start)
		return refusal
	}

	c.logger.Info(LogMsgOutputAccepted, "session_id", sessionID)
	c.observe(TurnDelivered, start)
	return reply
}

func (c *Controller) append(ctx context.Context, sessionID string, turns ...Turn) {
	if err := c.store.Append(ctx, sessionID, turns...); err != nil {
		c.logger.Error("failed to record turns", "session_id", sessionID, "error", err)
	}
}

// repairFailedTurn puts the history back into a state where appending
// the error reply yields one human turn and one assistant turn for this
// interaction. The generator records the human turn before calling the
// model, so the history ends in one of three states:
//   - this interaction's human turn: nothing to repair;
//   - this interaction's human turn followed by a partially recorded
//     reply: retract the reply, it was never moderated;
//   - anything else: the store failed before the human turn was
//     recorded, so record it now. An assistant tail here belongs to the
//     previous interaction and must not be retracted.
func (c *Controller) repairFailedTurn(ctx context.Context, sessionID, userText string) {
	turns, err := c.store.Messages(ctx, sessionID)
	if err != nil {
		// The same outage that failed the generator's history load; the
		// human turn cannot have been recorded.
		c.logger.Error("failed to load history for repair", "session_id", sessionID, "error", err)
		c.append(ctx, sessionID, Turn{Role: RoleHuman, Content: userText})
		return
	}
	n := len(turns)
	if n > 0 && turns[n-1].Role == RoleHuman && turns[n-1].Content == userText {
		return
	}
	if n > 1 && turns[n-1].Role == RoleAssistant &&
		turns[n-2].Role == RoleHuman && turns[n-2].Content == userText {
		c.retract(ctx, sessionID)
		return
	}
	c.append(ctx, sessionID, Turn{Role: RoleHuman, Content: userText})
}

func (c *Controller) retract(ctx context.Context, sessionID string) {
	if _, err := c.store.RetractLastAssistantTurn(ctx, sessionID); err != nil {
		c.logger.Error("failed to retract assistant turn", "session_id", sessionID, "error", err)
	}
}

func (c *Controller) observe(outcome string, start time.Time) {
	c.metrics.ObserveTurn(outcome, time.Since(start).Seconds())
}
