package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvanhorn/chatgate/pkg/logging"
)

// stubLLMClient returns a canned reply or error and records requests.
type stubLLMClient struct {
	reply    string
	err      error
	requests []LLMRequest
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.reply}, nil
}

func TestGeneratorRecordsBothTurnsOnSuccess(t *testing.T) {
	client := &stubLLMClient{reply: "It's sunny."}
	store := NewMemoryStore(10)
	gen := NewGenerator(client, store, "gpt-4o-mini", time.Second, logging.Default())

	reply, err := gen.Generate(context.Background(), "s1", "What's the weather like?")
	require.NoError(t, err)
	assert.Equal(t, "It's sunny.", reply)

	turns, err := store.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: RoleHuman, Content: "What's the weather like?"}, turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "It's sunny."}, turns[1])
}

func TestGeneratorSendsHistoryAsContext(t *testing.T) {
	client := &stubLLMClient{reply: "Fine by me."}
	store := NewMemoryStore(10)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1",
		Turn{Role: RoleHuman, Content: "hi"},
		Turn{Role: RoleAssistant, Content: "hello"},
	))

	gen := NewGenerator(client, store, "gpt-4o-mini", time.Second, logging.Default())
	_, err := gen.Generate(ctx, "s1", "book it")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, chatSystemPrompt, req.System)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, ChatRoleUser, req.Messages[0].Role)
	assert.Equal(t, ChatRoleAssistant, req.Messages[1].Role)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "book it"}, req.Messages[2])
}

func TestGeneratorFailureLeavesHumanTurnOnly(t *testing.T) {
	client := &stubLLMClient{err: errors.New("model unavailable")}
	store := NewMemoryStore(10)
	gen := NewGenerator(client, store, "gpt-4o-mini", time.Second, logging.Default())

	_, err := gen.Generate(context.Background(), "s1", "hello?")
	require.Error(t, err)

	turns, serr := store.Messages(context.Background(), "s1")
	require.NoError(t, serr)
	require.Len(t, turns, 1)
	assert.Equal(t, RoleHuman, turns[0].Role)
}

func TestGeneratorEmptyReplyIsAnError(t *testing.T) {
	client := &stubLLMClient{reply: "   "}
	store := NewMemoryStore(10)
	gen := NewGenerator(client, store, "gpt-4o-mini", time.Second, logging.Default())

	_, err := gen.Generate(context.Background(), "s1", "hello?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty reply")
}
