package api

import (
	"bufio"
	"context"
	"log"
	"time"

	"ragchat/app/agent"
	"ragchat/retrieve"
	"ragchat/store"
	"ragchat/stream"
	"ragchat/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Retrieval depth and context budget per mode. Rich mode trades latency for
// a wider context window and calmer flush cadence.
const (
	lightTopK          = 3
	lightContextChars  = 1500
	richTopK           = 15
	richContextChars   = 4000
	persistGracePeriod = 5 * time.Second
)

type ChatHandler struct {
	retriever     *retrieve.Engine
	generator     agent.TokenSource
	conversations store.ConversationStore
	transport     stream.GenerationTransport
}

func NewChatHandler(retriever *retrieve.Engine, generator agent.TokenSource, conversations store.ConversationStore, transport stream.GenerationTransport) *ChatHandler {
	return &ChatHandler{
		retriever:     retriever,
		generator:     generator,
		conversations: conversations,
		transport:     transport,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	topK, contextChars, threshold := lightTopK, lightContextChars, stream.DefaultWordThreshold
	if params.Mode == "rich" {
		topK, contextChars, threshold = richTopK, richContextChars, stream.RichWordThreshold
	}

	var conversationID uuid.UUID
	var history []types.Turn
	if params.ConversationID != "" {
		id, err := uuid.Parse(params.ConversationID)
		if err != nil {
			return ErrInvalidID()
		}
		history, err = h.conversations.GetConversation(c.Context(), id)
		if err != nil {
			return ErrNotFound(params.ConversationID, "conversation")
		}
		conversationID = id
	}

	results, err := h.retriever.Retrieve(c.Context(), params.Question, topK)
	if err != nil {
		return err
	}

	ragContext := retrieve.BuildContext(results, contextChars)
	prompt := agent.BuildPrompt("", ragContext, params.Question, history)

	c.Set("Content-Type", h.transport.ContentType())
	c.Set("Cache-Control", "no-cache")

	// everything the stream closure needs is captured here; the fiber Ctx
	// must not be touched once the handler returns. The fasthttp request
	// context stays valid until the stream writer finishes, so generation
	// is parented on it and dies with the connection.
	generator := h.generator
	transport := h.transport
	conversations := h.conversations
	question := params.Question
	connCtx := c.Context()

	connCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(connCtx)
		defer cancel()

		coalescer := stream.NewCoalescer(w, transport, stream.WithThreshold(threshold))

		streamErr := generator.Stream(ctx, prompt, func(token string) error {
			if err := coalescer.Push(token); err != nil {
				// the client is gone; stop generating
				cancel()
				return err
			}
			return nil
		})

		if streamErr != nil {
			log.Printf("[CHAT] stream aborted: %s", streamErr)
			if err := coalescer.Abort(streamErr); err != nil {
				return
			}
			return
		}
		if err := coalescer.Close(); err != nil {
			return
		}

		if conversationID != uuid.Nil {
			persistCtx, persistCancel := context.WithTimeout(context.Background(), persistGracePeriod)
			defer persistCancel()
			turns := []types.Turn{
				{Role: types.RoleUser, Message: question},
				{Role: types.RoleAssistant, Message: coalescer.Total()},
			}
			if err := conversations.AppendTurns(persistCtx, conversationID, turns); err != nil {
				log.Printf("[CHAT] failed to persist conversation %s: %s", conversationID, err)
			}
		}
	}))

	return nil
}
