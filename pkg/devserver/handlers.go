package devserver

import (
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/panelctl/pkg/panel"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleGetConfig returns the AI configuration. A server without a key
// reports an empty one, which clients treat as not configured.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(panel.AIConfig{
		BaseURL: c.BaseURL() + "/v1",
		Model:   s.config.Model,
		APIKey:  s.config.APIKey,
	})
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	return c.JSON(panel.ConversationList{Conversations: s.store.list()})
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	id, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid conversation id"})
	}

	conv, ok := s.store.get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}
	return c.JSON(conv)
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	id, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid conversation id"})
	}

	if !s.store.delete(id) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleChat records the user's message and streams the scripted reply.
func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.config.APIKey == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "AI is not configured"})
	}

	var req panel.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	script := scriptFor(message)
	if script.status != 0 {
		return c.Status(script.status).JSON(ErrorResponse{Error: script.errText})
	}

	convID := req.ConversationID
	if convID == 0 {
		convID = s.store.create(message)
	}
	if !s.store.appendMessage(convID, "user", message) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}

	s.logger.Debug("streaming scripted reply",
		"conversation_id", convID,
		"words", len(script.words),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// Same io.Pipe + SetBodyStream pairing as a streaming proxy: every
	// write blocks until fasthttp has flushed the previous chunk.
	pr, pw := io.Pipe()
	go s.streamReply(pw, convID, script)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func conversationID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err == nil && id <= 0 {
		err = strconv.ErrRange
	}
	return id, err
}
