package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StreamChat posts a chat message and returns the live response body once
// the panel has answered with a 2xx status. The caller must close it.
// Cancelling ctx aborts the pending body read.
func (c *Client) StreamChat(ctx context.Context, chatReq ChatRequest) (io.ReadCloser, error) {
	if chatReq.Message == "" {
		return nil, errors.New("chat message is required")
	}

	req, err := c.newRequest(ctx, http.MethodPost, chatPath, chatReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening chat stream",
		"conversation_id", chatReq.ConversationID,
		"message_len", len(chatReq.Message),
	)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if err := checkStatus(req, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}
