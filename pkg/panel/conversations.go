package panel

import (
	"context"
	"net/http"
	"strconv"
)

// ListConversations returns the conversations known to the panel.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	req, err := c.newRequest(ctx, http.MethodGet, conversationsPath, nil)
	if err != nil {
		return nil, err
	}

	var list ConversationList
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	return list.Conversations, nil
}

// GetConversation returns one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, conversationPath(id), nil)
	if err != nil {
		return nil, err
	}

	conv := &Conversation{}
	if err := c.do(req, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversation deletes one conversation.
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, conversationPath(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// GetAIConfig returns the panel's AI configuration.
func (c *Client) GetAIConfig(ctx context.Context) (*AIConfig, error) {
	req, err := c.newRequest(ctx, http.MethodGet, configPath, nil)
	if err != nil {
		return nil, err
	}

	cfg := &AIConfig{}
	if err := c.do(req, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func conversationPath(id int64) string {
	return conversationsPath + "/" + strconv.FormatInt(id, 10)
}
