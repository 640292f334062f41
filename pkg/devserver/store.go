package devserver

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/utils"
)

const titleLength = 40

// store keeps conversations in memory, newest first on listing.
type store struct {
	mu     sync.Mutex
	nextID int64
	convs  map[int64]*panel.Conversation
	now    func() time.Time
}

func newStore() *store {
	return &store{
		nextID: 1,
		convs:  make(map[int64]*panel.Conversation),
		now:    time.Now,
	}
}

// create starts a conversation titled after its first message.
func (s *store) create(firstMessage string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.convs[id] = &panel.Conversation{
		ID:        id,
		Title:     utils.Truncate(firstMessage, titleLength),
		UpdatedAt: s.now().UTC(),
	}
	return id
}

// appendMessage records a message and reports whether the conversation exists.
func (s *store) appendMessage(id int64, role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return false
	}

	now := s.now().UTC()
	conv.Messages = append(conv.Messages, panel.ConversationMessage{
		ID:        int64(len(conv.Messages) + 1),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	conv.UpdatedAt = now
	return true
}

func (s *store) get(id int64) (*panel.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, false
	}

	out := *conv
	out.Messages = slices.Clone(conv.Messages)
	return &out, true
}

func (s *store) delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return false
	}
	delete(s.convs, id)
	return true
}

func (s *store) list() []panel.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]panel.ConversationSummary, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, panel.ConversationSummary{ID: c.ID, Title: c.Title, UpdatedAt: c.UpdatedAt})
	}
	slices.SortFunc(out, func(a, b panel.ConversationSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
