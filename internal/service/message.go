package service

import (
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type MessageService struct {
	rooms    *store.RoomStore
	messages *store.MessageStore
	terms    *store.TermStore
}

func NewMessageService(rooms *store.RoomStore, messages *store.MessageStore, terms *store.TermStore) *MessageService {
	return &MessageService{rooms: rooms, messages: messages, terms: terms}
}

// List 按读者语言分页渲染房间消息，仅成员可读。
func (s *MessageService) List(actor models.User, roomID uint, page, limit int) ([]store.RenderedMessage, error) {
	if err := s.requireMember(actor, roomID); err != nil {
		return nil, err
	}
	return s.messages.ListRendered(roomID, page, limit, actor.LanguageCode)
}

// Get 渲染单条消息。
func (s *MessageService) Get(actor models.User, roomID, msgID uint) (*store.RenderedMessage, error) {
	if err := s.requireMember(actor, roomID); err != nil {
		return nil, err
	}
	rendered, err := s.messages.Render(roomID, msgID, actor.LanguageCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rendered, nil
}

// LinkTerm 人工把消息关联到一个术语概念，医生专用的纠错入口。
func (s *MessageService) LinkTerm(actor models.User, roomID, msgID, termID uint) error {
	if actor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	if err := s.requireMember(actor, roomID); err != nil {
		return err
	}
	if _, err := s.messages.Render(roomID, msgID, actor.LanguageCode); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	ok, err := s.terms.Exists(termID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.messages.LinkTerm(msgID, termID, nil, nil)
}

// UnlinkTerm 解除消息与术语的关联。
func (s *MessageService) UnlinkTerm(actor models.User, roomID, msgID, termID uint) error {
	if actor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	if err := s.requireMember(actor, roomID); err != nil {
		return err
	}
	return s.messages.UnlinkTerm(msgID, termID)
}

func (s *MessageService) requireMember(actor models.User, roomID uint) error {
	if _, err := s.rooms.Get(roomID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	member, err := s.rooms.IsMember(&actor, roomID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}
	return nil
}
