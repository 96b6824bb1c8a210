package store

import (
	"time"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"gorm.io/gorm"
)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// TermInfo 是某语言下的术语释义。
type TermInfo struct {
	MedicalTermID    uint     `json:"medicalTermId"`
	MedicalTermType  string   `json:"medicalTermType"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	MedicalTermLinks []string `json:"medicalTermLinks"`
}

// RenderedTerm 是消息正文中被识别出的一个术语及其释义。
type RenderedTerm struct {
	Synonym  string   `json:"synonym"`
	TermInfo TermInfo `json:"termInfo"`
}

type MessageMetadata struct {
	Translation  string         `json:"translation"`
	MedicalTerms []RenderedTerm `json:"medicalTerms"`
}

type MessageContent struct {
	Text     string          `json:"text"`
	Metadata MessageMetadata `json:"metadata"`
}

// RenderedMessage 是面向某个读者语言渲染后的完整消息。
type RenderedMessage struct {
	MessageID    uint           `json:"messageId"`
	RoomID       uint           `json:"roomId"`
	SenderUserID uint           `json:"senderUserId"`
	Timestamp    time.Time      `json:"timestamp"`
	Content      MessageContent `json:"content"`
}

// SaveRaw 持久化一条原始消息并返回编号。
func (s *MessageStore) SaveRaw(senderID, roomID uint, text string, sentAt time.Time) (uint, error) {
	msg := models.Message{RoomID: roomID, SenderID: senderID, Text: text, SentAt: sentAt}
	if err := s.db.Create(&msg).Error; err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// GetTranslation 查询翻译缓存。
func (s *MessageStore) GetTranslation(msgID uint, lang string) (string, bool, error) {
	var row models.MessageTranslationCache
	err := s.db.Where("message_id = ? AND language_code = ?", msgID, lang).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.TranslatedText, true, nil
}

// SaveTranslation 写入翻译缓存，已有同键记录时保留旧值。
func (s *MessageStore) SaveTranslation(msgID uint, lang, translation string) error {
	row := models.MessageTranslationCache{MessageID: msgID, LanguageCode: lang}
	return s.db.
		Where("message_id = ? AND language_code = ?", msgID, lang).
		Attrs(models.MessageTranslationCache{TranslatedText: translation}).
		FirstOrCreate(&row).Error
}

// LinkTerm 记录消息与术语的关联。同一 (消息, 术语) 只保留一行，
// 原文侧与译文侧的同义词分别补齐，已有值不覆盖。
func (s *MessageStore) LinkTerm(msgID, termID uint, originalSynID, translatedSynID *uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var link models.MessageTermCache
		err := tx.Where("message_id = ? AND medical_term_id = ?", msgID, termID).First(&link).Error
		if err == gorm.ErrRecordNotFound {
			link = models.MessageTermCache{
				MessageID:           msgID,
				MedicalTermID:       termID,
				OriginalSynonymID:   originalSynID,
				TranslatedSynonymID: translatedSynID,
			}
			return tx.Create(&link).Error
		}
		if err != nil {
			return err
		}
		changed := false
		if link.OriginalSynonymID == nil && originalSynID != nil {
			link.OriginalSynonymID = originalSynID
			changed = true
		}
		if link.TranslatedSynonymID == nil && translatedSynID != nil {
			link.TranslatedSynonymID = translatedSynID
			changed = true
		}
		if !changed {
			return nil
		}
		return tx.Save(&link).Error
	})
}

// UnlinkTerm 删除消息与术语的关联。
func (s *MessageStore) UnlinkTerm(msgID, termID uint) error {
	return s.db.Where("message_id = ? AND medical_term_id = ?", msgID, termID).
		Delete(&models.MessageTermCache{}).Error
}

// Render 以读者语言渲染一条消息。译文未缓存时回退原文，
// 术语释义缺读者语言时回退任一已有语言。
func (s *MessageStore) Render(roomID, msgID uint, lang string) (*RenderedMessage, error) {
	var msg models.Message
	err := s.db.Where("id = ? AND room_id = ?", msgID, roomID).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return s.render(&msg, lang)
}

// ListRendered 按时间升序分页渲染房间消息。page 从 1 开始。
func (s *MessageStore) ListRendered(roomID uint, page, limit int, lang string) ([]RenderedMessage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	var msgs []models.Message
	err := s.db.Where("room_id = ?", roomID).
		Order("sent_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	out := make([]RenderedMessage, 0, len(msgs))
	for i := range msgs {
		rm, err := s.render(&msgs[i], lang)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, nil
}

// preferredSynonymID 返回渲染时展示的同义词：译文侧优先，回退原文侧。
func preferredSynonymID(link *models.MessageTermCache) *uint {
	if link.TranslatedSynonymID != nil {
		return link.TranslatedSynonymID
	}
	return link.OriginalSynonymID
}

func (s *MessageStore) render(msg *models.Message, lang string) (*RenderedMessage, error) {
	translation := msg.Text
	if t, ok, err := s.GetTranslation(msg.ID, lang); err != nil {
		return nil, err
	} else if ok {
		translation = t
	}

	var links []models.MessageTermCache
	if err := s.db.Where("message_id = ?", msg.ID).Find(&links).Error; err != nil {
		return nil, err
	}
	terms := make([]RenderedTerm, 0, len(links))
	for _, link := range links {
		info, err := s.termInfo(link.MedicalTermID, lang)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		synID := preferredSynonymID(&link)
		synonym := info.Name
		if synID != nil {
			var syn models.MedicalTermSynonym
			if err := s.db.First(&syn, *synID).Error; err == nil {
				synonym = syn.Synonym
			}
		}
		terms = append(terms, RenderedTerm{Synonym: synonym, TermInfo: *info})
	}

	return &RenderedMessage{
		MessageID:    msg.ID,
		RoomID:       msg.RoomID,
		SenderUserID: msg.SenderID,
		Timestamp:    msg.SentAt,
		Content: MessageContent{
			Text: msg.Text,
			Metadata: MessageMetadata{
				Translation:  translation,
				MedicalTerms: terms,
			},
		},
	}, nil
}

// termInfo 取术语在指定语言的释义，缺失时回退任一语言。
func (s *MessageStore) termInfo(termID uint, lang string) (*TermInfo, error) {
	var term models.MedicalTerm
	if err := s.db.First(&term, termID).Error; err != nil {
		return nil, err
	}
	var info models.MedicalTermInfo
	err := s.db.Where("medical_term_id = ? AND language_code = ?", termID, lang).First(&info).Error
	if err == gorm.ErrRecordNotFound {
		err = s.db.Where("medical_term_id = ?", termID).First(&info).Error
	}
	if err != nil {
		return nil, err
	}
	links := []string{}
	if info.URL != "" {
		links = append(links, info.URL)
	}
	return &TermInfo{
		MedicalTermID:    term.ID,
		MedicalTermType:  term.TermType,
		Name:             info.Name,
		Description:      info.Description,
		MedicalTermLinks: links,
	}, nil
}
