package service

import (
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type TermService struct {
	terms *store.TermStore
}

func NewTermService(terms *store.TermStore) *TermService {
	return &TermService{terms: terms}
}

// Create 新建术语概念。名称重复（同语言同义词已占用）返回 ErrConflict。
func (s *TermService) Create(data store.CreateTerm) (*store.TermInfo, error) {
	if data.Name == "" || data.LanguageCode == "" {
		return nil, ErrMissingItems
	}
	switch data.TermType {
	case models.TermCondition, models.TermPrescription, models.TermGeneral:
	case "":
		data.TermType = models.TermGeneral
	default:
		return nil, ErrMissingItems
	}
	existing, err := s.terms.FindSynonym(data.LanguageCode, data.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}
	if len(data.Synonyms) == 0 {
		data.Synonyms = []string{data.Name}
	}
	id, err := s.terms.CreateConcept(data)
	if err != nil {
		return nil, err
	}
	return s.terms.GetInfo(id, data.LanguageCode)
}

// Get 返回术语在读者语言下的释义。
func (s *TermService) Get(termID uint, lang string) (*store.TermInfo, error) {
	info, err := s.terms.GetInfo(termID, lang)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return info, nil
}

func (s *TermService) List(lang string) ([]store.TermInfo, error) {
	return s.terms.List(lang)
}

// Update 医生修订术语释义。
func (s *TermService) Update(actor models.User, termID uint, lang string, data store.UpdateTerm) (*store.TermInfo, error) {
	if actor.Role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	if err := s.terms.Update(termID, lang, data); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.terms.GetInfo(termID, lang)
}

// Delete 医生删除术语概念。
func (s *TermService) Delete(actor models.User, termID uint) error {
	if actor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	ok, err := s.terms.Exists(termID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.terms.Delete(termID)
}
