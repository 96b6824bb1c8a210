package store

import (
	"github.com/E011011101001/HEAL-backend/internal/models"
	"gorm.io/gorm"
)

type TermStore struct {
	db *gorm.DB
}

func NewTermStore(db *gorm.DB) *TermStore {
	return &TermStore{db: db}
}

type CreateTerm struct {
	TermType     string
	LanguageCode string
	Name         string
	Description  string
	URL          string
	Synonyms     []string
}

type UpdateTerm struct {
	TermType    *string
	Name        *string
	Description *string
	URL         *string
}

// FindSynonym 按 (语言, 文本) 精确查找同义词。未命中返回 (nil, nil)。
func (s *TermStore) FindSynonym(lang, text string) (*models.MedicalTermSynonym, error) {
	var syn models.MedicalTermSynonym
	err := s.db.Where("language_code = ? AND synonym = ?", lang, text).First(&syn).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &syn, nil
}

// CreateConcept 在一个事务里创建概念、所属语言的释义及同义词，返回概念编号。
func (s *TermStore) CreateConcept(data CreateTerm) (uint, error) {
	term := models.MedicalTerm{TermType: data.TermType}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&term).Error; err != nil {
			return err
		}
		info := models.MedicalTermInfo{
			MedicalTermID: term.ID,
			LanguageCode:  data.LanguageCode,
			Name:          data.Name,
			Description:   data.Description,
			URL:           data.URL,
		}
		if err := tx.Create(&info).Error; err != nil {
			return err
		}
		for _, syn := range data.Synonyms {
			row := models.MedicalTermSynonym{
				MedicalTermID: term.ID,
				LanguageCode:  data.LanguageCode,
				Synonym:       syn,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return term.ID, nil
}

// SynonymStrings 返回概念在某语言下已有的全部同义词文本。
func (s *TermStore) SynonymStrings(termID uint, lang string) ([]string, error) {
	var out []string
	err := s.db.Model(&models.MedicalTermSynonym{}).
		Where("medical_term_id = ? AND language_code = ?", termID, lang).
		Pluck("synonym", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddSynonyms 追加同义词，跳过该语言下已被任何概念占用的文本。
func (s *TermStore) AddSynonyms(termID uint, lang string, synonyms []string) error {
	for _, text := range synonyms {
		existing, err := s.FindSynonym(lang, text)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		row := models.MedicalTermSynonym{MedicalTermID: termID, LanguageCode: lang, Synonym: text}
		if err := s.db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetInfo 返回术语在指定语言的释义，缺失时回退任一语言。
func (s *TermStore) GetInfo(termID uint, lang string) (*TermInfo, error) {
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

// List 返回全部术语在指定语言下的释义视图。
func (s *TermStore) List(lang string) ([]TermInfo, error) {
	var terms []models.MedicalTerm
	if err := s.db.Find(&terms).Error; err != nil {
		return nil, err
	}
	out := make([]TermInfo, 0, len(terms))
	for _, t := range terms {
		info, err := s.GetInfo(t.ID, lang)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

// Update 更新概念类型与指定语言的释义，该语言无释义时新建。
func (s *TermStore) Update(termID uint, lang string, data UpdateTerm) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var term models.MedicalTerm
		if err := tx.First(&term, termID).Error; err != nil {
			return err
		}
		if data.TermType != nil {
			term.TermType = *data.TermType
			if err := tx.Save(&term).Error; err != nil {
				return err
			}
		}
		if data.Name == nil && data.Description == nil && data.URL == nil {
			return nil
		}
		var info models.MedicalTermInfo
		err := tx.Where("medical_term_id = ? AND language_code = ?", termID, lang).First(&info).Error
		if err == gorm.ErrRecordNotFound {
			info = models.MedicalTermInfo{MedicalTermID: termID, LanguageCode: lang}
			err = nil
		}
		if err != nil {
			return err
		}
		if data.Name != nil {
			info.Name = *data.Name
		}
		if data.Description != nil {
			info.Description = *data.Description
		}
		if data.URL != nil {
			info.URL = *data.URL
		}
		return tx.Save(&info).Error
	})
}

// Delete 删除概念及其全部释义、同义词和消息关联。
func (s *TermStore) Delete(termID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medical_term_id = ?", termID).Delete(&models.MedicalTermInfo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("medical_term_id = ?", termID).Delete(&models.MedicalTermSynonym{}).Error; err != nil {
			return err
		}
		if err := tx.Where("medical_term_id = ?", termID).Delete(&models.MessageTermCache{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MedicalTerm{}, termID).Error
	})
}

func (s *TermStore) Exists(termID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&models.MedicalTerm{}).Where("id = ?", termID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
