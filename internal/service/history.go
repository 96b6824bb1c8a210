package service

import (
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type HistoryService struct {
	users   *store.UserStore
	terms   *store.TermStore
	history *store.HistoryStore
}

func NewHistoryService(users *store.UserStore, terms *store.TermStore, history *store.HistoryStore) *HistoryService {
	return &HistoryService{users: users, terms: terms, history: history}
}

// Get 返回病人的完整病史，按读者语言渲染术语。
func (s *HistoryService) Get(actor models.User, patientID uint) ([]store.ConditionView, error) {
	if _, err := s.requirePatient(patientID); err != nil {
		return nil, err
	}
	return s.history.GetHistory(patientID, actor.LanguageCode)
}

// AddCondition 医生为病人登记病症。
func (s *HistoryService) AddCondition(actor models.User, patientID uint, data store.CreateCondition) (uint, error) {
	if actor.Role != models.RoleDoctor {
		return 0, ErrForbidden
	}
	if _, err := s.requirePatient(patientID); err != nil {
		return 0, err
	}
	if err := s.requireTerm(data.MedicalTermID); err != nil {
		return 0, err
	}
	if data.Status == "" {
		return 0, ErrMissingItems
	}
	dup, err := s.history.HasCondition(patientID, data.MedicalTermID)
	if err != nil {
		return 0, err
	}
	if dup {
		return 0, ErrConflict
	}
	return s.history.AddCondition(patientID, data)
}

// DeleteCondition 医生撤销病症登记，其下处方一并删除。
func (s *HistoryService) DeleteCondition(actor models.User, conditionID uint) error {
	if actor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	if _, err := s.history.GetCondition(conditionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	return s.history.DeleteCondition(conditionID)
}

// AddPrescription 医生在某病症下开具处方。
func (s *HistoryService) AddPrescription(actor models.User, conditionID uint, data store.CreatePrescription) (uint, error) {
	if actor.Role != models.RoleDoctor {
		return 0, ErrForbidden
	}
	if _, err := s.history.GetCondition(conditionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if err := s.requireTerm(data.MedicalTermID); err != nil {
		return 0, err
	}
	return s.history.AddPrescription(conditionID, data)
}

// DeletePrescription 医生撤销处方。
func (s *HistoryService) DeletePrescription(actor models.User, prescriptionID uint) error {
	if actor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	if _, err := s.history.GetPrescription(prescriptionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	return s.history.DeletePrescription(prescriptionID)
}

func (s *HistoryService) requirePatient(patientID uint) (*models.User, error) {
	user, err := s.users.Get(patientID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Role != models.RolePatient {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *HistoryService) requireTerm(termID uint) error {
	ok, err := s.terms.Exists(termID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
