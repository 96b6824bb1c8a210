package store

import (
	"time"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"gorm.io/gorm"
)

type HistoryStore struct {
	db    *gorm.DB
	terms *TermStore
}

func NewHistoryStore(db *gorm.DB, terms *TermStore) *HistoryStore {
	return &HistoryStore{db: db, terms: terms}
}

// PrescriptionView 处方视图，术语信息按读者语言渲染。
type PrescriptionView struct {
	UserPrescriptionID uint      `json:"userPrescriptionId"`
	MedicalTerm        TermInfo  `json:"medicalTerm"`
	Dosage             string    `json:"dosage"`
	Frequency          string    `json:"frequency"`
	PrescriptionDate   time.Time `json:"prescriptionDate"`
}

// ConditionView 病症视图，含其下全部处方。
type ConditionView struct {
	UserConditionID uint               `json:"userConditionId"`
	MedicalTerm     TermInfo           `json:"medicalTerm"`
	Status          string             `json:"status"`
	DiagnosisDate   time.Time          `json:"diagnosisDate"`
	ResolutionDate  *time.Time         `json:"resolutionDate,omitempty"`
	Prescriptions   []PrescriptionView `json:"prescriptions"`
}

type CreateCondition struct {
	MedicalTermID  uint
	Status         string
	DiagnosisDate  time.Time
	ResolutionDate *time.Time
}

type CreatePrescription struct {
	MedicalTermID uint
	Dosage        string
	Frequency     string
	PrescribedAt  time.Time
}

// HasCondition 判断病人是否已登记该术语对应的病症。
func (s *HistoryStore) HasCondition(patientID, termID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.PatientCondition{}).
		Where("patient_id = ? AND medical_term_id = ?", patientID, termID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *HistoryStore) AddCondition(patientID uint, data CreateCondition) (uint, error) {
	row := models.PatientCondition{
		PatientID:      patientID,
		MedicalTermID:  data.MedicalTermID,
		Status:         data.Status,
		DiagnosisDate:  data.DiagnosisDate,
		ResolutionDate: data.ResolutionDate,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *HistoryStore) GetCondition(conditionID uint) (*models.PatientCondition, error) {
	var row models.PatientCondition
	if err := s.db.First(&row, conditionID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *HistoryStore) UpdateCondition(conditionID uint, status *string, resolution *time.Time) error {
	var row models.PatientCondition
	if err := s.db.First(&row, conditionID).Error; err != nil {
		return err
	}
	if status != nil {
		row.Status = *status
	}
	if resolution != nil {
		row.ResolutionDate = resolution
	}
	return s.db.Save(&row).Error
}

// DeleteCondition 删除病症及其全部处方。
func (s *HistoryStore) DeleteCondition(conditionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("condition_id = ?", conditionID).Delete(&models.PatientPrescription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PatientCondition{}, conditionID).Error
	})
}

func (s *HistoryStore) AddPrescription(conditionID uint, data CreatePrescription) (uint, error) {
	row := models.PatientPrescription{
		ConditionID:   conditionID,
		MedicalTermID: data.MedicalTermID,
		Dosage:        data.Dosage,
		Frequency:     data.Frequency,
		PrescribedAt:  data.PrescribedAt,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *HistoryStore) GetPrescription(prescriptionID uint) (*models.PatientPrescription, error) {
	var row models.PatientPrescription
	if err := s.db.First(&row, prescriptionID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *HistoryStore) DeletePrescription(prescriptionID uint) error {
	return s.db.Delete(&models.PatientPrescription{}, prescriptionID).Error
}

// GetHistory 返回病人的完整病史，术语按读者语言渲染。
func (s *HistoryStore) GetHistory(patientID uint, lang string) ([]ConditionView, error) {
	var conditions []models.PatientCondition
	err := s.db.Where("patient_id = ?", patientID).Order("diagnosis_date ASC").Find(&conditions).Error
	if err != nil {
		return nil, err
	}
	out := make([]ConditionView, 0, len(conditions))
	for _, cond := range conditions {
		info, err := s.terms.GetInfo(cond.MedicalTermID, lang)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		view := ConditionView{
			UserConditionID: cond.ID,
			MedicalTerm:     *info,
			Status:          cond.Status,
			DiagnosisDate:   cond.DiagnosisDate,
			ResolutionDate:  cond.ResolutionDate,
			Prescriptions:   []PrescriptionView{},
		}
		var prescriptions []models.PatientPrescription
		err = s.db.Where("condition_id = ?", cond.ID).Order("prescribed_at ASC").Find(&prescriptions).Error
		if err != nil {
			return nil, err
		}
		for _, p := range prescriptions {
			pinfo, err := s.terms.GetInfo(p.MedicalTermID, lang)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					continue
				}
				return nil, err
			}
			view.Prescriptions = append(view.Prescriptions, PrescriptionView{
				UserPrescriptionID: p.ID,
				MedicalTerm:        *pinfo,
				Dosage:             p.Dosage,
				Frequency:          p.Frequency,
				PrescriptionDate:   p.PrescribedAt,
			})
		}
		out = append(out, view)
	}
	return out, nil
}
