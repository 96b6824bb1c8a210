// Package store 是所有持久化访问的仓储层，基于 gorm + Postgres。
// 查询未命中时统一透传 gorm.ErrRecordNotFound，由上层映射成业务错误。
package store

import (
	"time"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// UserFull 是角色字段拍平后的完整用户视图，对应 API 的用户 JSON。
type UserFull struct {
	ID             uint       `json:"userId"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	LanguageCode   string     `json:"language"`
	Role           string     `json:"type"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Height         int        `json:"height,omitempty"`
	Weight         int        `json:"weight,omitempty"`
	Specialisation string     `json:"specialisation,omitempty"`
	Hospital       string     `json:"hospital,omitempty"`
}

type CreateUser struct {
	Email          string
	PasswordHash   string
	Name           string
	LanguageCode   string
	Role           string
	DateOfBirth    *time.Time
	Height         int
	Weight         int
	Specialisation string
	Hospital       string
}

type UpdateUser struct {
	Email          *string
	Name           *string
	LanguageCode   *string
	DateOfBirth    *time.Time
	Height         *int
	Weight         *int
	Specialisation *string
	Hospital       *string
}

func (s *UserStore) EmailExists(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建用户及其角色附加记录。
func (s *UserStore) Create(data CreateUser) (uint, error) {
	user := models.User{
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Name:         data.Name,
		LanguageCode: data.LanguageCode,
		Role:         data.Role,
		DateOfBirth:  data.DateOfBirth,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch data.Role {
		case models.RolePatient:
			return tx.Create(&models.PatientProfile{UserID: user.ID, Height: data.Height, Weight: data.Weight}).Error
		case models.RoleDoctor:
			return tx.Create(&models.DoctorProfile{UserID: user.ID, Specialisation: data.Specialisation, Hospital: data.Hospital}).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *UserStore) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetFull 返回拍平了角色附加字段的用户视图。
func (s *UserStore) GetFull(id uint) (*UserFull, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	full := UserFull{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		LanguageCode: user.LanguageCode,
		Role:         user.Role,
		DateOfBirth:  user.DateOfBirth,
	}
	switch user.Role {
	case models.RolePatient:
		var p models.PatientProfile
		if err := s.db.Where("user_id = ?", user.ID).First(&p).Error; err == nil {
			full.Height = p.Height
			full.Weight = p.Weight
		}
	case models.RoleDoctor:
		var d models.DoctorProfile
		if err := s.db.Where("user_id = ?", user.ID).First(&d).Error; err == nil {
			full.Specialisation = d.Specialisation
			full.Hospital = d.Hospital
		}
	}
	return &full, nil
}

// Update 更新基础字段和对应角色的附加字段，nil 字段不动。角色本身不可修改。
func (s *UserStore) Update(id uint, data UpdateUser) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if data.Email != nil {
			user.Email = *data.Email
		}
		if data.Name != nil {
			user.Name = *data.Name
		}
		if data.LanguageCode != nil {
			user.LanguageCode = *data.LanguageCode
		}
		if data.DateOfBirth != nil {
			user.DateOfBirth = data.DateOfBirth
		}
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		switch user.Role {
		case models.RolePatient:
			if data.Height == nil && data.Weight == nil {
				return nil
			}
			var p models.PatientProfile
			if err := tx.Where("user_id = ?", id).First(&p).Error; err != nil {
				return err
			}
			if data.Height != nil {
				p.Height = *data.Height
			}
			if data.Weight != nil {
				p.Weight = *data.Weight
			}
			return tx.Save(&p).Error
		case models.RoleDoctor:
			if data.Specialisation == nil && data.Hospital == nil {
				return nil
			}
			var d models.DoctorProfile
			if err := tx.Where("user_id = ?", id).First(&d).Error; err != nil {
				return err
			}
			if data.Specialisation != nil {
				d.Specialisation = *data.Specialisation
			}
			if data.Hospital != nil {
				d.Hospital = *data.Hospital
			}
			return tx.Save(&d).Error
		}
		return nil
	})
}

func (s *UserStore) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.PatientProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.DoctorProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}
