package store

import (
	"time"

	"github.com/E011011101001/HEAL-backend/internal/models"
	"gorm.io/gorm"
)

type RoomStore struct {
	db *gorm.DB
}

func NewRoomStore(db *gorm.DB) *RoomStore {
	return &RoomStore{db: db}
}

// RoomView 是带参与者列表的房间视图。
type RoomView struct {
	RoomID       uint      `json:"roomId"`
	PatientID    uint      `json:"patientId"`
	CreationTime time.Time `json:"creationTime"`
	DoctorIDs    []uint    `json:"doctorIds"`
}

func (s *RoomStore) Create(patientID uint) (*models.Room, error) {
	room := models.Room{PatientID: patientID}
	if err := s.db.Create(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomStore) Get(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetView 返回房间及当前启用的医生编号，按加入时间升序。
func (s *RoomStore) GetView(roomID uint) (*RoomView, error) {
	room, err := s.Get(roomID)
	if err != nil {
		return nil, err
	}
	ids, err := s.ActiveDoctorIDs(roomID)
	if err != nil {
		return nil, err
	}
	return &RoomView{
		RoomID:       room.ID,
		PatientID:    room.PatientID,
		CreationTime: room.CreatedAt,
		DoctorIDs:    ids,
	}, nil
}

func (s *RoomStore) Delete(roomID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.DoctorInRoom{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{}, roomID).Error
	})
}

// AddDoctor 将医生加入房间。已有启用记录时返回 false。
func (s *RoomStore) AddDoctor(doctorID, roomID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.DoctorInRoom{}).
		Where("doctor_id = ? AND room_id = ? AND enabled = ?", doctorID, roomID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	dir := models.DoctorInRoom{DoctorID: doctorID, RoomID: roomID, JoinedAt: time.Now(), Enabled: true}
	if err := s.db.Create(&dir).Error; err != nil {
		return false, err
	}
	return true, nil
}

// RemoveDoctor 停用医生的房间成员关系，保留历史记录。无启用记录时返回 false。
func (s *RoomStore) RemoveDoctor(doctorID, roomID uint) (bool, error) {
	result := s.db.Model(&models.DoctorInRoom{}).
		Where("doctor_id = ? AND room_id = ? AND enabled = ?", doctorID, roomID, true).
		Update("enabled", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ActiveDoctorIDs 返回房间内启用的医生编号，按加入时间升序，末位即最近加入者。
func (s *RoomStore) ActiveDoctorIDs(roomID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.DoctorInRoom{}).
		Where("room_id = ? AND enabled = ?", roomID, true).
		Order("joined_at ASC").
		Pluck("doctor_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RoomsFor 按角色返回用户可见的房间：患者为自己的房间，医生为有过成员关系的房间。
func (s *RoomStore) RoomsFor(user *models.User) ([]RoomView, error) {
	var rooms []models.Room
	switch user.Role {
	case models.RolePatient:
		if err := s.db.Where("patient_id = ?", user.ID).Find(&rooms).Error; err != nil {
			return nil, err
		}
	case models.RoleDoctor:
		err := s.db.
			Joins("JOIN doctor_in_rooms ON doctor_in_rooms.room_id = rooms.id").
			Where("doctor_in_rooms.doctor_id = ?", user.ID).
			Distinct().
			Find(&rooms).Error
		if err != nil {
			return nil, err
		}
	}
	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		ids, err := s.ActiveDoctorIDs(r.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, RoomView{
			RoomID:       r.ID,
			PatientID:    r.PatientID,
			CreationTime: r.CreatedAt,
			DoctorIDs:    ids,
		})
	}
	return views, nil
}

// IsMember 判断用户是否可进入房间：患者须为房主，医生须有过成员关系。
func (s *RoomStore) IsMember(user *models.User, roomID uint) (bool, error) {
	room, err := s.Get(roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	switch user.Role {
	case models.RolePatient:
		return room.PatientID == user.ID, nil
	case models.RoleDoctor:
		var count int64
		err := s.db.Model(&models.DoctorInRoom{}).
			Where("doctor_id = ? AND room_id = ?", user.ID, roomID).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count > 0, nil
	}
	return false, nil
}
