package service

import (
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/chatbot"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type RoomService struct {
	rooms *store.RoomStore
	users *store.UserStore
	bots  *chatbot.Pool
}

func NewRoomService(rooms *store.RoomStore, users *store.UserStore, bots *chatbot.Pool) *RoomService {
	return &RoomService{rooms: rooms, users: users, bots: bots}
}

// Create 病人开新房间，医生无权创建。
func (s *RoomService) Create(actor models.User) (*store.RoomView, error) {
	if actor.Role != models.RolePatient {
		return nil, ErrForbidden
	}
	room, err := s.rooms.Create(actor.ID)
	if err != nil {
		return nil, err
	}
	return s.rooms.GetView(room.ID)
}

// Get 返回房间视图，仅成员可见。
func (s *RoomService) Get(actor models.User, roomID uint) (*store.RoomView, error) {
	member, err := s.rooms.IsMember(&actor, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrForbidden
	}
	view, err := s.rooms.GetView(roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

// ListFor 返回用户可见的全部房间。
func (s *RoomService) ListFor(actor models.User) ([]store.RoomView, error) {
	return s.rooms.RoomsFor(&actor)
}

// Delete 房主销毁房间，同时撤掉房间的问诊机器人。
func (s *RoomService) Delete(actor models.User, roomID uint) error {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	if room.PatientID != actor.ID {
		return ErrForbidden
	}
	if err := s.rooms.Delete(roomID); err != nil {
		return err
	}
	s.bots.Evict(roomID)
	return nil
}

// AddDoctor 医生进入房间。首位医生进入意味着问诊交接，机器人即刻撤出。
// 重复进入返回 ErrConflict。
func (s *RoomService) AddDoctor(doctorID, roomID uint) error {
	doctor, err := s.users.Get(doctorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	if doctor.Role != models.RoleDoctor {
		return ErrForbidden
	}
	if _, err := s.rooms.Get(roomID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	added, err := s.rooms.AddDoctor(doctorID, roomID)
	if err != nil {
		return err
	}
	if !added {
		return ErrConflict
	}
	s.bots.Evict(roomID)
	return nil
}

// RemoveDoctor 医生退出房间，无启用成员记录时返回 ErrNotFound。
func (s *RoomService) RemoveDoctor(doctorID, roomID uint) error {
	removed, err := s.rooms.RemoveDoctor(doctorID, roomID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
