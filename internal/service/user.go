package service

import (
	"time"

	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/config"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type UserService struct {
	cfg   config.Config
	db    *gorm.DB
	users *store.UserStore
}

func NewUserService(cfg config.Config, db *gorm.DB, users *store.UserStore) *UserService {
	return &UserService{cfg: cfg, db: db, users: users}
}

// TokenPair 登录或刷新后下发的令牌对。
type TokenPair struct {
	AccessToken    string    `json:"accessToken"`
	RefreshToken   string    `json:"refreshToken"`
	ExpirationTime time.Time `json:"expirationTime"`
}

// Register 注册用户。必填字段缺失返回 ErrMissingItems，邮箱占用返回 ErrConflict。
func (s *UserService) Register(data store.CreateUser, password string) (*store.UserFull, error) {
	if data.Email == "" || password == "" || data.Name == "" || data.LanguageCode == "" {
		return nil, ErrMissingItems
	}
	switch data.Role {
	case models.RolePatient:
		if data.DateOfBirth == nil {
			return nil, ErrMissingItems
		}
	case models.RoleDoctor:
		if data.Specialisation == "" || data.Hospital == "" {
			return nil, ErrMissingItems
		}
	default:
		return nil, ErrMissingItems
	}
	taken, err := s.users.EmailExists(data.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	data.PasswordHash = hash
	id, err := s.users.Create(data)
	if err != nil {
		return nil, err
	}
	return s.users.GetFull(id)
}

// Login 校验凭据并签发令牌对。凭据错误一律返回 ErrUnauthorized。
func (s *UserService) Login(email, password string) (*TokenPair, *store.UserFull, error) {
	if email == "" || password == "" {
		return nil, nil, ErrMissingItems
	}
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, nil, ErrUnauthorized
	}
	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	full, err := s.users.GetFull(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, full, nil
}

// Refresh 用有效的刷新令牌换新的令牌对，旧令牌随即作废。
func (s *UserService) Refresh(refreshToken string) (*TokenPair, error) {
	rt, err := auth.ValidateRefreshToken(s.db, refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if err := auth.RevokeRefreshToken(s.db, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(rt.UserID)
}

func (s *UserService) issueTokens(userID uint) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(userID, s.cfg.JWTSecret, s.cfg.AccessTokenTTLMinutes)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour)
	if err := auth.SaveRefreshToken(s.db, userID, refresh, expiresAt); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:    access,
		RefreshToken:   refresh,
		ExpirationTime: time.Now().Add(time.Duration(s.cfg.AccessTokenTTLMinutes) * time.Minute),
	}, nil
}

// Get 返回用户完整视图。
func (s *UserService) Get(id uint) (*store.UserFull, error) {
	full, err := s.users.GetFull(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return full, nil
}

// Update 只允许本人修改。
func (s *UserService) Update(actor models.User, id uint, data store.UpdateUser) (*store.UserFull, error) {
	if actor.ID != id {
		return nil, ErrForbidden
	}
	if err := s.users.Update(id, data); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.users.GetFull(id)
}

// Delete 只允许本人注销。
func (s *UserService) Delete(actor models.User, id uint) error {
	if actor.ID != id {
		return ErrForbidden
	}
	if err := s.users.Delete(id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}
