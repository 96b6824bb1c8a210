// Package server 组装 REST 接口：参数解析、鉴权和统一的错误体。
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/config"
	"github.com/E011011101001/HEAL-backend/internal/service"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

type Handlers struct {
	cfg      config.Config
	users    *service.UserService
	rooms    *service.RoomService
	messages *service.MessageService
	terms    *service.TermService
	history  *service.HistoryService
}

func NewHandlers(cfg config.Config, users *service.UserService, rooms *service.RoomService,
	messages *service.MessageService, terms *service.TermService, history *service.HistoryService) *Handlers {
	return &Handlers{cfg: cfg, users: users, rooms: rooms, messages: messages, terms: terms, history: history}
}

// fail 把业务错误映射成统一错误体 {"error": kind, "message": str}。
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingItems):
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "typeError", "message": "Missing items."})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorizedError", "message": "User invalid"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbiddenError", "message": "Action not allowed"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "instanceNotFoundError", "message": "Instance not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflictError", "message": "Conflicting resource"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internalServerError", "message": "Internal server error"})
	}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "typeError", "message": "Missing items."})
		return 0, false
	}
	return uint(v), true
}

type registerRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	Name           string     `json:"name"`
	Language       string     `json:"language"`
	Type           string     `json:"type"`
	DateOfBirth    *time.Time `json:"dateOfBirth"`
	Height         int        `json:"height"`
	Weight         int        `json:"weight"`
	Specialisation string     `json:"specialisation"`
	Hospital       string     `json:"hospital"`
}

func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, service.ErrMissingItems)
		return
	}
	full, err := h.users.Register(store.CreateUser{
		Email:          req.Email,
		Name:           req.Name,
		LanguageCode:   req.Language,
		Role:           strings.ToUpper(req.Type),
		DateOfBirth:    req.DateOfBirth,
		Height:         req.Height,
		Weight:         req.Weight,
		Specialisation: req.Specialisation,
		Hospital:       req.Hospital,
	}, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, full)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, service.ErrMissingItems)
		return
	}
	pair, full, err := h.users.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": pair, "user": full})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		fail(c, service.ErrMissingItems)
		return
	}
	pair, err := h.users.Refresh(req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// VerifyToken 把 Bearer token 解析为 (userId, 过期时间)。
func (h *Handlers) VerifyToken(c *gin.Context) {
	authz := c.GetHeader("Authorization")
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	claims, err := auth.ParseAccessToken(tokenStr, h.cfg.JWTSecret)
	if err != nil {
		fail(c, service.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":         claims.UserID,
		"expirationTime": claims.ExpiresAt.Time,
	})
}

func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	full, err := h.users.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, full)
}

type updateUserRequest struct {
	Email          *string    `json:"email"`
	Name           *string    `json:"name"`
	Language       *string    `json:"language"`
	DateOfBirth    *time.Time `json:"dateOfBirth"`
	Height         *int       `json:"height"`
	Weight         *int       `json:"weight"`
	Specialisation *string    `json:"specialisation"`
	Hospital       *string    `json:"hospital"`
}

func (h *Handlers) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, service.ErrMissingItems)
		return
	}
	full, err := h.users.Update(auth.GetUser(c), id, store.UpdateUser{
		Email:          req.Email,
		Name:           req.Name,
		LanguageCode:   req.Language,
		DateOfBirth:    req.DateOfBirth,
		Height:         req.Height,
		Weight:         req.Weight,
		Specialisation: req.Specialisation,
		Hospital:       req.Hospital,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, full)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if err := h.users.Delete(auth.GetUser(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	view, err := h.rooms.Create(auth.GetUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) ListRooms(c *gin.Context) {
	views, err := h.rooms.ListFor(auth.GetUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": views})
}

func (h *Handlers) GetRoom(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	view, err := h.rooms.Get(auth.GetUser(c), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) DeleteRoom(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	if err := h.rooms.Delete(auth.GetUser(c), roomID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddParticipant 医生进入房间。只能替自己报到。
func (h *Handlers) AddParticipant(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if auth.GetUserID(c) != userID {
		fail(c, service.ErrForbidden)
		return
	}
	if err := h.rooms.AddDoctor(userID, roomID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handlers) RemoveParticipant(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if auth.GetUserID(c) != userID {
		fail(c, service.ErrForbidden)
		return
	}
	if err := h.rooms.RemoveDoctor(userID, roomID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ListMessages(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	messages, err := h.messages.List(auth.GetUser(c), roomID, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "page": page, "limit": limit, "messages": messages})
}

func (h *Handlers) GetMessage(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	msgID, ok := idParam(c, "messageId")
	if !ok {
		return
	}
	rendered, err := h.messages.Get(auth.GetUser(c), roomID, msgID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rendered)
}

func (h *Handlers) LinkMessageTerm(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	msgID, ok := idParam(c, "messageId")
	if !ok {
		return
	}
	termID, ok := idParam(c, "termId")
	if !ok {
		return
	}
	if err := h.messages.LinkTerm(auth.GetUser(c), roomID, msgID, termID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handlers) UnlinkMessageTerm(c *gin.Context) {
	roomID, ok := idParam(c, "roomId")
	if !ok {
		return
	}
	msgID, ok := idParam(c, "messageId")
	if !ok {
		return
	}
	termID, ok := idParam(c, "termId")
	if !ok {
		return
	}
	if err := h.messages.UnlinkTerm(auth.GetUser(c), roomID, msgID, termID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type termRequest struct {
	TermType    string   `json:"medicalTermType"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Synonyms    []string `json:"synonyms"`
	Language    string   `json:"language"`
}

func (h *Handlers) CreateTerm(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, service.ErrMissingItems)
		return
	}
	lang := req.Language
	if lang == "" {
		lang = auth.GetUser(c).LanguageCode
	}
	info, err := h.terms.Create(store.CreateTerm{
		TermType:     strings.ToUpper(req.TermType),
		LanguageCode: lang,
		Name:         req.Name,
		Description:  req.Description,
		URL:          req.URL,
		Synonyms:     req.Synonyms,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handlers) ListTerms(c *gin.Context) {
	lang := c.Query("language")
	if lang == "" {
		lang = auth.GetUser(c).LanguageCode
	}
	infos, err := h.terms.List(lang)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicalTerms": infos})
}

func (h *Handlers) GetTerm(c *gin.Context) {
	termID, ok := idParam(c, "termId")
	if !ok {
		return
	}
	lang := c.Query("language")
	if lang == "" {
		lang = auth.GetUser(c).LanguageCode
	}
	info, err := h.terms.Get(termID, lang)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type updateTermRequest struct {
	TermType    *string `json:"medicalTermType"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	Language    string  `json:"language"`
}

func (h *Handlers) UpdateTerm(c *gin.Context) {
	termID, ok := idParam(c, "termId")
	if !ok {
		return
	}
	var req updateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, service.ErrMissingItems)
		return
	}
	lang := req.Language
	if lang == "" {
		lang = auth.GetUser(c).LanguageCode
	}
	info, err := h.terms.Update(auth.GetUser(c), termID, lang, store.UpdateTerm{
		TermType:    req.TermType,
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handlers) DeleteTerm(c *gin.Context) {
	termID, ok := idParam(c, "termId")
	if !ok {
		return
	}
	if err := h.terms.Delete(auth.GetUser(c), termID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) GetMedicalHistory(c *gin.Context) {
	patientID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	history, err := h.history.Get(auth.GetUser(c), patientID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": patientID, "medicalConditions": history})
}

type conditionRequest struct {
	MedicalTermID  uint       `json:"medicalTermId"`
	Status         string     `json:"status"`
	DiagnosisDate  time.Time  `json:"diagnosisDate"`
	ResolutionDate *time.Time `json:"resolutionDate"`
}

func (h *Handlers) AddCondition(c *gin.Context) {
	patientID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req conditionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MedicalTermID == 0 {
		fail(c, service.ErrMissingItems)
		return
	}
	id, err := h.history.AddCondition(auth.GetUser(c), patientID, store.CreateCondition{
		MedicalTermID:  req.MedicalTermID,
		Status:         req.Status,
		DiagnosisDate:  req.DiagnosisDate,
		ResolutionDate: req.ResolutionDate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userConditionId": id})
}

func (h *Handlers) DeleteCondition(c *gin.Context) {
	conditionID, ok := idParam(c, "conditionId")
	if !ok {
		return
	}
	if err := h.history.DeleteCondition(auth.GetUser(c), conditionID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type prescriptionRequest struct {
	MedicalTermID    uint      `json:"medicalTermId"`
	Dosage           string    `json:"dosage"`
	Frequency        string    `json:"frequency"`
	PrescriptionDate time.Time `json:"prescriptionDate"`
}

func (h *Handlers) AddPrescription(c *gin.Context) {
	conditionID, ok := idParam(c, "conditionId")
	if !ok {
		return
	}
	var req prescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MedicalTermID == 0 {
		fail(c, service.ErrMissingItems)
		return
	}
	id, err := h.history.AddPrescription(auth.GetUser(c), conditionID, store.CreatePrescription{
		MedicalTermID: req.MedicalTermID,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		PrescribedAt:  req.PrescriptionDate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userPrescriptionId": id})
}

func (h *Handlers) DeletePrescription(c *gin.Context) {
	prescriptionID, ok := idParam(c, "prescriptionId")
	if !ok {
		return
	}
	if err := h.history.DeletePrescription(auth.GetUser(c), prescriptionID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
