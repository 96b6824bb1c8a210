package models

import "time"

// 用户角色，创建后不可变。
const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
)

// AISenderID 是 AI 问诊机器人发送消息时使用的保留发送者 id，
// 不对应任何真实用户记录，因此 Message.SenderID 不做外键约束。
const AISenderID uint = 0

// 医疗术语类型。
const (
	TermCondition    = "CONDITION"
	TermPrescription = "PRESCRIPTION"
	TermGeneral      = "GENERAL"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string `gorm:"size:128;not null"`
	LanguageCode string `gorm:"size:8;not null;default:en"`
	Role         string `gorm:"size:16;not null"`
	DateOfBirth  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PatientProfile 病人角色的附加字段，与 User 一对一。
type PatientProfile struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"uniqueIndex;not null"`
	Height int
	Weight int
}

// DoctorProfile 医生角色的附加字段，与 User 一对一。
type DoctorProfile struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"uniqueIndex;not null"`
	Specialisation string `gorm:"size:128"`
	Hospital       string `gorm:"size:128"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Room 由病人创建并持有，房主不可变更。
type Room struct {
	ID        uint `gorm:"primaryKey"`
	PatientID uint `gorm:"index;not null"`
	CreatedAt time.Time
}

// DoctorInRoom 医生与房间的成员关系。同一 (doctor, room) 最多一条 enabled 记录。
type DoctorInRoom struct {
	ID       uint `gorm:"primaryKey"`
	DoctorID uint `gorm:"index:idx_doctor_room;not null"`
	RoomID   uint `gorm:"index:idx_doctor_room;not null"`
	JoinedAt time.Time
	Enabled  bool `gorm:"index"`
}

// Message 一经写入不再修改。SenderID 为 0 表示 AI 机器人。
type Message struct {
	ID       uint   `gorm:"primaryKey"`
	RoomID   uint   `gorm:"index:idx_msg_room;not null"`
	SenderID uint   `gorm:"index"`
	Text     string `gorm:"type:text;not null"`
	SentAt   time.Time
}

// MessageTranslationCache 每条消息每种语言最多缓存一条译文，写入后不变。
type MessageTranslationCache struct {
	ID             uint   `gorm:"primaryKey"`
	MessageID      uint   `gorm:"uniqueIndex:idx_msg_lang;not null"`
	LanguageCode   string `gorm:"uniqueIndex:idx_msg_lang;size:8;not null"`
	TranslatedText string `gorm:"type:text"`
}

// MedicalTerm 语言无关的医疗术语概念。
type MedicalTerm struct {
	ID       uint   `gorm:"primaryKey"`
	TermType string `gorm:"size:16;not null"`
}

// MedicalTermInfo 概念在某种语言下的展示信息，每 (term, language) 最多一条。
type MedicalTermInfo struct {
	ID            uint   `gorm:"primaryKey"`
	MedicalTermID uint   `gorm:"uniqueIndex:idx_term_lang;not null"`
	LanguageCode  string `gorm:"uniqueIndex:idx_term_lang;size:8;not null"`
	Name          string `gorm:"size:255"`
	Description   string `gorm:"type:text"`
	URL           string `gorm:"size:512"`
}

// MedicalTermSynonym 语言内的同义词到概念的多对一映射。
// (language, synonym) 唯一，这也是术语识别的查找键。
type MedicalTermSynonym struct {
	ID            uint   `gorm:"primaryKey"`
	MedicalTermID uint   `gorm:"index;not null"`
	LanguageCode  string `gorm:"uniqueIndex:idx_syn_lang_text;size:8;not null"`
	Synonym       string `gorm:"uniqueIndex:idx_syn_lang_text;size:255;not null"`
}

// MessageTermCache 记录消息中识别出的概念，以及原文/译文里分别命中的同义词。
type MessageTermCache struct {
	ID                  uint `gorm:"primaryKey"`
	MessageID           uint `gorm:"index;not null"`
	MedicalTermID       uint `gorm:"not null"`
	OriginalSynonymID   *uint
	TranslatedSynonymID *uint
}

// PatientCondition 病人的既往/现患病症，指向一个医疗术语概念。
type PatientCondition struct {
	ID             uint   `gorm:"primaryKey"`
	PatientID      uint   `gorm:"index:idx_cond_patient_term;not null"`
	MedicalTermID  uint   `gorm:"index:idx_cond_patient_term;not null"`
	Status         string `gorm:"size:16;not null"`
	DiagnosisDate  time.Time
	ResolutionDate *time.Time
}

// PatientPrescription 挂在某个病症下的处方记录。
type PatientPrescription struct {
	ID            uint `gorm:"primaryKey"`
	ConditionID   uint `gorm:"index:idx_presc_cond_term;not null"`
	MedicalTermID uint `gorm:"index:idx_presc_cond_term;not null"`
	Dosage        string
	Frequency     string
	PrescribedAt  time.Time
}
