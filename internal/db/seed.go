package db

import (
	"time"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SeedDemo 写入一组演示数据：英语病人、日语/英语两位医生、一个房间和一个示例术语。
// 已有用户时跳过，保证可重复启动。
func SeedDemo(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("password")
	if err != nil {
		return err
	}

	dob := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		patient := models.User{Email: "email@gmail.com", PasswordHash: hash, Name: "John Doe", LanguageCode: "en", Role: models.RolePatient, DateOfBirth: dob(1990, 12, 25)}
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.PatientProfile{UserID: patient.ID, Height: 190, Weight: 115}).Error; err != nil {
			return err
		}

		drSmith := models.User{Email: "doctor@gmail.com", PasswordHash: hash, Name: "Dr. Smith", LanguageCode: "jp", Role: models.RoleDoctor, DateOfBirth: dob(1980, 2, 15)}
		if err := tx.Create(&drSmith).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.DoctorProfile{UserID: drSmith.ID, Specialisation: "Cardiology", Hospital: "Kyoto University Hospital"}).Error; err != nil {
			return err
		}

		drJones := models.User{Email: "english_doctor@gmail.com", PasswordHash: hash, Name: "Dr. Jones", LanguageCode: "en", Role: models.RoleDoctor, DateOfBirth: dob(1985, 5, 10)}
		if err := tx.Create(&drJones).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.DoctorProfile{UserID: drJones.ID, Specialisation: "Cardiology", Hospital: "St Pauls Hospital"}).Error; err != nil {
			return err
		}

		room := models.Room{PatientID: patient.ID}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.DoctorInRoom{DoctorID: drSmith.ID, RoomID: room.ID, JoinedAt: time.Now(), Enabled: true}).Error; err != nil {
			return err
		}

		term := models.MedicalTerm{TermType: models.TermCondition}
		if err := tx.Create(&term).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.MedicalTermInfo{
			MedicalTermID: term.ID,
			LanguageCode:  "en",
			Name:          "COVID-19",
			Description:   "COVID-19 is a severe respiratory disease caused by a novel coronavirus.",
			URL:           "https://www.nhs.uk/conditions/coronavirus-covid-19/",
		}).Error; err != nil {
			return err
		}
		for _, syn := range []string{"COVID-19", "COVID", "Corona", "COVID 19"} {
			if err := tx.Create(&models.MedicalTermSynonym{MedicalTermID: term.ID, LanguageCode: "en", Synonym: syn}).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&models.Message{RoomID: room.ID, SenderID: patient.ID, Text: "Hi, I've lost my sense of taste and I'm coughing a lot.", SentAt: time.Now()}).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Message{RoomID: room.ID, SenderID: drSmith.ID, Text: "新型コロナウイルス感染症に感染している場合は家にいてください", SentAt: time.Now()}).Error; err != nil {
			return err
		}

		log.Info().Msg("demo data seeded")
		return nil
	})
}
