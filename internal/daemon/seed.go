package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/models"
)

const (
	seedAdminUsername = "admin"
	seedAdminPassword = "changeme"
)

// seed creates the initial admin account on an empty directory so the
// service is reachable after first start.
func seed(_ *config.Config, db *gorm.DB) {
	var count int64

	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to count users")
	}

	if count > 0 {
		return
	}

	admin := models.User{
		Username: seedAdminUsername,
		Password: models.HashPassword(seedAdminPassword),
		Admin:    true,
		Backend:  models.BackendLocal,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	log.Warn().Str("username", seedAdminUsername).
		Msg("seeded initial admin user with default password, change it immediately")
}
