// Command setup-admin creates the admin account, or resets its password
// and role when it already exists.  Run it once after the schema is in
// place (or with -migrate to apply it first).
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/config"
	"github.com/iliyamo/park-ticketing/internal/database"
	"github.com/iliyamo/park-ticketing/internal/logger"
	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/utils"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	cfg := config.LoadDB()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logrus.WithField("component", "setup-admin")

	username := flag.String("username", envOr("ADMIN_USERNAME", "admin"), "admin username")
	email := flag.String("email", envOr("ADMIN_EMAIL", "admin@londonpark.com"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (or ADMIN_PASSWORD)")
	fullName := flag.String("full-name", envOr("ADMIN_FULL_NAME", "System Administrator"), "display name")
	migrate := flag.Bool("migrate", cfg.AutoMigrate, "apply the embedded schema first")
	flag.Parse()

	if len(*password) < utils.MinPasswordLength {
		log.Fatalf("password must be at least %d characters (use -password or ADMIN_PASSWORD)", utils.MinPasswordLength)
	}
	if !utils.ValidEmail(*email) {
		log.Fatalf("invalid email %q", *email)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
	}

	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.WithError(err).Fatal("hash password")
	}
	u := &model.User{
		Username:     *username,
		Email:        *email,
		PasswordHash: hash,
		FullName:     *fullName,
		Role:         model.RoleAdmin,
	}
	created, err := repository.NewUserRepo(db).UpsertAdmin(ctx, u)
	if err != nil {
		log.WithError(err).Fatal("upsert admin failed")
	}
	entry := log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username})
	if created {
		entry.Info("admin user created")
	} else {
		entry.Info("admin password and role reset")
	}
}
