// Command authentication seeds a tenant with its first admin user and prints
// a bearer token for it. It is meant for fresh installs and local testing,
// where no admin exists yet to call the API with.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gartstein/hr/internal/hr/auth"
	"github.com/gartstein/hr/internal/hr/config"
	"github.com/gartstein/hr/internal/hr/db"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/gartstein/hr/internal/hr/validation"
	"go.uber.org/zap"
)

type output struct {
	CompanyID   string    `json:"company_id"`
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func main() {
	company := flag.String("company", "", "name of the company to create")
	name := flag.String("name", "Admin", "admin user name")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	companyName, userName, userEmail, err := checkInput(*company, *name, *email, *password)
	if err != nil {
		logger.Fatal("invalid input", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := db.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user := &models.User{Name: userName, Email: userEmail, PasswordHash: hash, Admin: true}
	err = repo.WithTransaction(ctx, func(tx *db.Repository) error {
		c := &models.Company{Name: companyName}
		if err := tx.CreateCompany(ctx, c); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		user.CompanyID = c.ID
		if err := tx.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Fatal("failed to seed tenant", zap.Error(err))
	}

	token, expires, err := auth.GenerateToken(user, cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("failed to generate token", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(output{
		CompanyID:   user.CompanyID.String(),
		UserID:      user.ID.String(),
		AccessToken: token,
		ExpiresAt:   expires,
	})
}

// checkInput normalizes the flags the way the API would and reports the
// first invalid one.
func checkInput(company, name, email, password string) (string, string, string, error) {
	company, ok := validation.Text(company, validation.MaxCompanyName)
	if !ok {
		return "", "", "", fmt.Errorf("company name is required and may not be longer than %d characters", validation.MaxCompanyName)
	}
	name, ok = validation.Text(name, validation.MaxUserName)
	if !ok {
		return "", "", "", fmt.Errorf("name is required and may not be longer than %d characters", validation.MaxUserName)
	}
	email, ok = validation.Email(email)
	if !ok {
		return "", "", "", errors.New("email must be a valid email address")
	}
	if !validation.Password(password) {
		return "", "", "", fmt.Errorf("password must be %d to %d characters with an uppercase letter, a digit and one of @$!%%*?&", validation.MinPassword, validation.MaxPassword)
	}
	return company, name, email, nil
}
