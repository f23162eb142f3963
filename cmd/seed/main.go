package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"intern-portal/backend/internal/models"
	"intern-portal/backend/internal/repository"
	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/jwt"
	"intern-portal/backend/pkg/logger"
)

func main() {
	email := flag.String("email", "admin@example.com", "Admin account email")
	name := flag.String("name", "Admin", "Admin display name")
	password := flag.String("password", "", "Admin password (required)")
	project := flag.String("project", "", "Also create a project with this title, admin as its only member")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "seed: -password is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.New()
	log := logger.New(logger.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := seed(ctx, cfg, *email, *name, *password, *project); err != nil {
		log.LogError(err, "Seeding failed")
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, email, name, password, projectTitle string) error {
	db, err := config.NewDB(ctx, cfg)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}

	users := repository.NewGormUserRepository(db)
	projects := repository.NewGormProjectRepository(db)

	admin, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		admin = &models.User{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     string(jwt.RoleAdmin),
		}
		if err := users.Create(ctx, admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Printf("created admin user %d <%s>\n", admin.ID, admin.Email)
	case err != nil:
		return err
	default:
		fmt.Printf("admin user %d <%s> already exists\n", admin.ID, admin.Email)
	}

	if projectTitle != "" {
		p := &models.Project{Title: projectTitle, CreatedByID: admin.ID}
		if err := projects.Create(ctx, p, admin.ID); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Printf("created project %d %q\n", p.ID, p.Title)
	}

	tokens := jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours, cfg.JWT.Issuer)
	token, err := tokens.GenerateToken(admin.ID, admin.Email, jwt.Role(admin.Role))
	if err != nil {
		return err
	}
	fmt.Println("token:", token)
	return nil
}
