package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/aeroacademy/groundschool-backend/internal/config"
	"github.com/aeroacademy/groundschool-backend/internal/database"
	"github.com/aeroacademy/groundschool-backend/internal/logger"
	"github.com/aeroacademy/groundschool-backend/internal/model"
	"github.com/aeroacademy/groundschool-backend/internal/repository"
)

// allPermissions is granted when the prompt is left empty.
var allPermissions = []model.Permission{
	model.PermissionQuestionsRead,
	model.PermissionQuestionsWrite,
	model.PermissionExamsRead,
	model.PermissionExamsWrite,
	model.PermissionExamsPublish,
	model.PermissionAttemptsRead,
	model.PermissionAttemptsInvalidate,
	model.PermissionExamsMonitor,
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Examiner Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Permissions
	fmt.Print("Enter permission codes, comma separated (empty = all): ")
	permsStr, _ := reader.ReadString('\n')
	permsStr = strings.TrimSpace(permsStr)

	var permissions []string
	if permsStr == "" {
		for _, p := range allPermissions {
			permissions = append(permissions, string(p))
		}
	} else {
		for _, p := range strings.Split(permsStr, ",") {
			if code := strings.TrimSpace(p); code != "" {
				permissions = append(permissions, code)
			}
		}
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	// Hash Password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	examiner := &model.User{
		Email:        email,
		Name:         name,
		Role:         model.RoleExaminer,
		PasswordHash: string(hashedPassword),
		Permissions:  permissions,
	}

	if err := userRepo.Create(ctx, examiner); err != nil {
		log.Fatal().Err(err).Msg("Failed to create examiner")
	}

	fmt.Printf("\nSuccess! Examiner '%s' (%s) created with ID: %d\n", examiner.Name, examiner.Email, examiner.ID)
}
