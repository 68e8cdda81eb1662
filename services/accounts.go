package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wastewise/api/models"
	"github.com/wastewise/api/utils"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// RegisterInput is a new local account.
type RegisterInput struct {
	Username      string
	Password      string
	Confirm       string
	AcceptedTerms bool
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register validates and stores a new account. Accepting the terms is mandatory.
func (s *UserService) Register(ctx context.Context, in RegisterInput, now time.Time) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(username) {
		return models.User{}, ErrInvalidUsername
	}
	if l := len(in.Password); l < 6 || l > 72 {
		return models.User{}, ErrInvalidPassword
	}
	if in.Password != in.Confirm {
		return models.User{}, ErrPasswordMismatch
	}
	if !in.AcceptedTerms {
		return models.User{}, ErrTermsNotAccepted
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return models.User{}, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	accepted := now.UTC()
	user := models.User{
		Username:        username,
		PasswordHash:    hash,
		TermsAcceptedAt: &accepted,
		CreatedAt:       accepted,
		UpdatedAt:       accepted,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	if id == 0 {
		return models.User{}, ErrInvalidUserID
	}
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// FindByUsername returns the account named username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
