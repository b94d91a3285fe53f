package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const sessionTTL = 7 * 24 * time.Hour

type AuthService struct {
	db            *gorm.DB
	jwtSecret     string
	adminPassword string
	dailyLimit    int
}

func NewAuthService(db *gorm.DB, jwtSecret, adminPassword string, dailyLimit int) *AuthService {
	if dailyLimit <= 0 {
		dailyLimit = models.DefaultDailyImportLimit
	}
	return &AuthService{
		db:            db,
		jwtSecret:     jwtSecret,
		adminPassword: adminPassword,
		dailyLimit:    dailyLimit,
	}
}

// Register creates a user account and returns a session token.
func (s *AuthService) Register(name, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, "", ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		name = email
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		DailyLimit:   s.dailyLimit,
	}
	if err := s.db.Create(&user).Error; err != nil {
		// Two registrations can pass the lookup above at the same time.
		// The unique index on email decides the winner.
		if isDuplicateKey(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.generateToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// The translated gorm error covers postgres; the string checks cover
// drivers that do not translate.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// Login verifies credentials and returns a session token.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// AdminLogin exchanges the shared admin password for a short-lived
// admin-role token.
func (s *AuthService) AdminLogin(password string) (string, error) {
	if s.adminPassword == "" || password != s.adminPassword {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses and verifies a session or admin token.
func (s *AuthService) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	result := &middleware.TokenClaims{}
	if role, ok := claims["role"].(string); ok {
		result.Role = role
	}
	if email, ok := claims["email"].(string); ok {
		result.Email = email
	}
	if userIDStr, ok := claims["user_id"].(string); ok {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return nil, errors.New("invalid token claims")
		}
		result.UserID = userID
	} else if result.Role == "" {
		return nil, errors.New("invalid token claims")
	}

	return result, nil
}
