package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"crmmail/models"
)

// UserStorage manages user persistence
type UserStorage struct {
	db *sqlx.DB
}

// NewUserStorage creates a new user storage instance
func NewUserStorage(db *sqlx.DB) *UserStorage {
	return &UserStorage{db: db}
}

// CreateUser hashes password and inserts user. The email is stored lower
// cased and must be unique.
func (s *UserStorage) CreateUser(user *models.User, password string) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = s.db.NamedExec(`
		INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :password_hash, :created_at, :updated_at)`,
		user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *UserStorage) GetUser(userID string) (*models.User, error) {
	return s.getBy("id", userID)
}

// GetUserByEmail retrieves a user by email, ignoring case
func (s *UserStorage) GetUserByEmail(email string) (*models.User, error) {
	return s.getBy("email", strings.ToLower(strings.TrimSpace(email)))
}

// VerifyPassword checks password against the stored hash.
func (s *UserStorage) VerifyPassword(user *models.User, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
}

func (s *UserStorage) getBy(column, value string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, "SELECT * FROM users WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
