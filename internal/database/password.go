package database

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash stored in User.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("fail to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// NewUser builds a user with a hashed password.
func NewUser(login, password string, sendTopics, subscribeTopics []string) (*User, error) {
	if login == "" {
		return nil, ErrLoginEmpty
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		Login:           login,
		PasswordHash:    hash,
		SendTopics:      sendTopics,
		SubscribeTopics: subscribeTopics,
	}, nil
}
