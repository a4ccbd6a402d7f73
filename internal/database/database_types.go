package database

import (
	"context"
	"errors"
	"time"
)

const (
	UserCollectionName = "users"
)

var (
	ErrUserNotFound = errors.New("user does not exist")
	ErrLoginEmpty   = errors.New("login is empty")
)

// User is an account allowed to CONNECT. SendTopics and SubscribeTopics
// hold path.Match patterns, "#" matches every topic.
type User struct {
	Login           string    `bson:"login" json:"login"`
	PasswordHash    string    `bson:"password_hash" json:"password_hash"`
	SendTopics      []string  `bson:"send_topics" json:"send_topics"`
	SubscribeTopics []string  `bson:"subscribe_topics" json:"subscribe_topics"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

func (u User) clone() *User {
	u.SendTopics = append([]string(nil), u.SendTopics...)
	u.SubscribeTopics = append([]string(nil), u.SubscribeTopics...)
	return &u
}

type UserStore interface {
	FindUser(ctx context.Context, login string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, login string) error
}
