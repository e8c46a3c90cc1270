package model

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	MaxNameLength = 50
)

// PasswordHasher is the hook stores call before persisting a user.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

var ErrNoPassword = errors.New("account has no password")

type User struct {
	ID                string    `json:"id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	Email             string    `json:"email" bson:"email"`
	PasswordHash      string    `json:"-" bson:"password,omitempty"`
	Role              string    `json:"role" bson:"role"`
	IsSystem          bool      `json:"-" bson:"is_system"` // non-interactive accounts never log in
	PodcastIDs        []string  `json:"podcasts" bson:"podcasts"`
	SavedPodcastIDs   []string  `json:"savedPodcasts" bson:"saved_podcasts"`
	RecentlyPlayedIDs []string  `json:"recentlyPlayed" bson:"recently_played"`
	CreatedAt         time.Time `json:"createdAt" bson:"created_at"`

	pendingPassword string
}

// SetPassword stages a new plaintext password; it is hashed on the next write.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = plain
}

func (u *User) PasswordChanged() bool {
	return u.pendingPassword != ""
}

// HashPendingPassword replaces a staged plaintext with its hash. It is a no-op
// for system accounts and when no new password was staged.
func (u *User) HashPendingPassword(h PasswordHasher) error {
	if u.IsSystem {
		u.pendingPassword = ""
		return nil
	}
	if !u.PasswordChanged() {
		if u.PasswordHash == "" {
			return ErrNoPassword
		}
		return nil
	}
	hash, err := h.Hash(u.pendingPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.pendingPassword = ""
	return nil
}

// CanLogin reports whether password verification may be attempted.
func (u *User) CanLogin() bool {
	return !u.IsSystem && u.PasswordHash != ""
}

// UserSummary is the public view returned by auth endpoints.
type UserSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	ChannelName *string `json:"channelName"`
}

func (u *User) Summary(channel *Channel) UserSummary {
	s := UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	if channel != nil {
		name := channel.Name
		s.ChannelName = &name
	}
	return s
}
