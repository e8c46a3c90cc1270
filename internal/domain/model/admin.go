package model

import "time"

type Admin struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

func (a *Admin) Role() string {
	return RoleAdmin
}

type Stats struct {
	Users    int64 `json:"users"`
	Channels int64 `json:"channels"`
	Podcasts int64 `json:"podcasts"`
	Admins   int64 `json:"admins"`
}
