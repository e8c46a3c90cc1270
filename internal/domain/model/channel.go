package model

import (
	"fmt"
	"time"
)

const DefaultChannelDescription = "Welcome to my channel! Subscribe for new episodes."

type Channel struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user" bson:"user"`
	Name            string    `json:"name" bson:"name"`
	Slug            string    `json:"slug" bson:"slug"`
	Description     string    `json:"description" bson:"description"`
	PodcastIDs      []string  `json:"podcasts" bson:"podcasts"`
	LikedPodcastIDs []string  `json:"likedPodcasts" bson:"liked_podcasts"`
	SubscriberIDs   []string  `json:"subscribers" bson:"subscribers"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
}

func DefaultChannelName(userName string) string {
	return fmt.Sprintf("%s's Channel", userName)
}

// ChannelPage is a channel together with its uploaded podcasts.
type ChannelPage struct {
	Channel  *Channel  `json:"channel"`
	Podcasts []Podcast `json:"podcasts"`
}
