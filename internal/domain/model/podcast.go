package model

import "time"

type Podcast struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	OwnerID     string    `json:"owner" bson:"owner"`
	ChannelID   string    `json:"channel" bson:"channel"`
	AudioKey    string    `json:"-" bson:"audio_key"`
	AudioURL    string    `json:"audioUrl" bson:"audio_url"`
	AudioSize   int64     `json:"audioSize" bson:"audio_size"`
	ContentType string    `json:"contentType" bson:"content_type"`
	CoverKey    string    `json:"-" bson:"cover_key,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty" bson:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}
