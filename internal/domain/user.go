package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	DisplayName  string             `bson:"displayName" json:"display_name"`
	AvatarURL    string             `bson:"avatarUrl,omitempty" json:"avatar_url,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Contact is a sidebar entry: a user annotated with the most recent
// message exchanged with the requesting user, if any.
type Contact struct {
	User        `bson:",inline"`
	LastMessage *Message `bson:"lastMessage,omitempty" json:"last_message,omitempty"`
}
