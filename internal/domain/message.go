package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxImageBytes is the ceiling for a decoded image payload. The check
// runs on the base64 representation before any storage write.
const MaxImageBytes = 5 * 1024 * 1024

// Message is immutable once persisted. At least one of Text/Image is
// non-empty.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   string             `bson:"senderId" json:"sender_id"`
	ReceiverID string             `bson:"receiverId" json:"receiver_id"`
	Text       string             `bson:"text,omitempty" json:"text,omitempty"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"created_at"`
}

// ImagePayloadBytes estimates the decoded size of a base64 payload.
func ImagePayloadBytes(encoded string) int {
	return len(encoded) * 3 / 4
}
