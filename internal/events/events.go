// Package events описывает доменные события платформы и порт для их публикации.
package events

import (
	"context"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// Ключи маршрутизации событий.
const (
	RoutingCommentCreated      = "comment.created"
	RoutingSubscriptionToggled = "subscription.toggled"
)

// Publisher публикует событие с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// CommentCreated событие о новом комментарии к хобби.
type CommentCreated struct {
	CommentID  string        `json:"commentId"`
	HobbyID    string        `json:"hobbyId"`
	Author     models.Author `json:"author"`
	Evaluation *int          `json:"evaluation,omitempty"`
	ReplyTo    string        `json:"replyTo,omitempty"`
	Rating     float64       `json:"rating"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// SubscriptionToggled событие о подписке или отписке участника.
type SubscriptionToggled struct {
	HobbyID     string                 `json:"hobbyId"`
	Subscriber  string                 `json:"subscriber"`
	Participant models.ParticipantType `json:"participant"`
	Subscribed  bool                   `json:"subscribed"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// Noop отбрасывает события. Используется, когда брокер не настроен.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(context.Context, string, any) error { return nil }
