// Package subscription переключает подписку пользователей и партнеров на хобби,
// поддерживая согласованность списков ссылок с обеих сторон.
package subscription

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/events"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/metrics"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// EntityRepository доступ к сущностям одного вида по идентификатору.
type EntityRepository[T any] interface {
	// FindByID возвращает сущность по идентификатору.
	FindByID(ctx context.Context, id string) (*T, error)
	// UpdateByID частично обновляет сущность и возвращает ее новое состояние.
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*T, error)
}

// Service реализует переключение подписки.
type Service struct {
	hobbies   EntityRepository[models.Hobby]
	users     EntityRepository[models.User]
	providers EntityRepository[models.Provider]
	events    events.Publisher
	log       *slog.Logger
}

// NewService создает сервис подписок.
func NewService(
	hobbies EntityRepository[models.Hobby],
	users EntityRepository[models.User],
	providers EntityRepository[models.Provider],
	publisher events.Publisher,
	log *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		hobbies:   hobbies,
		users:     users,
		providers: providers,
		events:    publisher,
		log:       log,
	}
}

// side описывает одну из двух пар списков: Hobby.subscribers и User.hobbies
// или Hobby.providerSubscribers и Provider.followedHobbies.
type side[S any] struct {
	participant     models.ParticipantType
	repo            EntityRepository[S]
	hobbyField      string
	subscriberField string
	hobbyList       func(*models.Hobby) []string
	subscriberList  func(*S) []string
}

// ToggleUser подписывает пользователя на хобби или отписывает, если он уже подписан.
// Возвращает обновленного пользователя.
func (s *Service) ToggleUser(ctx context.Context, userID, hobbyID string) (*models.User, error) {
	return toggle(ctx, s, side[models.User]{
		participant:     models.ParticipantUser,
		repo:            s.users,
		hobbyField:      "subscribers",
		subscriberField: "hobbies",
		hobbyList:       func(h *models.Hobby) []string { return h.Subscribers },
		subscriberList:  func(u *models.User) []string { return u.Hobbies },
	}, userID, hobbyID)
}

// ToggleProvider подписывает партнера на хобби или отписывает, если он уже подписан.
// Возвращает обновленного партнера.
func (s *Service) ToggleProvider(ctx context.Context, providerID, hobbyID string) (*models.Provider, error) {
	return toggle(ctx, s, side[models.Provider]{
		participant:     models.ParticipantProvider,
		repo:            s.providers,
		hobbyField:      "providerSubscribers",
		subscriberField: "followedHobbies",
		hobbyList:       func(h *models.Hobby) []string { return h.ProviderSubscribers },
		subscriberList:  func(p *models.Provider) []string { return p.FollowedHobbies },
	}, providerID, hobbyID)
}

// toggle определяет подписку по списку хобби и применяет изменение к обеим сторонам.
// Сначала записывается хобби, затем подписчик; обе сущности загружаются до первой записи.
func toggle[S any](ctx context.Context, s *Service, sd side[S], subscriberID, hobbyID string) (*S, error) {
	const op = "subscription.Toggle"
	log := s.log.With(
		slog.String("op", op),
		slog.String("hobby_id", hobbyID),
		slog.String("participant", sd.participant.String()),
		slog.String("subscriber_id", subscriberID),
	)

	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}
	if subscriberID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указан подписчик")
	}

	hobby, err := s.hobbies.FindByID(ctx, hobbyID)
	if err != nil {
		return nil, err
	}
	subscriber, err := sd.repo.FindByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	subscribed := slices.Contains(sd.hobbyList(hobby), subscriberID)
	var hobbySide, subscriberSide []string
	if subscribed {
		hobbySide = without(sd.hobbyList(hobby), subscriberID)
		subscriberSide = without(sd.subscriberList(subscriber), hobbyID)
	} else {
		hobbySide = with(sd.hobbyList(hobby), subscriberID)
		subscriberSide = with(sd.subscriberList(subscriber), hobbyID)
	}

	if _, err := s.hobbies.UpdateByID(ctx, hobbyID, storage.Fields{sd.hobbyField: hobbySide}); err != nil {
		log.Error("failed to update hobby subscribers", sl.Err(err))
		return nil, err
	}
	updated, err := sd.repo.UpdateByID(ctx, subscriberID, storage.Fields{sd.subscriberField: subscriberSide})
	if err != nil {
		// хобби уже обновлено: повторное переключение восстановит согласованность
		log.Error("failed to update subscriber hobbies after hobby write", sl.Err(err))
		return nil, err
	}

	action := "subscribe"
	if subscribed {
		action = "unsubscribe"
	}
	metrics.SubscriptionToggles.WithLabelValues(sd.participant.String(), action).Inc()
	log.Info("subscription toggled", slog.String("action", action))

	s.publish(ctx, log, events.RoutingSubscriptionToggled, events.SubscriptionToggled{
		HobbyID:     hobbyID,
		Subscriber:  subscriberID,
		Participant: sd.participant,
		Subscribed:  !subscribed,
		OccurredAt:  time.Now(),
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, routingKey string, event any) {
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		metrics.EventPublishErrors.WithLabelValues(routingKey).Inc()
		log.Warn("failed to publish event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// with возвращает копию списка с id в конце, если его там нет.
func with(list []string, id string) []string {
	result := make([]string, 0, len(list)+1)
	result = append(result, list...)
	if !slices.Contains(result, id) {
		result = append(result, id)
	}
	return result
}

// without возвращает копию списка без всех вхождений id.
func without(list []string, id string) []string {
	result := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			result = append(result, v)
		}
	}
	return result
}
