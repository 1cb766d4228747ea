// Package comment прикрепляет комментарии к хобби, связывает ответы с исходными
// комментариями и поддерживает рейтинг хобби в актуальном состоянии.
package comment

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/events"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/sl"
	"github.com/magabrotheeeer/hobbyfinder/internal/metrics"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// CommentRepository хранилище комментариев.
type CommentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Find(ctx context.Context, filter storage.Filter) ([]*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.Comment, error)
}

// HobbyRepository хранилище хобби.
type HobbyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Hobby, error)
	Find(ctx context.Context, filter storage.Filter) ([]*models.Hobby, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.Hobby, error)
}

// UserRepository хранилище пользователей.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.User, error)
}

// ProviderRepository хранилище партнеров.
type ProviderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Provider, error)
}

// Service реализует работу с комментариями.
type Service struct {
	comments  CommentRepository
	hobbies   HobbyRepository
	users     UserRepository
	providers ProviderRepository
	events    events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService создает сервис комментариев.
func NewService(
	comments CommentRepository,
	hobbies HobbyRepository,
	users UserRepository,
	providers ProviderRepository,
	publisher events.Publisher,
	log *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		comments:  comments,
		hobbies:   hobbies,
		users:     users,
		providers: providers,
		events:    publisher,
		log:       log,
		now:       time.Now,
	}
}

// CreateComment создает комментарий к хобби hobbyID и возвращает обновленное хобби.
//
// Если fields.RelatedComment задан, у исходного комментария поле relatedComment
// начинает указывать на созданный ответ. Оценка пользователя пересчитывает рейтинг
// хобби как скользящее среднее по оценкам пользователей.
func (s *Service) CreateComment(ctx context.Context, hobbyID string, fields models.CommentFields) (*models.Hobby, error) {
	const op = "comment.CreateComment"
	log := s.log.With(
		slog.String("op", op),
		slog.String("hobby_id", hobbyID),
		slog.String("author", fields.Author.Type.String()),
		slog.String("author_id", fields.Author.ID),
	)

	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}
	if fields.Author.ID == "" {
		return nil, apperr.New(apperr.Unauthorized, op, "Требуется авторизация")
	}
	if e := fields.Evaluation; e != nil && (*e < models.MinEvaluation || *e > models.MaxEvaluation) {
		return nil, apperr.New(apperr.InvalidArgument, op, "Оценка должна быть от 1 до 5")
	}

	hobby, err := s.hobbies.FindByID(ctx, hobbyID)
	if err != nil {
		return nil, err
	}

	var related *models.Comment
	if fields.RelatedComment != "" {
		related, err = s.comments.FindByID(ctx, fields.RelatedComment)
		if err != nil {
			return nil, err
		}
		if related.Hobby != hobbyID {
			return nil, apperr.New(apperr.InvalidArgument, op, "Комментарий относится к другому хобби")
		}
	}

	var author *models.User
	switch fields.Author.Type {
	case models.ParticipantUser:
		author, err = s.users.FindByID(ctx, fields.Author.ID)
	case models.ParticipantProvider:
		_, err = s.providers.FindByID(ctx, fields.Author.ID)
	default:
		err = apperr.New(apperr.InvalidArgument, op, "Неизвестный тип автора")
	}
	if err != nil {
		return nil, err
	}

	draft := &models.Comment{
		Hobby:      hobbyID,
		Text:       fields.Text,
		Datetime:   fields.Datetime,
		Evaluation: fields.Evaluation,
		Author:     fields.Author,
	}
	if draft.Datetime.IsZero() {
		draft.Datetime = s.now()
	}

	update := storage.Fields{}
	if draft.Rated() {
		n, err := s.ratedCount(ctx, hobby)
		if err != nil {
			return nil, err
		}
		update["rating"] = nextRating(hobby.Rating, n, *draft.Evaluation)
	}

	created, err := s.comments.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	log = log.With(slog.String("comment_id", created.ID))

	if related != nil {
		if _, err := s.comments.UpdateByID(ctx, related.ID, storage.Fields{"relatedComment": created.ID}); err != nil {
			log.Error("failed to link reply to the related comment", sl.Err(err))
			return nil, err
		}
	}

	update["comments"] = append(append(make([]string, 0, len(hobby.Comments)+1), hobby.Comments...), created.ID)
	updated, err := s.hobbies.UpdateByID(ctx, hobbyID, update)
	if err != nil {
		log.Error("failed to attach comment to hobby", sl.Err(err))
		return nil, err
	}

	if author != nil {
		comments := append(append(make([]string, 0, len(author.Comments)+1), author.Comments...), created.ID)
		if _, err := s.users.UpdateByID(ctx, author.ID, storage.Fields{"comments": comments}); err != nil {
			log.Error("failed to append comment to author", sl.Err(err))
			return nil, err
		}
	}

	metrics.CommentsCreated.WithLabelValues(fields.Author.Type.String()).Inc()
	log.Info("comment created", slog.Float64("rating", updated.Rating))

	event := events.CommentCreated{
		CommentID:  created.ID,
		HobbyID:    hobbyID,
		Author:     created.Author,
		Evaluation: created.Evaluation,
		ReplyTo:    fields.RelatedComment,
		Rating:     updated.Rating,
		CreatedAt:  created.Datetime,
	}
	if err := s.events.Publish(ctx, events.RoutingCommentCreated, event); err != nil {
		metrics.EventPublishErrors.WithLabelValues(events.RoutingCommentCreated).Inc()
		log.Warn("failed to publish event", slog.String("routing_key", events.RoutingCommentCreated), sl.Err(err))
	}
	return updated, nil
}

// ratedCount возвращает число комментариев хобби от пользователей с оценкой.
func (s *Service) ratedCount(ctx context.Context, hobby *models.Hobby) (int, error) {
	if len(hobby.Comments) == 0 {
		return 0, nil
	}
	rated, err := s.comments.Find(ctx, storage.Where(
		storage.In("id", hobby.Comments),
		storage.Eq("author.type", models.ParticipantUser),
		storage.Exists("evaluation"),
	))
	if err != nil {
		return 0, err
	}
	return len(rated), nil
}

// nextRating добавляет оценку evaluation к среднему rating, посчитанному по n оценкам.
func nextRating(rating float64, n, evaluation int) float64 {
	return (rating*float64(n) + float64(evaluation)) / float64(n+1)
}

// Describe собирает представления комментариев вместе с ответами.
// Ответы загружаются одним запросом.
func (s *Service) Describe(ctx context.Context, comments []*models.Comment) ([]models.CommentInfo, error) {
	var answerIDs []string
	for _, c := range comments {
		if c.RelatedComment != nil && *c.RelatedComment != "" {
			answerIDs = append(answerIDs, *c.RelatedComment)
		}
	}

	answers := make(map[string]*models.Comment, len(answerIDs))
	if len(answerIDs) > 0 {
		found, err := s.comments.Find(ctx, storage.Where(storage.In("id", answerIDs)))
		if err != nil {
			return nil, err
		}
		for _, a := range found {
			answers[a.ID] = a
		}
	}

	result := make([]models.CommentInfo, 0, len(comments))
	for _, c := range comments {
		var answer *models.Comment
		if c.RelatedComment != nil {
			answer = answers[*c.RelatedComment]
		}
		result = append(result, c.Info(answer))
	}
	return result, nil
}

// ForHobby возвращает комментарии пользователей к хобби.
func (s *Service) ForHobby(ctx context.Context, hobbyID string) ([]models.CommentInfo, error) {
	const op = "comment.ForHobby"
	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}
	if _, err := s.hobbies.FindByID(ctx, hobbyID); err != nil {
		return nil, err
	}
	comments, err := s.comments.Find(ctx, storage.Where(
		storage.Eq("hobby", hobbyID),
		storage.Eq("author.type", models.ParticipantUser),
	))
	if err != nil {
		return nil, err
	}
	return s.Describe(ctx, comments)
}

// ByUser возвращает комментарии, оставленные пользователем.
func (s *Service) ByUser(ctx context.Context, userID string) ([]models.CommentInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Comments) == 0 {
		return []models.CommentInfo{}, nil
	}
	comments, err := s.comments.Find(ctx, storage.Where(storage.In("id", user.Comments)))
	if err != nil {
		return nil, err
	}
	return s.Describe(ctx, comments)
}

// ForProvider возвращает комментарии пользователей ко всем хобби партнера.
func (s *Service) ForProvider(ctx context.Context, providerID string) ([]models.CommentInfo, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		return nil, err
	}
	hobbies, err := s.hobbies.Find(ctx, storage.Where(storage.Eq("owner", providerID)))
	if err != nil {
		return nil, err
	}
	if len(hobbies) == 0 {
		return []models.CommentInfo{}, nil
	}
	ids := make([]string, 0, len(hobbies))
	for _, h := range hobbies {
		ids = append(ids, h.ID)
	}
	comments, err := s.comments.Find(ctx, storage.Where(
		storage.In("hobby", ids),
		storage.Eq("author.type", models.ParticipantUser),
	))
	if err != nil {
		return nil, err
	}
	return s.Describe(ctx, comments)
}
