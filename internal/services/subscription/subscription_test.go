package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/events"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/repository"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage/memory"
)

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo *repository.Repository
	svc  *Service
}

func setup(t *testing.T, publisher events.Publisher) fixture {
	t.Helper()
	repo := repository.New(memory.New(nil))
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := repo.Users.Create(ctx, &models.User{ID: id, Email: id + "@mail.ru", Hobbies: []string{}})
		require.NoError(t, err)
	}
	for _, id := range []string{"p1", "p2"} {
		_, err := repo.Providers.Create(ctx, &models.Provider{ID: id, Email: id + "@mail.ru", FollowedHobbies: []string{}})
		require.NoError(t, err)
	}
	for _, id := range []string{"h1", "h2", "h3"} {
		_, err := repo.Hobbies.Create(ctx, &models.Hobby{ID: id, Label: "hobby " + id, Owner: "p1"})
		require.NoError(t, err)
	}

	return fixture{
		repo: repo,
		svc:  NewService(repo.Hobbies, repo.Users, repo.Providers, publisher, newLogger()),
	}
}

func TestToggleUser_SubscribeThenUnsubscribe(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	user, err := f.svc.ToggleUser(ctx, "u1", "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, user.Hobbies)

	hobby, err := f.repo.Hobbies.FindByID(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, hobby.Subscribers)

	user, err = f.svc.ToggleUser(ctx, "u1", "h1")
	require.NoError(t, err)
	assert.Empty(t, user.Hobbies)

	hobby, err = f.repo.Hobbies.FindByID(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, hobby.Subscribers)
}

func TestToggleProvider_DoubleToggleRestoresState(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.svc.ToggleProvider(ctx, "p2", "h2")
	require.NoError(t, err)
	_, err = f.svc.ToggleProvider(ctx, "p1", "h2")
	require.NoError(t, err)

	beforeHobby, err := f.repo.Hobbies.FindByID(ctx, "h2")
	require.NoError(t, err)
	beforeProvider, err := f.repo.Providers.FindByID(ctx, "p2")
	require.NoError(t, err)

	provider, err := f.svc.ToggleProvider(ctx, "p2", "h2")
	require.NoError(t, err)
	assert.NotContains(t, provider.FollowedHobbies, "h2")
	_, err = f.svc.ToggleProvider(ctx, "p2", "h2")
	require.NoError(t, err)

	afterHobby, err := f.repo.Hobbies.FindByID(ctx, "h2")
	require.NoError(t, err)
	afterProvider, err := f.repo.Providers.FindByID(ctx, "p2")
	require.NoError(t, err)

	assert.ElementsMatch(t, beforeHobby.ProviderSubscribers, afterHobby.ProviderSubscribers)
	assert.ElementsMatch(t, beforeProvider.FollowedHobbies, afterProvider.FollowedHobbies)
	assert.Empty(t, afterHobby.Subscribers, "user side must not change")
}

func TestToggle_SymmetryAfterRandomSequence(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))

	users := []string{"u1", "u2", "u3"}
	providers := []string{"p1", "p2"}
	hobbies := []string{"h1", "h2", "h3"}

	for range 200 {
		hobbyID := hobbies[rnd.Intn(len(hobbies))]
		if rnd.Intn(2) == 0 {
			_, err := f.svc.ToggleUser(ctx, users[rnd.Intn(len(users))], hobbyID)
			require.NoError(t, err)
		} else {
			_, err := f.svc.ToggleProvider(ctx, providers[rnd.Intn(len(providers))], hobbyID)
			require.NoError(t, err)
		}
	}

	for _, hobbyID := range hobbies {
		hobby, err := f.repo.Hobbies.FindByID(ctx, hobbyID)
		require.NoError(t, err)
		for _, userID := range users {
			user, err := f.repo.Users.FindByID(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, hobby.HasSubscriber(userID), slices.Contains(user.Hobbies, hobbyID),
				"hobby %s / user %s", hobbyID, userID)
		}
		for _, providerID := range providers {
			provider, err := f.repo.Providers.FindByID(ctx, providerID)
			require.NoError(t, err)
			assert.Equal(t, hobby.HasProviderSubscriber(providerID), slices.Contains(provider.FollowedHobbies, hobbyID),
				"hobby %s / provider %s", hobbyID, providerID)
		}
	}
}

func TestToggle_Errors(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantKind apperr.Kind
	}{
		{
			name:     "empty hobby id",
			call:     func() error { _, err := f.svc.ToggleUser(ctx, "u1", ""); return err },
			wantKind: apperr.InvalidArgument,
		},
		{
			name:     "empty subscriber id",
			call:     func() error { _, err := f.svc.ToggleProvider(ctx, "", "h1"); return err },
			wantKind: apperr.InvalidArgument,
		},
		{
			name:     "unknown hobby",
			call:     func() error { _, err := f.svc.ToggleUser(ctx, "u1", "missing"); return err },
			wantKind: apperr.NotFound,
		},
		{
			name:     "unknown user",
			call:     func() error { _, err := f.svc.ToggleUser(ctx, "missing", "h1"); return err },
			wantKind: apperr.NotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}

	hobby, err := f.repo.Hobbies.FindByID(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, hobby.Subscribers, "a failed toggle must not write the hobby")
	assert.Empty(t, hobby.ProviderSubscribers)
}

func TestToggle_PublishesEvent(t *testing.T) {
	publisher := new(PublisherMock)
	publisher.On("Publish", mock.Anything, events.RoutingSubscriptionToggled, mock.MatchedBy(func(e events.SubscriptionToggled) bool {
		return e.HobbyID == "h1" && e.Subscriber == "u1" && e.Participant == models.ParticipantUser && e.Subscribed
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, events.RoutingSubscriptionToggled, mock.MatchedBy(func(e events.SubscriptionToggled) bool {
		return !e.Subscribed
	})).Return(errors.New("broker is down")).Once()

	f := setup(t, publisher)
	ctx := context.Background()

	_, err := f.svc.ToggleUser(ctx, "u1", "h1")
	require.NoError(t, err)
	// ошибка публикации не влияет на результат
	user, err := f.svc.ToggleUser(ctx, "u1", "h1")
	require.NoError(t, err)
	assert.Empty(t, user.Hobbies)

	publisher.AssertExpectations(t)
}

type failingUsers struct {
	EntityRepository[models.User]
}

func (failingUsers) UpdateByID(context.Context, string, storage.Fields) (*models.User, error) {
	return nil, apperr.Wrap(apperr.Storage, "test", errors.New("connection reset"))
}

func TestToggle_SubscriberWriteFailure(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	svc := NewService(f.repo.Hobbies, failingUsers{f.repo.Users}, f.repo.Providers, nil, newLogger())

	_, err := svc.ToggleUser(ctx, "u1", "h1")
	require.Error(t, err)
	assert.Equal(t, apperr.Storage, apperr.KindOf(err))

	// хобби записывается первым
	hobby, err := f.repo.Hobbies.FindByID(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, hobby.Subscribers)

	// повторное переключение исправным сервисом сходится к согласованному состоянию
	user, err := f.svc.ToggleUser(ctx, "u1", "h1")
	require.NoError(t, err)
	assert.Empty(t, user.Hobbies)
	hobby, err = f.repo.Hobbies.FindByID(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, hobby.Subscribers)
}

func TestWithWithout(t *testing.T) {
	list := []string{"a", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, with(list, "c"))
	assert.Equal(t, []string{"a", "b"}, with(list, "a"))
	assert.Equal(t, []string{"b"}, without([]string{"a", "b", "a"}, "a"))
	assert.Equal(t, []string{"a", "b"}, list, "input must not be modified")
}
