package user

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/lib/password"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/repository"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/media"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage/memory"
)

type UploaderMock struct{ mock.Mock }

func (m *UploaderMock) Upload(ctx context.Context, bucket string, file blob.File) (string, error) {
	args := m.Called(ctx, bucket, file)
	return args.String(0), args.Error(1)
}

type staticIssuer struct{}

func (staticIssuer) Issue(identity models.Identity) (string, error) {
	return "token-" + identity.ID, nil
}

type fixture struct {
	repo     *repository.Repository
	uploader *UploaderMock
	svc      *Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	repo := repository.New(memory.New(repository.UniqueFields()))
	uploader := new(UploaderMock)
	svc := NewService(
		repo.Users,
		repo.Hobbies,
		password.NewHasher(bcrypt.MinCost),
		guard.NewUniqueness(repo.Users, repo.Providers),
		uploader,
		staticIssuer{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fixture{repo: repo, uploader: uploader, svc: svc}
}

func profile(email string) models.UserProfile {
	return models.UserProfile{Name: "Анна", Email: email, Password: "secret123"}
}

func TestCreateUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, profile("Anna@Mail.ru"), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "anna@mail.ru", u.Email)
	assert.NotEqual(t, "secret123", u.Password)
	assert.Empty(t, u.Hobbies)
	assert.Empty(t, u.Comments)

	_, err = f.svc.CreateUser(ctx, profile("anna@mail.ru"), nil)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	_, err = f.svc.CreateUser(ctx, profile(""), nil)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestCreateUser_WithAvatar(t *testing.T) {
	f := setup(t)
	avatar := blob.File{Name: "me.jpg", ContentType: "image/jpeg", Data: strings.NewReader("jpg")}
	f.uploader.On("Upload", mock.Anything, media.BucketUsers, avatar).Return("/static/users/me.jpg", nil).Once()

	u, err := f.svc.CreateUser(context.Background(), profile("boris@mail.ru"), &avatar)
	require.NoError(t, err)
	assert.Equal(t, "/static/users/me.jpg", u.Avatar)
	f.uploader.AssertExpectations(t)
}

func TestLoginUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created, err := f.svc.CreateUser(ctx, profile("anna@mail.ru"), nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid credentials", email: "anna@mail.ru", password: "secret123"},
		{name: "email in other case", email: "ANNA@mail.ru", password: "secret123"},
		{name: "wrong password", email: "anna@mail.ru", password: "wrong", wantErr: true},
		{name: "unknown email", email: "ghost@mail.ru", password: "secret123", wantErr: true},
		{name: "empty fields", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, u, err := f.svc.LoginUser(ctx, tt.email, tt.password)
			if tt.wantErr {
				assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "token-"+created.ID, token)
			assert.Equal(t, created.ID, u.ID)
		})
	}
}

func TestEditUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	anna, err := f.svc.CreateUser(ctx, profile("anna@mail.ru"), nil)
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, profile("boris@mail.ru"), nil)
	require.NoError(t, err)

	str := func(s string) *string { return &s }

	t.Run("rename and keep own email", func(t *testing.T) {
		u, err := f.svc.EditUser(ctx, anna.ID, models.UserPatch{Name: str("Анна К."), Email: str("anna@mail.ru")}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Анна К.", u.Name)
		assert.Equal(t, "anna@mail.ru", u.Email)
	})

	t.Run("email of another user", func(t *testing.T) {
		_, err := f.svc.EditUser(ctx, anna.ID, models.UserPatch{Email: str("Boris@mail.ru")}, nil)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	})

	t.Run("password is rehashed", func(t *testing.T) {
		_, err := f.svc.EditUser(ctx, anna.ID, models.UserPatch{Password: str("newsecret")}, nil)
		require.NoError(t, err)
		_, _, err = f.svc.LoginUser(ctx, "anna@mail.ru", "newsecret")
		assert.NoError(t, err)
		_, _, err = f.svc.LoginUser(ctx, "anna@mail.ru", "secret123")
		assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := f.svc.EditUser(ctx, anna.ID, models.UserPatch{}, nil)
		assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.EditUser(ctx, "ghost", models.UserPatch{Name: str("x")}, nil)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestAvatarUpload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	anna, err := f.svc.CreateUser(ctx, profile("anna@mail.ru"), nil)
	require.NoError(t, err)

	_, err = f.svc.AvatarUpload(ctx, anna.ID, nil)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	_, err = f.svc.AvatarUpload(ctx, anna.ID, &blob.File{Name: "cv.pdf", ContentType: "application/pdf"})
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	image := blob.File{Name: "me.png", ContentType: "image/png", Data: strings.NewReader("png")}
	f.uploader.On("Upload", mock.Anything, media.BucketUsers, image).Return("/static/users/me.png", nil).Once()
	u, err := f.svc.AvatarUpload(ctx, anna.ID, &image)
	require.NoError(t, err)
	assert.Equal(t, "/static/users/me.png", u.Avatar)
}

func TestUserInfoAndHobbies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	anna, err := f.svc.CreateUser(ctx, profile("anna@mail.ru"), nil)
	require.NoError(t, err)

	info, err := f.svc.UserInfo(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserInfo{ID: anna.ID, Name: "Анна", Email: "anna@mail.ru"}, info)

	_, err = f.svc.UserInfo(ctx, "ghost")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	hobbies, err := f.svc.GetHobbies(ctx, anna.ID)
	require.NoError(t, err)
	assert.Empty(t, hobbies)

	_, err = f.repo.Hobbies.Create(ctx, &models.Hobby{ID: "h1", Label: "Йога", Owner: "p1"})
	require.NoError(t, err)
	_, err = f.repo.Hobbies.Create(ctx, &models.Hobby{ID: "h2", Label: "Бокс", Owner: "p1"})
	require.NoError(t, err)
	_, err = f.repo.Users.UpdateByID(ctx, anna.ID, map[string]any{"hobbies": []string{"h2"}})
	require.NoError(t, err)

	hobbies, err = f.svc.GetHobbies(ctx, anna.ID)
	require.NoError(t, err)
	require.Len(t, hobbies, 1)
	assert.Equal(t, "Бокс", hobbies[0].Label)
}
