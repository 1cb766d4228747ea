package hobby

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/repository"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage/memory"
)

type recordingUploader struct{ buckets []string }

func (u *recordingUploader) Upload(_ context.Context, bucket string, _ blob.File) (string, error) {
	u.buckets = append(u.buckets, bucket)
	return "/static/" + bucket + "/cover.png", nil
}

func setup(t *testing.T) (*Service, *repository.Repository, *recordingUploader) {
	t.Helper()
	repo := repository.New(memory.New(nil))
	ctx := context.Background()
	for _, id := range []string{"p1", "p2"} {
		_, err := repo.Providers.Create(ctx, &models.Provider{ID: id, Email: id + "@mail.ru"})
		require.NoError(t, err)
	}
	uploader := &recordingUploader{}
	svc := NewService(repo.Hobbies, repo.Providers, uploader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC) }
	return svc, repo, uploader
}

func intPtr(v int) *int { return &v }

func seed(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	hobbies := []struct {
		owner  string
		fields models.HobbyFields
	}{
		{owner: "p1", fields: models.HobbyFields{Label: "Йога в парке", Category: "sport", MetroID: intPtr(7), Parking: true}},
		{owner: "p1", fields: models.HobbyFields{Label: "Горячая ЙОГА", Category: "sport", MetroID: intPtr(3), Novice: true}},
		{owner: "p2", fields: models.HobbyFields{Label: "Керамика", Category: "art", MetroID: intPtr(7), Children: true}},
	}
	for _, h := range hobbies {
		_, err := svc.AddHobby(ctx, h.owner, h.fields, nil)
		require.NoError(t, err)
	}
}

func TestAddHobby(t *testing.T) {
	svc, _, uploader := setup(t)
	ctx := context.Background()

	h, err := svc.AddHobby(ctx, "p1", models.HobbyFields{Label: "  Скалодром "}, &blob.File{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Скалодром", h.Label)
	assert.Equal(t, "p1", h.Owner)
	assert.Zero(t, h.Rating)
	assert.Empty(t, h.Subscribers)
	assert.Empty(t, h.ProviderSubscribers)
	assert.Empty(t, h.Comments)
	assert.Empty(t, h.Monetization)
	assert.Equal(t, "/static/hobbies/cover.png", h.Avatar)
	assert.Equal(t, []string{"hobbies"}, uploader.buckets)

	_, err = svc.AddHobby(ctx, "p1", models.HobbyFields{}, nil)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	_, err = svc.AddHobby(ctx, "ghost", models.HobbyFields{Label: "x"}, nil)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestFindByLabel(t *testing.T) {
	svc, _, _ := setup(t)
	seed(t, svc)
	ctx := context.Background()

	tests := []struct {
		name    string
		label   string
		metroID string
		want    []string
	}{
		{name: "case insensitive substring", label: "йога", want: []string{"Йога в парке", "Горячая ЙОГА"}},
		{name: "with metro", label: "йога", metroID: "3", want: []string{"Горячая ЙОГА"}},
		{name: "metro is not a number", label: "йога", metroID: "центр", want: []string{"Йога в парке", "Горячая ЙОГА"}},
		{name: "no match", label: "шахматы", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := svc.FindByLabel(ctx, tt.label, tt.metroID)
			require.NoError(t, err)
			var labels []string
			for _, h := range found {
				labels = append(labels, h.Label)
			}
			assert.Equal(t, tt.want, labels)
		})
	}

	_, err := svc.FindByLabel(ctx, " ", "")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestFiltered(t *testing.T) {
	svc, _, _ := setup(t)
	seed(t, svc)
	ctx := context.Background()

	tests := []struct {
		name     string
		filters  map[string]string
		want     int
		wantKind apperr.Kind
		wantErr  bool
	}{
		{name: "no filters", filters: map[string]string{}, want: 3},
		{name: "category", filters: map[string]string{"category": "sport"}, want: 2},
		{name: "metro and flag", filters: map[string]string{"metroId": "7", "children": "true"}, want: 1},
		{name: "false flag", filters: map[string]string{"parking": "false"}, want: 2},
		{name: "owner", filters: map[string]string{"owner": "p2"}, want: 1},
		{name: "unknown field", filters: map[string]string{"password": "x"}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "bad number", filters: map[string]string{"metroId": "seven"}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "bad bool", filters: map[string]string{"novice": "maybe"}, wantErr: true, wantKind: apperr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := svc.Filtered(ctx, tt.filters)
			if tt.wantErr {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, found, tt.want)
		})
	}

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHobbyInfo(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	h, err := svc.AddHobby(ctx, "p1", models.HobbyFields{Label: "Бокс"}, nil)
	require.NoError(t, err)

	got, err := svc.HobbyInfo(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Бокс", got.Label)

	_, err = svc.HobbyInfo(ctx, "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = svc.HobbyInfo(ctx, "")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestEditHobby(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	h, err := svc.AddHobby(ctx, "p1", models.HobbyFields{Label: "Бокс"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		providerID string
		patch      map[string]any
		wantKind   apperr.Kind
		wantErr    bool
	}{
		{name: "owner edits", providerID: "p1", patch: map[string]any{"label": "Кикбоксинг", "parking": true, "metroId": 12}},
		{name: "other provider", providerID: "p2", patch: map[string]any{"label": "Чужое"}, wantErr: true, wantKind: apperr.Forbidden},
		{name: "protected rating", providerID: "p1", patch: map[string]any{"rating": 5}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "protected owner", providerID: "p1", patch: map[string]any{"owner": "p2"}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "unknown field", providerID: "p1", patch: map[string]any{"color": "red"}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "wrong type", providerID: "p1", patch: map[string]any{"metroId": "twelve"}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "empty label", providerID: "p1", patch: map[string]any{"label": " "}, wantErr: true, wantKind: apperr.InvalidArgument},
		{name: "empty patch", providerID: "p1", patch: map[string]any{}, wantErr: true, wantKind: apperr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.EditHobby(ctx, tt.providerID, h.ID, tt.patch)
			if tt.wantErr {
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Кикбоксинг", updated.Label)
			assert.True(t, updated.Parking)
			require.NotNil(t, updated.MetroID)
			assert.Equal(t, 12, *updated.MetroID)
			assert.Equal(t, "p1", updated.Owner)
		})
	}

	got, err := svc.HobbyInfo(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Кикбоксинг", got.Label, "rejected edits must not change the hobby")
}

func TestAddTariff(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	h, err := svc.AddHobby(ctx, "p1", models.HobbyFields{Label: "Бокс"}, nil)
	require.NoError(t, err)

	updated, err := svc.AddTariff(ctx, h.ID, "p1", models.TariffStandard)
	require.NoError(t, err)
	require.Len(t, updated.Monetization, 1)
	activation := updated.Monetization[0]
	assert.Equal(t, models.TariffStandard, activation.Tariff)
	assert.True(t, activation.ActivationDate.Equal(svc.now()))
	assert.True(t, activation.ExpirationDate.Equal(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)), "expiration is clamped to the end of april")
	assert.Equal(t, 2490, activation.Cost)

	updated, err = svc.AddTariff(ctx, h.ID, "p1", models.TariffBasic)
	require.NoError(t, err)
	assert.Len(t, updated.Monetization, 2)

	tests := []struct {
		name       string
		hobbyID    string
		providerID string
		tariff     models.TariffPlan
		wantKind   apperr.Kind
	}{
		{name: "not owner", hobbyID: h.ID, providerID: "p2", tariff: models.TariffBasic, wantKind: apperr.Forbidden},
		{name: "unknown tariff", hobbyID: h.ID, providerID: "p1", tariff: models.TariffPlan(42), wantKind: apperr.InvalidArgument},
		{name: "unknown hobby", hobbyID: "missing", providerID: "p1", tariff: models.TariffBasic, wantKind: apperr.NotFound},
		{name: "empty hobby", hobbyID: "", providerID: "p1", tariff: models.TariffBasic, wantKind: apperr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTariff(ctx, tt.hobbyID, tt.providerID, tt.tariff)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}
