// Package hobby реализует карточки хобби: создание, поиск, редактирование владельцем
// и подключение платных тарифов.
package hobby

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
	"github.com/magabrotheeeer/hobbyfinder/internal/models"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/guard"
	"github.com/magabrotheeeer/hobbyfinder/internal/services/media"
	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

// HobbyRepository хранилище хобби.
type HobbyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Hobby, error)
	Find(ctx context.Context, filter storage.Filter) ([]*models.Hobby, error)
	Create(ctx context.Context, h *models.Hobby) (*models.Hobby, error)
	UpdateByID(ctx context.Context, id string, fields storage.Fields) (*models.Hobby, error)
}

// ProviderFinder поиск партнера по идентификатору.
type ProviderFinder interface {
	FindByID(ctx context.Context, id string) (*models.Provider, error)
}

// Service сервис хобби.
type Service struct {
	hobbies   HobbyRepository
	providers ProviderFinder
	uploader  media.Uploader
	log       *slog.Logger
	now       func() time.Time
}

// NewService создает сервис хобби.
func NewService(hobbies HobbyRepository, providers ProviderFinder, uploader media.Uploader, log *slog.Logger) *Service {
	return &Service{
		hobbies:   hobbies,
		providers: providers,
		uploader:  uploader,
		log:       log,
		now:       time.Now,
	}
}

// AddHobby создает хобби, принадлежащее партнеру providerID. avatar может быть nil.
func (s *Service) AddHobby(ctx context.Context, providerID string, fields models.HobbyFields, avatar *blob.File) (*models.Hobby, error) {
	const op = "hobby.AddHobby"

	if strings.TrimSpace(fields.Label) == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано название хобби")
	}
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		return nil, err
	}

	h := &models.Hobby{
		Label:               strings.TrimSpace(fields.Label),
		Phone:               fields.Phone,
		Email:               fields.Email,
		Website:             fields.Website,
		Contacts:            fields.Contacts,
		Address:             fields.Address,
		Location:            fields.Location,
		MetroStation:        fields.MetroStation,
		MetroID:             fields.MetroID,
		Description:         fields.Description,
		ShortDescription:    fields.ShortDescription,
		Owner:               providerID,
		Subscribers:         []string{},
		ProviderSubscribers: []string{},
		Category:            fields.Category,
		Rating:              0,
		Comments:            []string{},
		Parking:             fields.Parking,
		Equipment:           fields.Equipment,
		Novice:              fields.Novice,
		Children:            fields.Children,
		Facilities:          fields.Facilities,
		Special:             fields.Special,
		Price:               fields.Price,
		Monetization:        []models.TariffActivation{},
		WorkTime:            fields.WorkTime,
	}
	if h.WorkTime == nil {
		h.WorkTime = []string{}
	}
	if avatar != nil {
		url, err := media.UploadImage(ctx, s.uploader, media.BucketHobbies, *avatar)
		if err != nil {
			return nil, err
		}
		h.Avatar = url
	}

	created, err := s.hobbies.Create(ctx, h)
	if err != nil {
		return nil, err
	}
	s.log.Info("hobby created", slog.String("op", op), slog.String("hobby_id", created.ID), slog.String("owner", providerID))
	return created, nil
}

// FindByLabel ищет хобби по подстроке названия без учета регистра.
// metroID учитывается, только если это число.
func (s *Service) FindByLabel(ctx context.Context, label, metroID string) ([]*models.Hobby, error) {
	const op = "hobby.FindByLabel"
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано название для поиска")
	}
	filter := storage.Where(storage.Contains("label", label))
	if id, err := strconv.Atoi(strings.TrimSpace(metroID)); err == nil {
		filter = filter.And(storage.Eq("metroId", id))
	}
	return s.hobbies.Find(ctx, filter)
}

// HobbyInfo возвращает хобби по идентификатору.
func (s *Service) HobbyInfo(ctx context.Context, hobbyID string) (*models.Hobby, error) {
	const op = "hobby.HobbyInfo"
	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}
	return s.hobbies.FindByID(ctx, hobbyID)
}

// All возвращает все хобби.
func (s *Service) All(ctx context.Context) ([]*models.Hobby, error) {
	return s.hobbies.Find(ctx, storage.Filter{})
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
)

// filterable поля, по которым разрешена фильтрация.
var filterable = map[string]fieldKind{
	"category":     kindString,
	"metroStation": kindString,
	"metroId":      kindInt,
	"owner":        kindString,
	"parking":      kindBool,
	"equipment":    kindBool,
	"novice":       kindBool,
	"children":     kindBool,
}

// Filtered возвращает хобби, у которых поля равны переданным значениям.
func (s *Service) Filtered(ctx context.Context, filters map[string]string) ([]*models.Hobby, error) {
	const op = "hobby.Filtered"

	conds := make([]storage.Cond, 0, len(filters))
	for field, raw := range filters {
		kind, ok := filterable[field]
		if !ok {
			return nil, apperr.New(apperr.InvalidArgument, op, "Недопустимое поле фильтра: "+field)
		}
		switch kind {
		case kindInt:
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, apperr.New(apperr.InvalidArgument, op, "Поле "+field+" должно быть числом")
			}
			conds = append(conds, storage.Eq(field, v))
		case kindBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, apperr.New(apperr.InvalidArgument, op, "Поле "+field+" должно быть true или false")
			}
			conds = append(conds, storage.Eq(field, v))
		default:
			conds = append(conds, storage.Eq(field, raw))
		}
	}
	return s.hobbies.Find(ctx, storage.Where(conds...))
}

// protected поля, которые нельзя менять через редактирование.
var protected = map[string]bool{
	"id":                  true,
	"owner":               true,
	"subscribers":         true,
	"providerSubscribers": true,
	"comments":            true,
	"rating":              true,
	"monetization":        true,
}

// editable поля, которые владелец может менять.
var editable = map[string]bool{
	"label": true, "phone": true, "email": true, "website": true, "contacts": true,
	"address": true, "location": true, "metroStation": true, "metroId": true,
	"description": true, "shortDescription": true, "avatar": true, "category": true,
	"parking": true, "equipment": true, "novice": true, "children": true,
	"facilities": true, "special": true, "price": true, "workTime": true,
}

// EditHobby частично обновляет хобби. Доступно только владельцу.
func (s *Service) EditHobby(ctx context.Context, providerID, hobbyID string, patch map[string]any) (*models.Hobby, error) {
	const op = "hobby.EditHobby"
	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}

	h, err := s.hobbies.FindByID(ctx, hobbyID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwnership(h, providerID); err != nil {
		return nil, err
	}

	if len(patch) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, op, "Нет полей для обновления")
	}
	for field := range patch {
		if protected[field] {
			return nil, apperr.New(apperr.InvalidArgument, op, "Поле нельзя изменить: "+field)
		}
		if !editable[field] {
			return nil, apperr.New(apperr.InvalidArgument, op, "Неизвестное поле: "+field)
		}
	}
	if err := checkTypes(patch); err != nil {
		return nil, &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Msg: "Некорректные значения полей", Err: err}
	}
	if label, ok := patch["label"]; ok {
		if str, _ := label.(string); strings.TrimSpace(str) == "" {
			return nil, apperr.New(apperr.InvalidArgument, op, "Название хобби не может быть пустым")
		}
	}

	updated, err := s.hobbies.UpdateByID(ctx, hobbyID, storage.Fields(patch))
	if err != nil {
		return nil, err
	}
	s.log.Info("hobby updated", slog.String("op", op), slog.String("hobby_id", hobbyID))
	return updated, nil
}

// checkTypes проверяет, что значения полей подходят под типы карточки хобби.
func checkTypes(patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var probe models.Hobby
	return dec.Decode(&probe)
}

// AddTariff подключает тариф к хобби. Доступно только владельцу.
func (s *Service) AddTariff(ctx context.Context, hobbyID, providerID string, tariff models.TariffPlan) (*models.Hobby, error) {
	const op = "hobby.AddTariff"
	if hobbyID == "" {
		return nil, apperr.New(apperr.InvalidArgument, op, "Не указано хобби")
	}
	if !tariff.Valid() {
		return nil, apperr.New(apperr.InvalidArgument, op, "Неизвестный тариф")
	}

	h, err := s.hobbies.FindByID(ctx, hobbyID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwnership(h, providerID); err != nil {
		return nil, err
	}

	activation := tariff.Activate(s.now().UTC())
	monetization := append(append(make([]models.TariffActivation, 0, len(h.Monetization)+1), h.Monetization...), activation)
	updated, err := s.hobbies.UpdateByID(ctx, hobbyID, storage.Fields{"monetization": monetization})
	if err != nil {
		return nil, err
	}
	s.log.Info("tariff activated",
		slog.String("op", op),
		slog.String("hobby_id", hobbyID),
		slog.Int("tariff", int(tariff)),
		slog.Time("expires", activation.ExpirationDate),
	)
	return updated, nil
}
