package models

import (
	"slices"
	"time"

	"github.com/magabrotheeeer/hobbyfinder/internal/lib/month"
)

// TariffPlan платный тариф продвижения хобби.
type TariffPlan int

const (
	TariffBasic TariffPlan = iota + 1
	TariffStandard
	TariffPremium
)

type tariffTerms struct {
	months int
	cost   int
}

var tariffs = map[TariffPlan]tariffTerms{
	TariffBasic:    {months: 1, cost: 990},
	TariffStandard: {months: 3, cost: 2490},
	TariffPremium:  {months: 12, cost: 8990},
}

// Valid сообщает, известен ли тариф.
func (p TariffPlan) Valid() bool {
	_, ok := tariffs[p]
	return ok
}

// Activate возвращает запись о подключении тарифа с момента now.
// Срок считается в календарных месяцах с прижатием к концу месяца.
func (p TariffPlan) Activate(now time.Time) TariffActivation {
	terms := tariffs[p]
	return TariffActivation{
		Tariff:         p,
		ActivationDate: now,
		ExpirationDate: month.Add(now, terms.months),
		Cost:           terms.cost,
	}
}

// TariffActivation запись о подключении тарифа к хобби.
type TariffActivation struct {
	Tariff         TariffPlan `json:"tariff"`
	ActivationDate time.Time  `json:"activationDate"`
	ExpirationDate time.Time  `json:"expirationDate"`
	Cost           int        `json:"cost"`
}

// Price прайс хобби.
type Price struct {
	Title     string `json:"title,omitempty"`
	PriceList string `json:"priceList,omitempty"`
}

// Hobby карточка хобби, принадлежащая партнеру.
type Hobby struct {
	ID                  string             `json:"id"`
	Label               string             `json:"label"`
	Phone               string             `json:"phone,omitempty"`
	Email               string             `json:"email,omitempty"`
	Website             string             `json:"website,omitempty"`
	Contacts            map[string]string  `json:"contacts,omitempty"`
	Address             string             `json:"address,omitempty"`
	Location            string             `json:"location,omitempty"`
	MetroStation        string             `json:"metroStation,omitempty"`
	MetroID             *int               `json:"metroId,omitempty"`
	Description         string             `json:"description,omitempty"`
	ShortDescription    string             `json:"shortDescription,omitempty"`
	Owner               string             `json:"owner"`
	Subscribers         []string           `json:"subscribers"`
	ProviderSubscribers []string           `json:"providerSubscribers"`
	Avatar              string             `json:"avatar,omitempty"`
	Category            string             `json:"category,omitempty"`
	Rating              float64            `json:"rating"`
	Comments            []string           `json:"comments"`
	Parking             bool               `json:"parking"`
	Equipment           bool               `json:"equipment"`
	Novice              bool               `json:"novice"`
	Children            bool               `json:"children"`
	Facilities          string             `json:"facilities,omitempty"`
	Special             string             `json:"special,omitempty"`
	Price               Price              `json:"price"`
	Monetization        []TariffActivation `json:"monetization"`
	WorkTime            []string           `json:"workTime"`
}

// HasSubscriber сообщает, подписан ли пользователь на хобби.
func (h *Hobby) HasSubscriber(userID string) bool {
	return slices.Contains(h.Subscribers, userID)
}

// HasProviderSubscriber сообщает, подписан ли партнер на хобби.
func (h *Hobby) HasProviderSubscriber(providerID string) bool {
	return slices.Contains(h.ProviderSubscribers, providerID)
}

// HobbyFields данные для создания хобби.
type HobbyFields struct {
	Label            string            `json:"label" form:"label" validate:"required"`
	Phone            string            `json:"phone,omitempty" form:"phone" validate:"omitempty,e164"`
	Email            string            `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Website          string            `json:"website,omitempty" form:"website" validate:"omitempty,url"`
	Contacts         map[string]string `json:"contacts,omitempty" form:"contacts"`
	Address          string            `json:"address,omitempty" form:"address"`
	Location         string            `json:"location,omitempty" form:"location"`
	MetroStation     string            `json:"metroStation,omitempty" form:"metroStation"`
	MetroID          *int              `json:"metroId,omitempty" form:"metroId"`
	Description      string            `json:"description,omitempty" form:"description"`
	ShortDescription string            `json:"shortDescription,omitempty" form:"shortDescription" validate:"max=500"`
	Category         string            `json:"category,omitempty" form:"category"`
	Parking          bool              `json:"parking" form:"parking"`
	Equipment        bool              `json:"equipment" form:"equipment"`
	Novice           bool              `json:"novice" form:"novice"`
	Children         bool              `json:"children" form:"children"`
	Facilities       string            `json:"facilities,omitempty" form:"facilities"`
	Special          string            `json:"special,omitempty" form:"special"`
	Price            Price             `json:"price" form:"price"`
	WorkTime         []string          `json:"workTime" form:"workTime"`
}
