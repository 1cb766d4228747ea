package models

// Provider партнер, предоставляющий хобби.
type Provider struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Password        string   `json:"password"`
	Avatar          string   `json:"avatar,omitempty"`
	Info            string   `json:"info,omitempty"`
	FollowedHobbies []string `json:"followedHobbies"`
}

// ProviderInfo публичное представление партнера.
type ProviderInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Avatar          string   `json:"avatar,omitempty"`
	Info            string   `json:"info,omitempty"`
	FollowedHobbies []string `json:"followedHobbies"`
}

// Public возвращает представление партнера без хэша пароля.
func (p *Provider) Public() ProviderInfo {
	return ProviderInfo{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		Avatar:          p.Avatar,
		Info:            p.Info,
		FollowedHobbies: p.FollowedHobbies,
	}
}

// ProviderProfile данные для регистрации партнера.
type ProviderProfile struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone" validate:"required,e164"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	Info     string `json:"info,omitempty" form:"info" validate:"max=2000"`
}

// ProviderPatch частичное обновление партнера.
type ProviderPatch struct {
	Name     *string `json:"name,omitempty" form:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" form:"phone" validate:"omitempty,e164"`
	Password *string `json:"password,omitempty" form:"password" validate:"omitempty,min=6"`
	Info     *string `json:"info,omitempty" form:"info" validate:"omitempty,max=2000"`
}
