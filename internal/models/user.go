// Package models содержит доменные сущности платформы: пользователей, партнеров,
// хобби и комментарии, а также их представления для ответа клиенту.
// Ссылки между сущностями хранятся как списки идентификаторов.
package models

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"` // bcrypt-хэш пароля
	Avatar   string   `json:"avatar,omitempty"`
	Hobbies  []string `json:"hobbies"`  // хобби, на которые подписан пользователь
	Comments []string `json:"comments"` // комментарии, оставленные пользователем
}

// UserInfo публичное представление пользователя.
type UserInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Info возвращает публичное представление пользователя без хэша пароля.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserProfile данные для регистрации пользователя.
type UserProfile struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// UserPatch частичное обновление пользователя. nil-поля не меняются.
type UserPatch struct {
	Name     *string `json:"name,omitempty" form:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" form:"password" validate:"omitempty,min=6"`
}
