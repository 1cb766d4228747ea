// Package password реализует хэширование и проверку паролей участников.
//
// Hasher создает bcrypt-хэш пароля для хранения и сравнивает введенный пароль с хэшем.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher хэширует пароли bcrypt с заданной стоимостью.
type Hasher struct {
	cost int
}

// NewHasher создает Hasher. Стоимость вне допустимого диапазона bcrypt заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сообщает, соответствует ли пароль хэшу. Некорректный хэш считается несовпадением.
func (h *Hasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
