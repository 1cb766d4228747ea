package models

// Identity участник, от имени которого выполняется запрос.
// Нулевое значение означает анонимный запрос.
type Identity struct {
	Type ParticipantType
	ID   string
}

// Authenticated сообщает, что запрос выполняется от имени участника типа t.
func (i Identity) Authenticated(t ParticipantType) bool {
	return i.ID != "" && i.Type == t
}

// UserIdentity создает идентичность пользователя.
func UserIdentity(id string) Identity {
	return Identity{Type: ParticipantUser, ID: id}
}

// ProviderIdentity создает идентичность партнера.
func ProviderIdentity(id string) Identity {
	return Identity{Type: ParticipantProvider, ID: id}
}
