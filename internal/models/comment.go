package models

import "time"

// ParticipantType тип участника платформы.
type ParticipantType int

const (
	ParticipantUser ParticipantType = iota
	ParticipantProvider
)

func (t ParticipantType) String() string {
	if t == ParticipantProvider {
		return "provider"
	}
	return "user"
}

// Author автор комментария.
type Author struct {
	Type ParticipantType `json:"type"`
	ID   string          `json:"id"`
}

// Comment комментарий к хобби.
//
// RelatedComment выставляется у более раннего комментария, когда на него
// приходит ответ, и указывает на этот ответ.
type Comment struct {
	ID             string    `json:"id"`
	Hobby          string    `json:"hobby"`
	Text           string    `json:"text"`
	Datetime       time.Time `json:"datetime"`
	Evaluation     *int      `json:"evaluation"`
	Author         Author    `json:"author"`
	RelatedComment *string   `json:"relatedComment"`
}

// Границы оценки хобби.
const (
	MinEvaluation = 1
	MaxEvaluation = 5
)

// Rated сообщает, участвует ли комментарий в рейтинге хобби.
// Evaluation, если задана, лежит в диапазоне MinEvaluation..MaxEvaluation:
// CreateComment отклоняет остальные значения.
func (c *Comment) Rated() bool {
	return c.Evaluation != nil && c.Author.Type == ParticipantUser
}

// CommentFields данные нового комментария.
// RelatedComment идентификатор комментария, на который дается ответ.
type CommentFields struct {
	Text           string    `json:"text" form:"text" validate:"required"`
	Datetime       time.Time `json:"datetime" form:"datetime"`
	Evaluation     *int      `json:"evaluation,omitempty" form:"evaluation" validate:"omitempty,min=1,max=5"`
	Author         Author    `json:"-" form:"-"`
	RelatedComment string    `json:"-" form:"-"`
}

// CommentAnswer ответ на комментарий.
type CommentAnswer struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Datetime time.Time `json:"datetime"`
	Author   Author    `json:"author"`
}

// CommentInfo представление комментария вместе с ответом на него.
type CommentInfo struct {
	ID         string         `json:"id"`
	Hobby      string         `json:"hobby"`
	Text       string         `json:"text"`
	Datetime   time.Time      `json:"datetime"`
	Evaluation *int           `json:"evaluation"`
	Author     Author         `json:"author"`
	Answer     *CommentAnswer `json:"answer,omitempty"`
}

// Info собирает представление комментария. answer может быть nil.
func (c *Comment) Info(answer *Comment) CommentInfo {
	info := CommentInfo{
		ID:         c.ID,
		Hobby:      c.Hobby,
		Text:       c.Text,
		Datetime:   c.Datetime,
		Evaluation: c.Evaluation,
		Author:     c.Author,
	}
	if answer != nil {
		info.Answer = &CommentAnswer{
			ID:       answer.ID,
			Text:     answer.Text,
			Datetime: answer.Datetime,
			Author:   answer.Author,
		}
	}
	return info
}
