package handler

import (
	"time"

	"github.com/healthpass/healthpass/internal/model"
)

// patientResponse は患者情報のAPIレスポンス。
type patientResponse struct {
	DisabilityLevel    int `json:"disability_level"`
	UnderstandingLevel int `json:"understanding_level"`
	CommunicationType  int `json:"communication_type"`
	SupportHours       int `json:"support_hours"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Name      string           `json:"name"`
	Surname   string           `json:"surname"`
	Email     string           `json:"email"`
	Role      model.Role       `json:"role"`
	Telephone string           `json:"telephone"`
	Patient   *patientResponse `json:"patient,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type pictureResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type questionResponse struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	PictureID  *string          `json:"picture_id"`
	Picture    *pictureResponse `json:"picture,omitempty"`
	Title      string           `json:"title"`
	Answer     *string          `json:"answer"`
	AnsweredAt *time.Time       `json:"answered_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

type contactResponse struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Surname     string            `json:"surname"`
	Telephone   string            `json:"telephone"`
	Description string            `json:"description"`
	Picture     *string           `json:"picture"`
	Nickname    string            `json:"nickname"`
	Kind        model.ContactKind `json:"kind"`
	CreatedAt   time.Time         `json:"created_at"`
}

type emotionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Intensity  int       `json:"intensity"`
	Note       string    `json:"note"`
	RecordedAt time.Time `json:"recorded_at"`
}

type allergyResponse struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Name      string                `json:"name"`
	Severity  model.AllergySeverity `json:"severity"`
	Reaction  string                `json:"reaction"`
	Notes     string                `json:"notes"`
	CreatedAt time.Time             `json:"created_at"`
}

type eventResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type positionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Surname:   u.Surname,
		Email:     u.Email,
		Role:      u.Role,
		Telephone: u.Telephone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Patient != nil {
		resp.Patient = &patientResponse{
			DisabilityLevel:    u.Patient.DisabilityLevel,
			UnderstandingLevel: u.Patient.UnderstandingLevel,
			CommunicationType:  u.Patient.CommunicationType,
			SupportHours:       u.Patient.SupportHours,
		}
	}
	return resp
}

func toPictureResponse(p *model.Picture) pictureResponse {
	return pictureResponse{ID: p.ID, URL: p.URL, CreatedAt: p.CreatedAt}
}

func toQuestionResponse(q *model.Question) questionResponse {
	resp := questionResponse{
		ID:         q.ID,
		UserID:     q.UserID,
		PictureID:  q.PictureID,
		Title:      q.Title,
		Answer:     q.Answer,
		AnsweredAt: q.AnsweredAt,
		CreatedAt:  q.CreatedAt,
	}
	if q.Picture != nil {
		p := toPictureResponse(q.Picture)
		resp.Picture = &p
	}
	return resp
}

func toContactResponse(c *model.Contact) contactResponse {
	return contactResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Surname:     c.Surname,
		Telephone:   c.Telephone,
		Description: c.Description,
		Picture:     c.Picture,
		Nickname:    c.Nickname,
		Kind:        c.Kind,
		CreatedAt:   c.CreatedAt,
	}
}

func toEmotionResponse(e *model.Emotion) emotionResponse {
	return emotionResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		Kind:       e.Kind,
		Intensity:  e.Intensity,
		Note:       e.Note,
		RecordedAt: e.RecordedAt,
	}
}

func toAllergyResponse(a *model.Allergy) allergyResponse {
	return allergyResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Severity:  a.Severity,
		Reaction:  a.Reaction,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		CreatedAt:   e.CreatedAt,
	}
}

func toPositionResponse(p *model.Position) positionResponse {
	return positionResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Accuracy:   p.Accuracy,
		RecordedAt: p.RecordedAt,
	}
}

// mapSlice は一覧レスポンスを生成する。空の場合もnullではなく[]を返す。
func mapSlice[T any, R any](items []*T, conv func(*T) R) []R {
	out := make([]R, len(items))
	for i, it := range items {
		out[i] = conv(it)
	}
	return out
}
