package model

import "time"

// ContactKind は連絡先の種別を表す。
type ContactKind string

const (
	ContactKindRelative ContactKind = "relative"
	ContactKindDoctor   ContactKind = "doctor"
	ContactKindFriend   ContactKind = "friend"
)

// Valid は定義済みの種別かを返す。
func (k ContactKind) Valid() bool {
	switch k {
	case ContactKindRelative, ContactKindDoctor, ContactKindFriend:
		return true
	}
	return false
}

// Contact はユーザーの連絡先（家族、医師、友人）を表す。
type Contact struct {
	ID          string
	UserID      string
	Name        string
	Surname     string
	Telephone   string
	Description string
	Picture     *string // 画像URL
	Nickname    string
	Kind        ContactKind
	CreatedAt   time.Time
}

// Picture は保存済みメディアへのURL参照を表す。
// 複数のQuestionから共有される。
type Picture struct {
	ID        string
	URL       string
	CreatedAt time.Time
}

// Question はユーザーに提示する画像付きの質問と、その回答を表す。
type Question struct {
	ID         string
	UserID     string
	PictureID  *string
	Picture    *Picture // 一覧・取得時にJOINで埋める
	Title      string
	Answer     *string
	AnsweredAt *time.Time
	CreatedAt  time.Time
}

// Emotion はユーザーが記録した感情を表す。
type Emotion struct {
	ID         string
	UserID     string
	Kind       string
	Intensity  int // 1〜5
	Note       string
	RecordedAt time.Time
}

// AllergySeverity はアレルギーの重症度を表す。
type AllergySeverity string

const (
	AllergySeverityMild     AllergySeverity = "mild"
	AllergySeverityModerate AllergySeverity = "moderate"
	AllergySeveritySevere   AllergySeverity = "severe"
)

// Valid は定義済みの重症度かを返す。
func (s AllergySeverity) Valid() bool {
	switch s {
	case AllergySeverityMild, AllergySeverityModerate, AllergySeveritySevere:
		return true
	}
	return false
}

// Allergy はユーザーのアレルギー情報を表す。
type Allergy struct {
	ID        string
	UserID    string
	Name      string
	Severity  AllergySeverity
	Reaction  string
	Notes     string
	CreatedAt time.Time
}

// Event はユーザーの予定（通院、イベント等）を表す。
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
}

// Position はユーザー端末から送信された位置情報を表す。
type Position struct {
	ID         string
	UserID     string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64 // メートル
	RecordedAt time.Time
}
