// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
	RoleDoctor    Role = "doctor"
)

// Valid は定義済みの役割かを返す。
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleCaregiver, RoleDoctor:
		return true
	}
	return false
}

// IsStaff は他ユーザーの記録を参照できる役割（医師・介護者）かを返す。
func (r Role) IsStaff() bool {
	return r == RoleDoctor || r == RoleCaregiver
}

// User はヘルスパスポートの利用者を表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには含めない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Name         string
	Surname      string
	Email        string
	Role         Role
	Telephone    string
	Patient      *Patient // role=patientの場合のみ存在しうる
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Patient は患者ユーザーの拡張情報を表す。Userと1対1で紐づく。
type Patient struct {
	UserID             string
	DisabilityLevel    int
	UnderstandingLevel int
	CommunicationType  int
	SupportHours       int
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
