// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, resource, system
	Action   string   // ユーザー向け対処方法
	Details  []string // 検証エラーの詳細（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeQuestionNotFound   = "QUESTION_NOT_FOUND"
	ErrCodeAllergyNotFound    = "ALLERGY_NOT_FOUND"
	ErrCodePictureNotFound    = "PICTURE_NOT_FOUND"
)

// NewInvalidCredentialsError はユーザー名またはパスワード不一致のエラーを生成する。
// ユーザー名の存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid username or password.",
		Category: "auth",
		Action:   "Check your credentials and try again.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Log in and retry the request.",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセス拒否エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You are not allowed to access this resource.",
		Category: "auth",
		Action:   "Use an account that owns or supervises this record.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string, details ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Fix the listed fields and resubmit.",
		Details:  details,
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request body could not be parsed.",
		Category: "validation",
		Action:   "Send a valid JSON document.",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("The username is already taken: %s", username),
		Category: "validation",
		Action:   "Choose a different username.",
	}
}

// NewTooManyAttemptsError はログイン試行回数超過エラーを生成する。
func NewTooManyAttemptsError() *APIError {
	return &APIError{
		Code:     ErrCodeTooManyAttempts,
		Message:  "Too many failed login attempts.",
		Category: "auth",
		Action:   "Wait a few minutes before trying again.",
	}
}

// NewRateLimitError はリクエストレート超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("User not found: %s", userID),
		Category: "resource",
		Action:   "Check the user id.",
	}
}

// NewQuestionNotFoundError は質問が見つからない場合のエラーを生成する。
func NewQuestionNotFoundError(questionID string) *APIError {
	return &APIError{
		Code:     ErrCodeQuestionNotFound,
		Message:  fmt.Sprintf("Question not found: %s", questionID),
		Category: "resource",
		Action:   "Check the question id.",
	}
}

// NewAllergyNotFoundError はアレルギー記録が見つからない場合のエラーを生成する。
func NewAllergyNotFoundError(allergyID string) *APIError {
	return &APIError{
		Code:     ErrCodeAllergyNotFound,
		Message:  fmt.Sprintf("Allergy not found: %s", allergyID),
		Category: "resource",
		Action:   "Check the allergy id.",
	}
}

// NewPictureNotFoundError は画像が見つからない場合のエラーを生成する。
func NewPictureNotFoundError(pictureID string) *APIError {
	return &APIError{
		Code:     ErrCodePictureNotFound,
		Message:  fmt.Sprintf("Picture not found: %s", pictureID),
		Category: "resource",
		Action:   "Check the picture id.",
	}
}
