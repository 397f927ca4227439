package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/healthpass/healthpass/internal/model"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

func TestNewValidator_RegistersAllSchemas(t *testing.T) {
	v := newTestValidator(t)

	for _, name := range []string{
		UserCreate, UserUpdate, QuestionCreate, QuestionAnswer, EmotionCreate,
		AllergyCreate, ContactCreate, EventCreate, PositionCreate, PictureCreate,
	} {
		if !v.HasSchema(name) {
			t.Errorf("schema %q is not registered", name)
		}
	}
}

func TestValidate(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name     string
		schema   string
		body     string
		wantCode string // 空なら成功
	}{
		{"ユーザー作成: 正常", UserCreate, `{"username":"nicolagreco","password":"pass","role":"patient","patient":{"support_hours":12}}`, ""},
		{"ユーザー作成: パスワード欠落", UserCreate, `{"username":"nicolagreco"}`, model.ErrCodeValidation},
		{"ユーザー作成: 不正なrole", UserCreate, `{"username":"nicolagreco","password":"pass","role":"admin"}`, model.ErrCodeValidation},
		{"ユーザー作成: 未知のフィールド", UserCreate, `{"username":"nicolagreco","password":"pass","admin":true}`, model.ErrCodeValidation},
		{"ユーザー更新: 空オブジェクト", UserUpdate, `{}`, ""},
		{"感情: intensity範囲外", EmotionCreate, `{"kind":"happy","intensity":6}`, model.ErrCodeValidation},
		{"感情: 正常", EmotionCreate, `{"kind":"happy","intensity":5,"recorded_at":"2026-01-02T10:00:00Z"}`, ""},
		{"感情: 不正な日時", EmotionCreate, `{"kind":"happy","intensity":3,"recorded_at":"yesterday"}`, model.ErrCodeValidation},
		{"アレルギー: 不正なseverity", AllergyCreate, `{"name":"Pollen","severity":"fatal"}`, model.ErrCodeValidation},
		{"連絡先: 画像null", ContactCreate, `{"name":"Enrico","kind":"relative","picture":null}`, ""},
		{"予定: 開始日時欠落", EventCreate, `{"title":"Visit"}`, model.ErrCodeValidation},
		{"位置: 緯度範囲外", PositionCreate, `{"latitude":91,"longitude":0}`, model.ErrCodeValidation},
		{"質問: 不正なpicture_id", QuestionCreate, `{"title":"q","picture_id":"not-a-uuid"}`, model.ErrCodeValidation},
		{"画像: URL", PictureCreate, `{"url":"http://example.com/apple.jpg","mirror":true}`, ""},
		{"壊れたJSON", UserCreate, `{"username":`, model.ErrCodeInvalidRequest},
		{"空ボディ", AllergyCreate, ``, model.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, []byte(tt.body))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidate_DetailsNameTheField(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(AllergyCreate, []byte(`{"severity":"mild"}`))
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if len(apiErr.Details) == 0 || !strings.Contains(strings.Join(apiErr.Details, ";"), "name") {
		t.Errorf("details should mention the missing field: %v", apiErr.Details)
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate("nope", []byte(`{}`))
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("expected plain error for unknown schema, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	v := newTestValidator(t)

	var dst struct {
		Name     string `json:"name"`
		Severity string `json:"severity"`
	}
	if err := v.Decode(AllergyCreate, []byte(`{"name":"Pollen","severity":"mild"}`), &dst); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if dst.Name != "Pollen" || dst.Severity != "mild" {
		t.Errorf("unexpected decode result: %+v", dst)
	}
}
