// Package schema はリクエストボディをJSON Schemaで検証する。
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/healthpass/healthpass/internal/model"
)

// idPrefix は埋め込みスキーマの$idに共通する接頭辞。
const idPrefix = "https://healthpass.example.org/schemas/"

// スキーマ名。$idから接頭辞と拡張子を除いたもの。
const (
	UserCreate     = "user-create"
	UserUpdate     = "user-update"
	QuestionCreate = "question-create"
	QuestionAnswer = "question-answer"
	EmotionCreate  = "emotion-create"
	AllergyCreate  = "allergy-create"
	ContactCreate  = "contact-create"
	EventCreate    = "event-create"
	PositionCreate = "position-create"
	PictureCreate  = "picture-create"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator はコンパイル済みスキーマを保持する。
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator は埋め込みスキーマをすべてコンパイルしてValidatorを生成する。
func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("cannot read schema dir: %w", err)
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("cannot read schema %s: %w", e.Name(), err)
		}

		var header struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, fmt.Errorf("parse error in schema %s: %w", e.Name(), err)
		}
		if !strings.HasPrefix(header.ID, idPrefix) {
			return nil, fmt.Errorf("schema %s has unexpected $id %q", e.Name(), header.ID)
		}

		compiled, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", header.ID, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(header.ID, idPrefix), ".json")
		v.schemas[name] = compiled
	}

	return v, nil
}

// HasSchema は指定名のスキーマが登録済みかを返す。
func (v *Validator) HasSchema(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate はbodyを指定スキーマで検証する。
// JSONとして解析できない場合はINVALID_REQUEST、スキーマ違反はVALIDATION_ERRORの*model.APIErrorを返す。
func (v *Validator) Validate(name string, body []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("there is no schema %s", name)
	}
	if len(body) == 0 || !json.Valid(body) {
		return model.NewInvalidRequestError()
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return model.NewInvalidRequestError()
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	sort.Strings(details)
	return model.NewValidationError("The request body failed validation.", details...)
}

// Decode はbodyを検証してからdstへデコードする。
func (v *Validator) Decode(name string, body []byte, dst any) error {
	if err := v.Validate(name, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return model.NewInvalidRequestError()
	}
	return nil
}
