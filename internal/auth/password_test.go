package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthpass/healthpass/internal/model"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("pass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "pass" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("unexpected hash format: %q", hash)
	}

	ok, err := h.Compare(hash, "pass")
	if err != nil || !ok {
		t.Errorf("Compare(correct) = %v, %v", ok, err)
	}
	ok, err = h.Compare(hash, "wrong")
	if err != nil || ok {
		t.Errorf("Compare(wrong) = %v, %v", ok, err)
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("expected different hashes for the same password")
	}
}

func TestBcryptHasher_InvalidHashReturnsError(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MinCost).Compare("not-a-hash", "pass"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestNewBcryptHasher_OutOfRangeCostUsesDefault(t *testing.T) {
	if got := NewBcryptHasher(1).cost; got != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", got, bcrypt.DefaultCost)
	}
}

// TestBcryptHasher_TooLongPassword_ValidationError は72バイト超のパスワードが
// 入力エラーとして返ることを検証する。文字数ではなくバイト数で判定される。
func TestBcryptHasher_TooLongPassword_ValidationError(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("é", 40))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("Hash(80 bytes) error = %v, want VALIDATION_ERROR", err)
	}
}
