package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRecoveryQuestionRoundTrip(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Любимый цвет?", "Синий", "")
	ctx := context.Background()

	q, err := env.svc.SecurityQuestion(ctx)
	if err != nil {
		t.Fatalf("SecurityQuestion: %v", err)
	}
	if q != "Любимый цвет?" {
		t.Errorf("question = %q", q)
	}

	// Ответ в другом регистре и с пробелами проходит: сравнение нормализованное.
	resetToken, err := env.svc.AnswerQuestion(ctx, "  сИнИй ", "10.0.0.1")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if resetToken == "" {
		t.Fatal("empty reset token")
	}

	if err := env.svc.ResetMasterKey(ctx, resetToken, "new-master-key"); err != nil {
		t.Fatalf("ResetMasterKey: %v", err)
	}

	if _, err := env.svc.DeanLogin(ctx, "old-master-key", "", ""); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("old key must stop working, got %v", err)
	}
	if _, err := env.svc.DeanLogin(ctx, "new-master-key", "", ""); err != nil {
		t.Errorf("new key must work: %v", err)
	}
}

func TestRecoveryIncorrectAnswer(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Любимый цвет?", "Синий", "")

	if _, err := env.svc.AnswerQuestion(context.Background(), "Красный", "10.0.0.1"); !errors.Is(err, ErrIncorrectAnswer) {
		t.Errorf("got %v, want ErrIncorrectAnswer", err)
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Вопрос?", "ответ", "")
	ctx := context.Background()

	tok, err := env.svc.AnswerQuestion(ctx, "ответ", "10.0.0.1")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if err := env.svc.ResetMasterKey(ctx, tok, "first-new-key"); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if err := env.svc.ResetMasterKey(ctx, tok, "second-new-key"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token reuse: got %v, want ErrTokenInvalid", err)
	}
}

func TestResetTokenSupersededByKeyChange(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Вопрос?", "ответ", "")
	ctx := context.Background()

	first, err := env.svc.AnswerQuestion(ctx, "ответ", "10.0.0.1")
	if err != nil {
		t.Fatalf("AnswerQuestion first: %v", err)
	}
	second, err := env.svc.AnswerQuestion(ctx, "ответ", "10.0.0.2")
	if err != nil {
		t.Fatalf("AnswerQuestion second: %v", err)
	}
	// Второй токен сработал — ключ сменился, снимок первого токена устарел.
	if err := env.svc.ResetMasterKey(ctx, second, "brand-new-key"); err != nil {
		t.Fatalf("reset with second token: %v", err)
	}
	if err := env.svc.ResetMasterKey(ctx, first, "another-key99"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("stale token: got %v, want ErrTokenInvalid", err)
	}
}

func TestResetMasterKeyTooShort(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Вопрос?", "ответ", "")
	ctx := context.Background()

	tok, err := env.svc.AnswerQuestion(ctx, "ответ", "10.0.0.1")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if err := env.svc.ResetMasterKey(ctx, tok, "short"); !errors.Is(err, ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
	// Валидация срабатывает до потребления токена — он остаётся годным.
	if err := env.svc.ResetMasterKey(ctx, tok, "long-enough-key"); err != nil {
		t.Errorf("token must survive a failed validation: %v", err)
	}
}

func TestBackupCodeFlow(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "", "", "")
	ctx := context.Background()

	code, err := env.svc.GenerateBackupCode(ctx)
	if err != nil {
		t.Fatalf("GenerateBackupCode: %v", err)
	}
	if len(code) != 14 || code[4] != '-' || code[9] != '-' {
		t.Fatalf("unexpected code format: %q", code)
	}
	for _, r := range strings.ReplaceAll(code, "-", "") {
		if !strings.ContainsRune(backupCodeAlphabet, r) {
			t.Fatalf("code %q contains %q outside alphabet", code, r)
		}
	}

	// Код принимается и в нижнем регистре.
	tok, err := env.svc.SubmitBackupCode(ctx, strings.ToLower(code), "10.0.0.1")
	if err != nil {
		t.Fatalf("SubmitBackupCode: %v", err)
	}
	if err := env.svc.ResetMasterKey(ctx, tok, "recovered-key"); err != nil {
		t.Fatalf("ResetMasterKey: %v", err)
	}

	// Ротация делает старый код недействительным.
	if _, err := env.svc.GenerateBackupCode(ctx); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := env.svc.SubmitBackupCode(ctx, code, "10.0.0.3"); !errors.Is(err, ErrIncorrectAnswer) {
		t.Errorf("old code after rotation: got %v, want ErrIncorrectAnswer", err)
	}
}

func TestRecoveryRateLimit(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Вопрос?", "ответ", "")
	ctx := context.Background()

	var limited bool
	for i := 0; i < 15; i++ {
		_, err := env.svc.AnswerQuestion(ctx, "неверный", "10.0.0.9")
		if errors.Is(err, ErrRateLimitExceeded) {
			limited = true
			break
		}
		if !errors.Is(err, ErrIncorrectAnswer) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if !limited {
		t.Error("rate limit never triggered after 15 attempts")
	}
}

func TestUpdateConfig(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("old-master-key", "Старый вопрос?", "старый", "")
	ctx := context.Background()

	if err := env.svc.UpdateConfig(ctx, ConfigUpdate{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty update: got %v, want ErrValidation", err)
	}
	if err := env.svc.UpdateConfig(ctx, ConfigUpdate{SecurityQuestion: "Новый вопрос?"}); !errors.Is(err, ErrValidation) {
		t.Errorf("question without answer: got %v, want ErrValidation", err)
	}

	err := env.svc.UpdateConfig(ctx, ConfigUpdate{
		NewMasterKey:     "updated-master-key",
		SecurityQuestion: "Новый вопрос?",
		SecurityAnswer:   "Новый",
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if _, err := env.svc.DeanLogin(ctx, "updated-master-key", "", ""); err != nil {
		t.Errorf("login with updated key: %v", err)
	}
	if _, err := env.svc.AnswerQuestion(ctx, "новый", "10.0.0.7"); err != nil {
		t.Errorf("answer to updated question: %v", err)
	}
}

func TestEnsureDeanConfig(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.svc.EnsureDeanConfig(ctx, "seeded-master-key", "Вопрос?", "ответ"); err != nil {
		t.Fatalf("EnsureDeanConfig: %v", err)
	}
	if _, err := env.svc.DeanLogin(ctx, "seeded-master-key", "", ""); err != nil {
		t.Errorf("login after seed: %v", err)
	}
	// Повторный вызов не перетирает существующий конфиг.
	if err := env.svc.EnsureDeanConfig(ctx, "different-key-123", "", ""); err != nil {
		t.Fatalf("second EnsureDeanConfig: %v", err)
	}
	if _, err := env.svc.DeanLogin(ctx, "seeded-master-key", "", ""); err != nil {
		t.Errorf("original key must survive a repeated seed: %v", err)
	}
}
