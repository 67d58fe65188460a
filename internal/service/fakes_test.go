package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/storage/memory"
)

// Фейковые сторы повторяют контракт pgx-репозиториев, включая repository.ErrNotFound.

type fakeConfigStore struct {
	mu  sync.Mutex
	cfg *model.DeanConfig
}

func (f *fakeConfigStore) Get(ctx context.Context) (*model.DeanConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return nil, repository.ErrNotFound
	}
	c := *f.cfg
	return &c, nil
}

func (f *fakeConfigStore) Create(ctx context.Context, c *model.DeanConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.cfg = &cp
	return nil
}

func (f *fakeConfigStore) UpdateMasterKey(ctx context.Context, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return repository.ErrNotFound
	}
	f.cfg.MasterKeyHash = hash
	f.cfg.LastChanged = at
	return nil
}

func (f *fakeConfigStore) UpdateSecurity(ctx context.Context, question, answerHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return repository.ErrNotFound
	}
	f.cfg.SecurityQuestion = question
	f.cfg.SecurityAnswerHash = answerHash
	return nil
}

func (f *fakeConfigStore) UpdateBackupCode(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return repository.ErrNotFound
	}
	f.cfg.BackupCodeHash = hash
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.Session)}
}

func sessKey(kind model.SessionKind, id string) string { return string(kind) + "/" + id }

func (f *fakeSessionStore) put(s *model.Session) {
	cp := *s
	f.sessions[sessKey(s.Kind, s.ID)] = &cp
}

func (f *fakeSessionStore) CreateDean(ctx context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(s)
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, kind model.SessionKind, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessKey(kind, id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) UpdateLastSeen(ctx context.Context, kind model.SessionKind, id string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessKey(kind, id)]; ok && s.RevokedAt == nil {
		s.LastSeenAt = t
	}
	return nil
}

func (f *fakeSessionStore) Revoke(ctx context.Context, kind model.SessionKind, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessKey(kind, id)]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	return true, nil
}

func (f *fakeSessionStore) Exists(ctx context.Context, kind model.SessionKind, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[sessKey(kind, id)]
	return ok, nil
}

func (f *fakeSessionStore) ListAll(ctx context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []model.Session
	for _, s := range f.sessions {
		list = append(list, *s)
	}
	return list, nil
}

type fakeKeyStore struct {
	mu       sync.Mutex
	keys     map[string]*model.AccessKey
	sessions *fakeSessionStore
}

func newFakeKeyStore(sessions *fakeSessionStore) *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]*model.AccessKey), sessions: sessions}
}

func (f *fakeKeyStore) Create(ctx context.Context, k *model.AccessKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *k
	f.keys[k.Token] = &cp
	return nil
}

func (f *fakeKeyStore) GetByToken(ctx context.Context, token string) (*model.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

// Redeem повторяет транзакционную семантику репозитория: условное гашение
// и создание сессии под одним мьютексом.
func (f *fakeKeyStore) Redeem(ctx context.Context, token string, now time.Time, s *model.Session) (*model.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[token]
	if !ok || k.IsUsed || !k.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	k.IsUsed = true
	k.UsedAt = &now
	s.Role = k.Role
	f.sessions.mu.Lock()
	f.sessions.put(s)
	f.sessions.mu.Unlock()
	cp := *k
	return &cp, nil
}

func (f *fakeKeyStore) ListRecent(ctx context.Context, limit int) ([]model.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []model.AccessKey
	for _, k := range f.keys {
		list = append(list, *k)
	}
	return list, nil
}

type testEnv struct {
	svc      *AuthService
	cfg      *fakeConfigStore
	keys     *fakeKeyStore
	sessions *fakeSessionStore
}

func newTestEnv() *testEnv {
	cfg := &fakeConfigStore{}
	sessions := newFakeSessionStore()
	keys := newFakeKeyStore(sessions)
	svc := NewAuthService(cfg, keys, sessions, memory.New(), Options{
		SigningSecret: "test-signing-secret",
		BcryptCost:    bcrypt.MinCost,
		SessionTTL:    time.Hour,
		ResetTokenTTL: 15 * time.Minute,
	})
	return &testEnv{svc: svc, cfg: cfg, keys: keys, sessions: sessions}
}

func mustHash(plain string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// seedConfig кладёт конфиг декана напрямую, минуя EnsureDeanConfig.
func (e *testEnv) seedConfig(masterKey, question, answer, backupCode string) {
	cfg := &model.DeanConfig{
		ID:            model.DeanConfigID,
		MasterKeyHash: mustHash(masterKey),
		LastChanged:   time.Now().UTC(),
	}
	if question != "" {
		cfg.SecurityQuestion = question
		cfg.SecurityAnswerHash = mustHash(normalizeAnswer(answer))
	}
	if backupCode != "" {
		cfg.BackupCodeHash = mustHash(normalizeBackupCode(backupCode))
	}
	e.cfg.cfg = cfg
}
