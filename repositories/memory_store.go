package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-wallet/models"
)

// Хранилище в памяти с версионированными документами. Транзакция читает копии,
// буферизует записи и при фиксации проверяет, что версии прочитанных документов
// не изменились. Используется в тестах и при STORE_DRIVER=memory.

type docKind string

const (
	docWallet     docKind = "wallet"
	docTournament docKind = "tournament"
	docDeposit    docKind = "deposit"
	docWithdrawal docKind = "withdrawal"
)

type docKey struct {
	kind docKind
	id   string
}

type storedDoc struct {
	version int64
	value   any
}

type memoryStore struct {
	mu     sync.RWMutex
	docs   map[docKey]*storedDoc
	policy RetryPolicy
	logger *slog.Logger
}

func NewMemoryLedgerStore(policy RetryPolicy, logger *slog.Logger) LedgerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &memoryStore{
		docs:   make(map[docKey]*storedDoc),
		policy: policy,
		logger: logger,
	}
}

func (s *memoryStore) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return runWithRetry(ctx, s.policy, s.logger, "memory", func(ctx context.Context) error {
		tx := &memoryTx{
			store:  s,
			reads:  make(map[docKey]int64),
			writes: make(map[docKey]pendingWrite),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

type pendingWrite struct {
	expected int64
	create   bool
	value    any
}

func (s *memoryStore) commit(tx *memoryTx) error {
	if len(tx.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, readVersion := range tx.reads {
		if s.versionOf(key) != readVersion {
			return fmt.Errorf("%w: %s %s changed since read", ErrConflict, key.kind, key.id)
		}
	}
	for key, w := range tx.writes {
		current := s.versionOf(key)
		if w.create && current != 0 {
			if key.kind == docTournament {
				return ErrTournamentExists
			}
			return fmt.Errorf("%w: %s %s already exists", ErrConflict, key.kind, key.id)
		}
		if current != w.expected {
			return fmt.Errorf("%w: %s %s version %d, expected %d", ErrConflict, key.kind, key.id, current, w.expected)
		}
	}

	for key, w := range tx.writes {
		next := w.expected + 1
		s.docs[key] = &storedDoc{version: next, value: sealDocument(w.value, next)}
	}
	return nil
}

func (s *memoryStore) versionOf(key docKey) int64 {
	if doc, ok := s.docs[key]; ok {
		return doc.version
	}
	return 0
}

func (s *memoryStore) load(key docKey) (any, int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, 0, false
	}
	return cloneDocument(doc.value), doc.version, true
}

// sealDocument готовит копию для хранения: выставляет версию и отмечает все
// вложенные записи как сохраненные.
func sealDocument(value any, version int64) any {
	switch v := cloneDocument(value).(type) {
	case *models.Wallet:
		v.Version = version
		v.StoredTransactions = len(v.Transactions)
		return v
	case *models.Tournament:
		v.Version = version
		v.StoredTeams = len(v.Teams)
		v.StoredStandings = len(v.Standings)
		return v
	case *models.DepositRequest:
		v.Version = version
		return v
	case *models.WithdrawalRequest:
		v.Version = version
		return v
	default:
		panic(fmt.Sprintf("memory store: unsupported document type %T", value))
	}
}

func cloneDocument(value any) any {
	switch v := value.(type) {
	case *models.Wallet:
		return v.Clone()
	case *models.Tournament:
		return v.Clone()
	case *models.DepositRequest:
		return v.Clone()
	case *models.WithdrawalRequest:
		return v.Clone()
	default:
		panic(fmt.Sprintf("memory store: unsupported document type %T", value))
	}
}

type memoryTx struct {
	store  *memoryStore
	reads  map[docKey]int64
	writes map[docKey]pendingWrite
}

// get возвращает собственную незафиксированную запись или копию из хранилища.
func (tx *memoryTx) get(key docKey) (any, bool) {
	if w, ok := tx.writes[key]; ok {
		return cloneDocument(w.value), true
	}
	value, version, ok := tx.store.load(key)
	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = version
	}
	return value, ok
}

func (tx *memoryTx) put(key docKey, expected int64, value any, create bool) {
	if prev, ok := tx.writes[key]; ok {
		expected = prev.expected
		create = prev.create
	}
	tx.writes[key] = pendingWrite{expected: expected, create: create, value: cloneDocument(value)}
}

func (tx *memoryTx) GetWallet(_ context.Context, userID string) (*models.Wallet, error) {
	value, ok := tx.get(docKey{docWallet, userID})
	if !ok {
		return models.NewWallet(userID), nil
	}
	return value.(*models.Wallet), nil
}

func (tx *memoryTx) SaveWallet(_ context.Context, w *models.Wallet) error {
	tx.put(docKey{docWallet, w.UserID}, w.Version, w, false)
	return nil
}

func (tx *memoryTx) GetTournament(_ context.Context, id string) (*models.Tournament, error) {
	value, ok := tx.get(docKey{docTournament, id})
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return value.(*models.Tournament), nil
}

func (tx *memoryTx) CreateTournament(_ context.Context, t *models.Tournament) error {
	tx.put(docKey{docTournament, t.ID}, 0, t, true)
	return nil
}

func (tx *memoryTx) SaveTournament(_ context.Context, t *models.Tournament) error {
	tx.put(docKey{docTournament, t.ID}, t.Version, t, false)
	return nil
}

func (tx *memoryTx) GetDepositRequest(_ context.Context, id string) (*models.DepositRequest, error) {
	value, ok := tx.get(docKey{docDeposit, id})
	if !ok {
		return nil, ErrRequestNotFound
	}
	return value.(*models.DepositRequest), nil
}

func (tx *memoryTx) CreateDepositRequest(_ context.Context, r *models.DepositRequest) error {
	tx.put(docKey{docDeposit, r.ID}, 0, r, true)
	return nil
}

func (tx *memoryTx) SaveDepositRequest(_ context.Context, r *models.DepositRequest) error {
	tx.put(docKey{docDeposit, r.ID}, r.Version, r, false)
	return nil
}

func (tx *memoryTx) GetWithdrawalRequest(_ context.Context, id string) (*models.WithdrawalRequest, error) {
	value, ok := tx.get(docKey{docWithdrawal, id})
	if !ok {
		return nil, ErrRequestNotFound
	}
	return value.(*models.WithdrawalRequest), nil
}

func (tx *memoryTx) CreateWithdrawalRequest(_ context.Context, r *models.WithdrawalRequest) error {
	tx.put(docKey{docWithdrawal, r.ID}, 0, r, true)
	return nil
}

func (tx *memoryTx) SaveWithdrawalRequest(_ context.Context, r *models.WithdrawalRequest) error {
	tx.put(docKey{docWithdrawal, r.ID}, r.Version, r, false)
	return nil
}

// --- Чтение вне транзакций ---

func (s *memoryStore) snapshot(kind docKind) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []any
	for key, doc := range s.docs {
		if key.kind == kind {
			out = append(out, cloneDocument(doc.value))
		}
	}
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *memoryStore) ListTournaments(_ context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, v := range s.snapshot(docTournament) {
		t := v.(*models.Tournament)
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *memoryStore) ListDueTournaments(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, v := range s.snapshot(docTournament) {
		t := v.(*models.Tournament)
		if t.Status == models.StatusUpcoming && !t.StartTime.After(now) {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryStore) ListTransactions(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	value, _, ok := s.load(docKey{docWallet, userID})
	if !ok {
		return []models.Transaction{}, nil
	}
	w := value.(*models.Wallet)
	out := make([]models.Transaction, 0, len(w.Transactions))
	for i := len(w.Transactions) - 1; i >= 0; i-- {
		out = append(out, w.Transactions[i])
	}
	return paginate(out, limit, offset), nil
}

func (s *memoryStore) ListWalletIDs(_ context.Context) ([]string, error) {
	var ids []string
	for _, v := range s.snapshot(docWallet) {
		ids = append(ids, v.(*models.Wallet).UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryStore) ListDepositRequests(_ context.Context, filter ListRequestsFilter) ([]models.DepositRequest, error) {
	var out []models.DepositRequest
	for _, v := range s.snapshot(docDeposit) {
		r := v.(*models.DepositRequest)
		if !matchRequest(filter, r.UserID, r.Status) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *memoryStore) ListWithdrawalRequests(_ context.Context, filter ListRequestsFilter) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	for _, v := range s.snapshot(docWithdrawal) {
		r := v.(*models.WithdrawalRequest)
		if !matchRequest(filter, r.UserID, r.Status) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func matchRequest(filter ListRequestsFilter, userID string, status models.RequestStatus) bool {
	if filter.UserID != nil && *filter.UserID != userID {
		return false
	}
	if filter.Status != nil && *filter.Status != status {
		return false
	}
	return true
}
