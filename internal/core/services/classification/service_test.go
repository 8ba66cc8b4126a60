package classification

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

// memoryStore implements CompanyFinder, TransactionReader and MappingRepository
type memoryStore struct {
	companies map[uuid.UUID]*domain.Company
	txs       []domain.Transaction
	mappings  []domain.AccountMapping
	audits    []*domain.AuditLog
}

func newMemoryStore() *memoryStore {
	return &memoryStore{companies: make(map[uuid.UUID]*domain.Company)}
}

func (m *memoryStore) addCompany() uuid.UUID {
	id := uuid.New()
	m.companies[id] = &domain.Company{ID: id, Name: "Muster GmbH"}
	return id
}

func (m *memoryStore) addTx(companyID uuid.UUID, date, account string, amount float64, text string) {
	m.txs = append(m.txs, domain.Transaction{
		CompanyID:     companyID,
		Date:          date,
		AccountNumber: account,
		AmountEUR:     amount,
		BookingText:   &text,
	})
}

func (m *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, apperrors.CompanyNotFound(id.String())
	}
	return c, nil
}

func (m *memoryStore) DistinctAccounts(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, tx := range m.txs {
		if tx.CompanyID == companyID && !seen[tx.AccountNumber] {
			seen[tx.AccountNumber] = true
			out = append(out, tx.AccountNumber)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) RecentByAccount(ctx context.Context, companyID uuid.UUID, account string, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.txs {
		if tx.CompanyID == companyID && tx.AccountNumber == account {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) SumByAccount(ctx context.Context, companyID uuid.UUID, account string) (float64, error) {
	total := 0.0
	for _, tx := range m.txs {
		if tx.CompanyID == companyID && tx.AccountNumber == account {
			total += tx.AmountEUR
		}
	}
	return total, nil
}

func (m *memoryStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error) {
	var out []domain.AccountMapping
	for _, mp := range m.mappings {
		if mp.CompanyID == companyID {
			out = append(out, mp)
		}
	}
	return out, nil
}

func (m *memoryStore) FindByAccount(ctx context.Context, companyID uuid.UUID, account string) (*domain.AccountMapping, error) {
	for i := range m.mappings {
		if m.mappings[i].CompanyID == companyID && m.mappings[i].AccountNumber == account {
			mp := m.mappings[i]
			return &mp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) FindConfirmedByName(ctx context.Context, name string) ([]domain.AccountMapping, error) {
	var out []domain.AccountMapping
	for _, mp := range m.mappings {
		if mp.AccountName == name && mp.IsConfirmed() {
			out = append(out, mp)
		}
	}
	return out, nil
}

func (m *memoryStore) Save(ctx context.Context, mp *domain.AccountMapping, audit *domain.AuditLog) error {
	for i := range m.mappings {
		if m.mappings[i].CompanyID == mp.CompanyID && m.mappings[i].AccountNumber == mp.AccountNumber {
			m.mappings[i] = *mp
			m.audits = append(m.audits, audit)
			return nil
		}
	}
	m.mappings = append(m.mappings, *mp)
	m.audits = append(m.audits, audit)
	return nil
}

// stubClassifier answers from a map keyed by account number
type stubClassifier struct {
	answers map[string]*Suggestion
	err     error
	calls   int
}

func (c *stubClassifier) Classify(ctx context.Context, req *Request) (*Suggestion, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if s, ok := c.answers[req.AccountNumber]; ok {
		out := *s
		return &out, nil
	}
	return &Suggestion{Category: domain.CategoryOther, Confidence: 0.1, Source: SourceClassifier}, nil
}

// mapCache implements SuggestionCache
type mapCache struct {
	items map[string]*Suggestion
}

func (c *mapCache) GetSuggestion(ctx context.Context, key string) (*Suggestion, bool, error) {
	s, ok := c.items[key]
	return s, ok, nil
}

func (c *mapCache) SetSuggestion(ctx context.Context, key string, s *Suggestion) error {
	c.items[key] = s
	return nil
}

// scriptedConfirmer returns fixed answers and records what it was asked
type scriptedConfirmer struct {
	answer string
	asked  []string
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, req *Request, s *Suggestion) (string, error) {
	c.asked = append(c.asked, req.AccountNumber)
	return c.answer, nil
}

func newTestService(store *memoryStore, classifier Classifier, cache SuggestionCache) *Service {
	return NewService(store, store, store, classifier, cache, DefaultConfig(), logger.Discard())
}

func findMapping(t *testing.T, store *memoryStore, account string) domain.AccountMapping {
	t.Helper()
	for _, m := range store.mappings {
		if m.AccountNumber == account {
			return m
		}
	}
	t.Fatalf("no mapping for %s", account)
	return domain.AccountMapping{}
}

func TestMapAccounts_AutoMode(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7200", 500, "Strom Jänner")
	store.addTx(companyID, "2024-02-10", "7200", 520, "Strom Februar")
	store.addTx(companyID, "2024-01-15", "7600", 80, "Büromaterial")

	classifier := &stubClassifier{answers: map[string]*Suggestion{
		"7200": {Category: domain.CategoryEnergyElectricity, Confidence: 0.92, Source: SourceClassifier},
		"7600": {Category: domain.CategoryMaterials, Confidence: 0.6, Source: SourceClassifier},
	}}
	service := newTestService(store, classifier, nil)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Mapped)
	assert.Equal(t, 1, summary.AutoAccepted)
	require.Len(t, summary.NeedsReview, 1)
	assert.Equal(t, "7600", summary.NeedsReview[0].AccountNumber)

	electricity := findMapping(t, store, "7200")
	assert.Equal(t, domain.ConfirmedByAuto, electricity.ConfirmedBy)
	assert.NotNil(t, electricity.ConfirmedAt)
	assert.Equal(t, "7200", electricity.AccountName)

	office := findMapping(t, store, "7600")
	assert.Equal(t, domain.ConfirmedByNeedsReview, office.ConfirmedBy)
	assert.Nil(t, office.ConfirmedAt)

	require.Len(t, store.audits, 2)
	assert.Equal(t, domain.AuditAccountMapped, store.audits[0].Action)
	assert.Equal(t, "category=energy_electricity, confidence=0.92, source=classifier", store.audits[0].Details)
}

func TestMapAccounts_SecondRunMapsNothing(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7200", 500, "Strom")

	service := newTestService(store, &stubClassifier{}, nil)

	_, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Mapped)
	assert.Len(t, store.mappings, 1)
}

func TestMapAccounts_LibraryBeatsClassifier(t *testing.T) {
	store := newMemoryStore()
	other1, other2 := store.addCompany(), store.addCompany()
	for _, id := range []uuid.UUID{other1, other2} {
		store.mappings = append(store.mappings, domain.AccountMapping{
			CompanyID:     id,
			AccountNumber: "7320",
			AccountName:   "7320",
			Category:      domain.CategoryFuel,
			ConfirmedBy:   domain.ConfirmedByHuman,
		})
	}

	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7320", 90, "Diesel")

	classifier := &stubClassifier{}
	service := newTestService(store, classifier, nil)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{Mode: ModeAuto})
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)

	assert.Equal(t, domain.CategoryFuel, summary.Outcomes[0].Category)
	assert.Equal(t, SourceLibrary, summary.Outcomes[0].Source)
	assert.InDelta(t, 1.0, summary.Outcomes[0].Confidence, 1e-9)
	assert.Equal(t, 0, classifier.calls)
}

func TestMapAccounts_IgnoresUnconfirmedLibraryEntries(t *testing.T) {
	store := newMemoryStore()
	store.mappings = append(store.mappings, domain.AccountMapping{
		CompanyID:     store.addCompany(),
		AccountNumber: "7320",
		AccountName:   "7320",
		Category:      domain.CategoryFuel,
		ConfirmedBy:   domain.ConfirmedByNeedsReview,
	})

	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7320", 90, "Diesel")

	classifier := &stubClassifier{}
	service := newTestService(store, classifier, nil)

	_, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, classifier.calls)
}

func TestMapAccounts_ClassifierErrorFallsBackToOther(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7200", 500, "Strom")

	service := newTestService(store, &stubClassifier{err: errors.New("connection refused")}, nil)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)

	out := summary.Outcomes[0]
	assert.Equal(t, domain.CategoryOther, out.Category)
	assert.Equal(t, 0.0, out.Confidence)
	assert.Equal(t, SourceError, out.Source)
	assert.Equal(t, domain.ConfirmedByNeedsReview, out.ConfirmedBy)
}

func TestMapAccounts_UnconfiguredClassifier(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7200", 500, "Strom")

	service := newTestService(store, nil, nil)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceNoAPIKey, summary.Outcomes[0].Source)
	assert.Len(t, summary.NeedsReview, 1)
}

func TestMapAccounts_Interactive(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-10", "7200", 500, "Strom")
	store.addTx(companyID, "2024-01-12", "7400", 300, "Miete")

	classifier := &stubClassifier{answers: map[string]*Suggestion{
		"7200": {Category: domain.CategoryEnergyElectricity, Confidence: 0.95, Source: SourceClassifier},
		"7400": {Category: domain.CategoryOther, Confidence: 0.5, Source: SourceClassifier},
	}}
	confirmer := &scriptedConfirmer{answer: "rent_facilities"}
	service := newTestService(store, classifier, nil)

	summary, err := service.MapAccounts(context.Background(), companyID, Options{Mode: ModeInteractive, Confirmer: confirmer})
	require.NoError(t, err)

	assert.Equal(t, []string{"7400"}, confirmer.asked)
	assert.Equal(t, 1, summary.AutoAccepted)
	assert.Equal(t, 1, summary.HumanConfirmed)

	assert.Equal(t, domain.ConfirmedByAutoHighConfidence, findMapping(t, store, "7200").ConfirmedBy)

	rent := findMapping(t, store, "7400")
	assert.Equal(t, domain.ConfirmedByHuman, rent.ConfirmedBy)
	assert.Equal(t, domain.CategoryRentFacilities, rent.Category)
	assert.NotNil(t, rent.ConfirmedAt)
}

func TestMapAccounts_InteractiveInvalidAnswerKeepsSuggestion(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-12", "7400", 300, "Miete")

	classifier := &stubClassifier{answers: map[string]*Suggestion{
		"7400": {Category: domain.CategoryRentFacilities, Confidence: 0.5, Source: SourceClassifier},
	}}
	service := newTestService(store, classifier, nil)

	_, err := service.MapAccounts(context.Background(), companyID,
		Options{Mode: ModeInteractive, Confirmer: &scriptedConfirmer{answer: "coffee"}})
	require.NoError(t, err)

	rent := findMapping(t, store, "7400")
	assert.Equal(t, domain.CategoryRentFacilities, rent.Category)
	assert.Equal(t, domain.ConfirmedByHuman, rent.ConfirmedBy)
}

func TestMapAccounts_InteractiveNeedsConfirmer(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()

	_, err := newTestService(store, nil, nil).MapAccounts(context.Background(), companyID, Options{Mode: ModeInteractive})
	assert.Error(t, err)
}

func TestMapAccounts_UnknownCompany(t *testing.T) {
	store := newMemoryStore()

	_, err := newTestService(store, nil, nil).MapAccounts(context.Background(), uuid.New(), Options{})
	assert.True(t, errors.Is(err, apperrors.ErrCompanyNotFound))
}

func TestMapAccounts_UsesCache(t *testing.T) {
	cache := &mapCache{items: map[string]*Suggestion{}}
	classifier := &stubClassifier{answers: map[string]*Suggestion{
		"7200": {Category: domain.CategoryEnergyElectricity, Confidence: 0.9, Source: SourceClassifier},
	}}

	store := newMemoryStore()
	first := store.addCompany()
	second := store.addCompany()
	store.addTx(first, "2024-01-10", "7200", 500, "Strom Jänner 2024")
	store.addTx(second, "2024-03-10", "7200", 700, "Strom März 2024")

	// keep the library out of the way so the second company hits the cache
	service := NewService(store, store, store, classifier, cache,
		Config{AutoThreshold: 0.8, InteractiveThreshold: 0.9, RecentTransactions: 10}, logger.Discard())
	service.library = NewLibrary(&emptyLibrary{store}, logger.Discard())

	_, err := service.MapAccounts(context.Background(), first, Options{})
	require.NoError(t, err)
	_, err = service.MapAccounts(context.Background(), second, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, classifier.calls)
	assert.Len(t, cache.items, 1)
}

type emptyLibrary struct{ *memoryStore }

func (emptyLibrary) FindConfirmedByName(ctx context.Context, name string) ([]domain.AccountMapping, error) {
	return nil, nil
}

func TestConfirmMapping(t *testing.T) {
	store := newMemoryStore()
	companyID := store.addCompany()
	store.addTx(companyID, "2024-01-12", "7400", 300, "Miete")

	service := newTestService(store, nil, nil)
	_, err := service.MapAccounts(context.Background(), companyID, Options{})
	require.NoError(t, err)

	queue, err := service.ReviewQueue(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	m, err := service.ConfirmMapping(context.Background(), companyID, "7400", "rent_facilities")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryRentFacilities, m.Category)
	assert.Equal(t, SourceManual, m.Source)
	assert.Equal(t, 1.0, m.ConfidenceScore)

	queue, err = service.ReviewQueue(context.Background(), companyID)
	require.NoError(t, err)
	assert.Empty(t, queue)

	last := store.audits[len(store.audits)-1]
	assert.True(t, strings.HasPrefix(last.Details, "category=rent_facilities"))

	_, err = service.ConfirmMapping(context.Background(), companyID, "7400", "coffee")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCategory))
}
