package classification

import (
	"context"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Suggestion sources
const (
	SourceLibrary     = "mapping_library"
	SourceClassifier  = "classifier"
	SourceMappingFile = "mapping_file"
	SourceNoAPIKey    = "no_api_key"
	SourceError       = "error"
	SourceManual      = "manual"
)

// Mode selects how suggestions become mappings
type Mode string

const (
	// ModeAuto accepts suggestions at or above the threshold and parks the
	// rest as needs_review
	ModeAuto Mode = "auto"

	// ModeInteractive accepts suggestions at or above the threshold and asks
	// the Confirmer for everything else
	ModeInteractive Mode = "interactive"
)

// TransactionSummary is one recent booking shown to the classifier
type TransactionSummary struct {
	Date           string  `json:"date"`
	AmountEUR      float64 `json:"amount_eur"`
	Text           string  `json:"text"`
	CounterAccount string  `json:"counter_account,omitempty"`
}

// Request carries everything known about one ledger account
type Request struct {
	AccountNumber      string               `json:"account_number"`
	AccountName        string               `json:"account_name,omitempty"`
	RecentTransactions []TransactionSummary `json:"recent_transactions"`
	TotalSpendEUR      float64              `json:"total_spend_eur"`
}

// Suggestion is a proposed category for an account
type Suggestion struct {
	Category   domain.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Rationale  string          `json:"rationale"`
	Source     string          `json:"source"`
	Matches    int             `json:"matches,omitempty"`
}

// Classifier proposes a category for an account. Implementations must
// return categories from the closed set; the service clamps confidence.
type Classifier interface {
	Classify(ctx context.Context, req *Request) (*Suggestion, error)
}

// SuggestionCache remembers classifier answers by request fingerprint
type SuggestionCache interface {
	GetSuggestion(ctx context.Context, key string) (*Suggestion, bool, error)
	SetSuggestion(ctx context.Context, key string, s *Suggestion) error
}

// Confirmer lets an operator accept or override a suggestion. Returning a
// category outside the closed set keeps the suggestion.
type Confirmer interface {
	Confirm(ctx context.Context, req *Request, s *Suggestion) (string, error)
}

// Options controls one MapAccounts run
type Options struct {
	Mode Mode

	// Threshold overrides the configured threshold of the mode when > 0
	Threshold float64

	// Confirmer is required in interactive mode
	Confirmer Confirmer
}

// Config holds the service defaults
type Config struct {
	AutoThreshold        float64
	InteractiveThreshold float64
	RecentTransactions   int
}

// DefaultConfig returns the thresholds used by the pipeline
func DefaultConfig() Config {
	return Config{
		AutoThreshold:        0.8,
		InteractiveThreshold: 0.9,
		RecentTransactions:   10,
	}
}

// Outcome is what happened to one account
type Outcome struct {
	AccountNumber string          `json:"account_number"`
	Category      domain.Category `json:"category"`
	Confidence    float64         `json:"confidence"`
	ConfirmedBy   string          `json:"confirmed_by"`
	Source        string          `json:"source"`
	Rationale     string          `json:"rationale,omitempty"`
}

// Summary of a MapAccounts run
type Summary struct {
	Mapped         int       `json:"mapped"`
	AutoAccepted   int       `json:"auto_accepted"`
	HumanConfirmed int       `json:"human_confirmed"`
	NeedsReview    []Outcome `json:"needs_review"`
	Outcomes       []Outcome `json:"outcomes"`
}

// CompanyFinder loads a company or fails with COMPANY_NOT_FOUND
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// TransactionReader provides the account context
type TransactionReader interface {
	DistinctAccounts(ctx context.Context, companyID uuid.UUID) ([]string, error)
	RecentByAccount(ctx context.Context, companyID uuid.UUID, account string, limit int) ([]domain.Transaction, error)
	SumByAccount(ctx context.Context, companyID uuid.UUID, account string) (float64, error)
}

// MappingRepository stores account mappings
type MappingRepository interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error)
	FindByAccount(ctx context.Context, companyID uuid.UUID, account string) (*domain.AccountMapping, error)
	FindConfirmedByName(ctx context.Context, name string) ([]domain.AccountMapping, error)
	Save(ctx context.Context, m *domain.AccountMapping, audit *domain.AuditLog) error
}

// Mapper defines the mapping operations used by the front ends
type Mapper interface {
	MapAccounts(ctx context.Context, companyID uuid.UUID, opts Options) (*Summary, error)
	ConfirmMapping(ctx context.Context, companyID uuid.UUID, account, category string) (*domain.AccountMapping, error)
}
