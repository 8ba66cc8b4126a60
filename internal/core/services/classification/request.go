package classification

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/refinery"
)

// promptOverhead approximates the fixed instruction part of the prompt in tokens
const promptOverhead = 300

// RequestBuilder turns an account's ledger history into a classification
// request. Booking texts pass through the display refinery before they
// leave the process.
type RequestBuilder struct {
	display         *refinery.Pipeline
	keywords        *refinery.Pipeline
	maxTransactions int
	logger          *slog.Logger
}

// NewRequestBuilder creates a builder keeping at most maxTransactions bookings
func NewRequestBuilder(maxTransactions int, logger *slog.Logger) *RequestBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTransactions <= 0 {
		maxTransactions = DefaultConfig().RecentTransactions
	}

	return &RequestBuilder{
		display:         refinery.MustPipeline("display"),
		keywords:        refinery.MustPipeline("v1"),
		maxTransactions: maxTransactions,
		logger:          logger,
	}
}

// Build assembles the request. txs are expected newest first.
func (b *RequestBuilder) Build(account, name string, txs []domain.Transaction, total float64) *Request {
	if len(txs) > b.maxTransactions {
		txs = txs[:b.maxTransactions]
	}

	summaries := make([]TransactionSummary, 0, len(txs))
	for _, tx := range txs {
		summaries = append(summaries, TransactionSummary{
			Date:           tx.Date,
			AmountEUR:      tx.AmountEUR,
			Text:           b.display.CleanText(deref(tx.BookingText)),
			CounterAccount: deref(tx.CounterAccount),
		})
	}

	req := &Request{
		AccountNumber:      account,
		AccountName:        name,
		RecentTransactions: summaries,
		TotalSpendEUR:      total,
	}

	b.logger.Debug("classification request built",
		slog.String("account", account),
		slog.Int("transactions", len(summaries)),
		slog.Int("estimated_tokens", b.EstimateTokenCount(req)))

	return req
}

// Fingerprint identifies requests that should get the same answer: the
// account number plus the keyword set of its booking texts. Amounts and
// dates do not take part.
func (b *RequestBuilder) Fingerprint(req *Request) string {
	texts := make([]string, len(req.RecentTransactions))
	for i, t := range req.RecentTransactions {
		texts[i] = t.Text
	}

	h := sha256.New()
	h.Write([]byte(req.AccountNumber))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToUpper(req.AccountName)))
	for _, k := range b.keywords.Distinct(texts) {
		h.Write([]byte{0})
		h.Write([]byte(k))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EstimateTokenCount gives a rough size of the request: about 4 characters
// per token plus the instruction text
func (b *RequestBuilder) EstimateTokenCount(req *Request) int {
	data, err := json.Marshal(req)
	if err != nil {
		b.logger.Warn("failed to marshal for token estimation", slog.Any("error", err))
		return 0
	}
	return len(data)/4 + promptOverhead
}

// ToJSON serializes a request, compact or indented
func (b *RequestBuilder) ToJSON(req *Request, compact bool) ([]byte, error) {
	if compact {
		return json.Marshal(req)
	}
	return json.MarshalIndent(req, "", "  ")
}

// ValidateRequest checks the fields every classifier relies on
func ValidateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if strings.TrimSpace(req.AccountNumber) == "" {
		return fmt.Errorf("account number is empty")
	}
	return nil
}

// BuildPrompt renders the instruction text for text-completion classifiers
func BuildPrompt(req *Request) string {
	var sb strings.Builder

	name := req.AccountName
	if name == "" {
		name = "Unknown"
	}

	sb.WriteString("Classify an Austrian general-ledger account (Kontenplan) into one ESG spend category for CSRD/ESRS reporting.\n\n")
	fmt.Fprintf(&sb, "Account number: %s\n", req.AccountNumber)
	fmt.Fprintf(&sb, "Account name: %s\n", name)
	fmt.Fprintf(&sb, "Total spend: EUR %.2f\n\n", req.TotalSpendEUR)

	sb.WriteString("Recent bookings:\n")
	if len(req.RecentTransactions) == 0 {
		sb.WriteString("  none available\n")
	}
	for _, t := range req.RecentTransactions {
		fmt.Fprintf(&sb, "  - %s: EUR %.2f | %s\n", t.Date, t.AmountEUR, t.Text)
	}

	sb.WriteString("\nCategories:\n")
	for _, c := range domain.Categories() {
		fmt.Fprintf(&sb, "- %s: %s\n", c, domain.CategoryHint(c))
	}

	sb.WriteString("\nAnswer with a single JSON object and nothing else:\n")
	sb.WriteString(`{"category": "<category>", "confidence": 0.0, "reasoning": "<short explanation>"}`)
	return sb.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
