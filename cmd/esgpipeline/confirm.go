package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
)

// shownBookings caps the bookings printed per account
const shownBookings = 5

// promptConfirmer asks the operator on a terminal. An empty answer accepts
// the suggestion; a number picks from the category list.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, req *classification.Request, s *classification.Suggestion) (string, error) {
	name := req.AccountName
	if name == "" {
		name = "Unknown"
	}
	fmt.Fprintf(p.out, "\nAccount %s - %s (total spend EUR %.2f)\n", req.AccountNumber, name, req.TotalSpendEUR)
	for i, tx := range req.RecentTransactions {
		if i == shownBookings {
			break
		}
		fmt.Fprintf(p.out, "  %s  EUR %10.2f  %s\n", tx.Date, tx.AmountEUR, tx.Text)
	}
	fmt.Fprintf(p.out, "Suggested: %s (%.0f%%, %s) %s\n", s.Category, s.Confidence*100, s.Source, s.Rationale)

	categories := domain.Categories()
	for i, c := range categories {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, c)
	}
	fmt.Fprint(p.out, "Category [enter = accept]: ")

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return string(s.Category), nil
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(categories) {
		return string(categories[n-1]), nil
	}
	return answer, nil
}
