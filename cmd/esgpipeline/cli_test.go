package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
)

func confirmRequest() (*classification.Request, *classification.Suggestion) {
	req := &classification.Request{
		AccountNumber: "7200",
		AccountName:   "Strom",
		TotalSpendEUR: 1234.5,
		RecentTransactions: []classification.TransactionSummary{
			{Date: "2024-01-15", AmountEUR: 600, Text: "Wien Energie"},
			{Date: "2024-02-15", AmountEUR: 634.5, Text: "Wien Energie"},
		},
	}
	s := &classification.Suggestion{
		Category:   domain.CategoryEnergyElectricity,
		Confidence: 0.9,
		Source:     classification.SourceLibrary,
	}
	return req, s
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"empty accepts suggestion", "\n", string(domain.CategoryEnergyElectricity)},
		{"eof accepts suggestion", "", string(domain.CategoryEnergyElectricity)},
		{"number picks category", "2\n", string(domain.Categories()[1])},
		{"out of range passed through", "99\n", "99"},
		{"name passed through", " fuel \n", "fuel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := newPromptConfirmer(strings.NewReader(tt.input), &out)
			req, s := confirmRequest()

			got, err := p.Confirm(context.Background(), req, s)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
			assert.Contains(t, out.String(), "Account 7200 - Strom")
			assert.Contains(t, out.String(), "Wien Energie")
		})
	}
}

func TestPromptConfirmer_CapsBookings(t *testing.T) {
	var out bytes.Buffer
	p := newPromptConfirmer(strings.NewReader("\n"), &out)
	req, s := confirmRequest()
	req.AccountName = ""
	req.RecentTransactions = nil
	for i := 0; i < 8; i++ {
		req.RecentTransactions = append(req.RecentTransactions,
			classification.TransactionSummary{Date: "2024-03-01", AmountEUR: 1, Text: "booking"})
	}

	_, err := p.Confirm(context.Background(), req, s)
	require.NoError(t, err)
	assert.Equal(t, shownBookings, strings.Count(out.String(), "booking"))
	assert.Contains(t, out.String(), "Unknown")
}

func TestMappingOptions(t *testing.T) {
	cmd := &cobra.Command{}

	opts, err := mappingOptions(cmd, "auto")
	require.NoError(t, err)
	assert.Equal(t, classification.ModeAuto, opts.Mode)
	assert.Nil(t, opts.Confirmer)

	opts, err = mappingOptions(cmd, "interactive")
	require.NoError(t, err)
	assert.Equal(t, classification.ModeInteractive, opts.Mode)
	assert.NotNil(t, opts.Confirmer)

	_, err = mappingOptions(cmd, "skip")
	assert.Error(t, err)
}

func TestPrintMappingSummary(t *testing.T) {
	var out bytes.Buffer
	printMappingSummary(&out, &classification.Summary{})
	assert.Equal(t, "All accounts are already mapped.\n", out.String())

	out.Reset()
	printMappingSummary(&out, &classification.Summary{
		Mapped:       2,
		AutoAccepted: 1,
		NeedsReview: []classification.Outcome{
			{AccountNumber: "7600", Category: domain.CategoryOther, Confidence: 0.3, Source: classification.SourceNoAPIKey},
		},
	})
	assert.Contains(t, out.String(), "Mapped 2 account(s): 1 auto-accepted, 0 confirmed, 1 need review")
	assert.Contains(t, out.String(), "review 7600: other")
}

func TestPrintInboxResults(t *testing.T) {
	var out bytes.Buffer
	printInboxResults(&out, nil)
	assert.Equal(t, "Inbox is empty.\n", out.String())

	out.Reset()
	printInboxResults(&out, []ingestion.InboxResult{
		{Path: "/data/inbox/broken.csv", Error: "permission denied"},
	})
	assert.Contains(t, out.String(), "broken.csv")
	assert.Contains(t, out.String(), "error: permission denied")
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"company", "ingest", "map", "emissions", "assess", "report", "run", "serve", "worker", "reset"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestResetCmd_RequiresYes(t *testing.T) {
	cmd := newResetCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}
