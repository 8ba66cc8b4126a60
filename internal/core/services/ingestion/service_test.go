package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/deduplication"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/parsers"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/storage"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

const ledgerCSV = "Buchungsdatum;Konto;Gegenkonto;Betrag;Buchungstext\n" +
	"05.03.2024;7200;2800;1.234,56;Strom Maerz\n" +
	"06.03.2024;;2800;100,00;ohne Konto\n" +
	"07.03.24;7300;2800;50;Gas\n"

type fixture struct {
	svc       *Service
	db        *gorm.DB
	store     *storage.LocalStorage
	dir       string
	companyID uuid.UUID
}

func setup(t *testing.T) *fixture {
	dir := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{
		InboxDir:      filepath.Join(dir, "inbox"),
		ProcessedDir:  filepath.Join(dir, "processed"),
		QuarantineDir: filepath.Join(dir, "quarantine"),
		OutputDir:     filepath.Join(dir, "output"),
	}, logger.Discard())
	require.NoError(t, err)

	repo := repositories.NewIngestionRepository(db, logger.Discard())
	dedup := deduplication.NewService(store, repo, logger.Discard())
	svc := NewService(dedup, parsers.NewDelimitedParser(nil), repo, store, logger.Discard())

	company := &domain.Company{Name: "Muster GmbH"}
	require.NoError(t, db.Create(company).Error)

	return &fixture{svc: svc, db: db, store: store, dir: dir, companyID: company.ID}
}

func (f *fixture) writeInbox(t *testing.T, name, content string) string {
	path := filepath.Join(f.dir, "inbox", name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestIngestFile_QuarantinesRowWithoutAccount(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "fibu.csv", ledgerCSV)

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, domain.FileKindLedger, res.FileKind)
	assert.Equal(t, ";", res.Delimiter)
	assert.Equal(t, 3, res.RowsTotal)
	assert.Equal(t, 2, res.RowsValid)
	assert.Equal(t, 1, res.RowsQuarantined)
	assert.Equal(t, []string{"Row 3: missing account number"}, res.QuarantineReasons)
	assert.Equal(t, int64(2), f.count(t, &domain.Transaction{}))

	var txs []domain.Transaction
	require.NoError(t, f.db.Order("row_number").Find(&txs).Error)
	assert.Equal(t, "2024-03-05", txs[0].Date)
	assert.InDelta(t, 1234.56, txs[0].AmountEUR, 1e-9)
	assert.Equal(t, 2, txs[0].RowNumber)
	require.NotNil(t, txs[0].BookingText)
	assert.Equal(t, "Strom Maerz", *txs[0].BookingText)
	assert.Nil(t, txs[0].CostCenter)
	assert.Equal(t, "2024-03-07", txs[1].Date)
	assert.Equal(t, 4, txs[1].RowNumber)

	var audit domain.AuditLog
	require.NoError(t, f.db.Where("action = ?", domain.AuditFileIngested).First(&audit).Error)
	assert.Equal(t, "type=FIBU, valid=2, quarantined=1", audit.Details)
}

func TestIngestFile_DuplicateUnderDifferentName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.IngestFile(ctx, f.writeInbox(t, "fibu.csv", ledgerCSV), f.companyID)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	second, err := f.svc.IngestFile(ctx, f.writeInbox(t, "copy_of_fibu.csv", ledgerCSV), f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusDuplicate, second.Status)
	require.NotNil(t, second.OriginalLogID)
	assert.Equal(t, first.LogID, *second.OriginalLogID)
	assert.Equal(t, int64(2), f.count(t, &domain.Transaction{}))
	assert.Equal(t, int64(1), f.count(t, &domain.IngestionLog{}))
}

func TestIngestFile_MissingAmountColumn(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "no_amount.csv",
		"Buchungsdatum;Konto;Gegenkonto;Buchungstext\n05.03.2024;7200;2800;Strom\n")

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "could not find amount column")
	assert.Equal(t, int64(0), f.count(t, &domain.Transaction{}))

	var entry domain.IngestionLog
	require.NoError(t, f.db.First(&entry).Error)
	assert.Equal(t, domain.IngestionStatusFailed, entry.Status)
	assert.Equal(t, 0, entry.RowsValid)
	assert.FileExists(t, path)
}

func TestIngestFile_UnparseableFileIsQuarantined(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "notes.csv", "just one column\nmore text\n")

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	assert.NotEmpty(t, res.Error)
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(f.dir, "quarantine", "notes.csv"))

	var entry domain.IngestionLog
	require.NoError(t, f.db.First(&entry).Error)
	assert.Equal(t, domain.IngestionStatusFailed, entry.Status)
	assert.NotEmpty(t, entry.ErrorMessage)
	assert.Equal(t, int64(1), f.count(t, &domain.AuditLog{}))
}

func TestIngestFile_SupplierExport(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "wawi.csv",
		"LieferantenNr;Firmenname;UID;Land;Umsatz\n"+
			"1;Wien Energie;ATU111;AT;12.500,00\n"+
			"2;nan;;AT;5\n")

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, domain.FileKindSupplier, res.FileKind)
	assert.Equal(t, 1, res.RowsValid)
	assert.Equal(t, 1, res.RowsQuarantined)

	var supplier domain.Supplier
	require.NoError(t, f.db.First(&supplier).Error)
	assert.Equal(t, "Wien Energie", supplier.Name)
	require.NotNil(t, supplier.SpendEURAnnual)
	assert.InDelta(t, 12500.0, *supplier.SpendEURAnnual, 1e-9)
	assert.Equal(t, "pending", supplier.OutreachStatus)
}

func TestIngestInbox_MovesSuccessfulFiles(t *testing.T) {
	f := setup(t)
	ok := f.writeInbox(t, "a_fibu.csv", ledgerCSV)
	bad := f.writeInbox(t, "b_broken.CSV", "Buchungsdatum;Konto;Gegenkonto\n01.01.2024;;x\n")
	f.writeInbox(t, "c_readme.txt", "ignored")

	results, err := f.svc.IngestInbox(context.Background(), f.companyID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, ok, results[0].Path)
	assert.Equal(t, StatusSuccess, results[0].Result.Status)
	assert.Equal(t, filepath.Join(f.dir, "processed", "a_fibu.csv"), results[0].MovedTo)
	assert.NoFileExists(t, ok)

	assert.Equal(t, StatusFailed, results[1].Result.Status)
	assert.FileExists(t, bad)
}

type failingRepo struct{}

func (failingRepo) SaveIngestion(context.Context, *domain.IngestionLog, []domain.Transaction, []domain.Supplier, *domain.AuditLog) error {
	return errors.New("disk full")
}

func TestIngestFile_RepositoryErrorIsReturned(t *testing.T) {
	f := setup(t)
	f.svc.repo = failingRepo{}

	_, err := f.svc.IngestFile(context.Background(), f.writeInbox(t, "fibu.csv", ledgerCSV), f.companyID)
	assert.EqualError(t, err, "disk full")
}

func TestIngestFile_ShortRowIsPadded(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "short.csv",
		"Buchungsdatum;Konto;Gegenkonto;Betrag;Buchungstext\n"+
			"05.03.2024;7200;2800;100,00;Strom\n"+
			"06.03.2024;7210;2800;99,00\n"+
			"07.03.2024;7300;2800;50,00;Gas\n")

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.RowsValid)
	assert.Equal(t, 0, res.RowsQuarantined)
	assert.Equal(t, int64(3), f.count(t, &domain.Transaction{}))

	var tx domain.Transaction
	require.NoError(t, f.db.Where("row_number = ?", 3).First(&tx).Error)
	assert.Equal(t, "7210", tx.AccountNumber)
	assert.InDelta(t, 99.0, tx.AmountEUR, 1e-9)
	require.NotNil(t, tx.BookingText)
	assert.Equal(t, "", *tx.BookingText)
}

func TestIngestFile_OverlongRowIsQuarantined(t *testing.T) {
	f := setup(t)
	path := f.writeInbox(t, "long.csv",
		"Buchungsdatum;Konto;Gegenkonto;Betrag;Buchungstext\n"+
			"05.03.2024;7200;2800;100,00;Strom\n"+
			"06.03.2024;7210;2800;99,00;Text;verrutscht\n")

	res, err := f.svc.IngestFile(context.Background(), path, f.companyID)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.RowsValid)
	assert.Equal(t, 1, res.RowsQuarantined)
	assert.Equal(t, []string{"Row 3: 6 fields, header has 5"}, res.QuarantineReasons)
	assert.FileExists(t, path)
}
