package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/schema"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/locale"
)

var (
	errMissingAccount  = errors.New("missing account number")
	errMissingSupplier = errors.New("missing supplier name")
)

// quarantine counts rejected rows and keeps the first reasons
type quarantine struct {
	count   int
	reasons []string
}

func (q *quarantine) add(rowNumber int, err error) {
	q.count++
	if len(q.reasons) < domain.MaxQuarantineReasons {
		q.reasons = append(q.reasons, fmt.Sprintf("Row %d: %v", rowNumber, err))
	}
}

// rowNumber maps a 0-based data row onto the 1-based file line, header included
func rowNumber(idx int) int {
	return idx + 2
}

// buildRow runs build and turns a panic into a row error
func buildRow[T any](build func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return build()
}

// fitsHeader rejects rows that had more fields than the header
func fitsHeader(ds *parsers.Dataset, row int) error {
	if n, ok := ds.FieldCount(row); ok {
		return fmt.Errorf("%d fields, header has %d", n, len(ds.Columns()))
	}
	return nil
}

// rowReader reads resolved columns of one dataset row
type rowReader struct {
	ds  *parsers.Dataset
	res schema.Resolution
	row int
}

// text returns the trimmed cell of field, or "" when the column is absent
func (r rowReader) text(field string) string {
	col, ok := r.res.Column(field)
	if !ok {
		return ""
	}
	v, _ := r.ds.Value(r.row, col)
	return strings.TrimSpace(v)
}

// optional returns nil when the column is absent, else the trimmed cell
func (r rowReader) optional(field string) *string {
	if !r.res.Has(field) {
		return nil
	}
	v := r.text(field)
	return &v
}

type ledgerRows struct {
	transactions []domain.Transaction
	quarantine   quarantine
}

func stageLedger(ds *parsers.Dataset, companyID uuid.UUID, fileName string) (*ledgerRows, error) {
	res := schema.Resolve(ds.Columns(), schema.LedgerFields())
	if !res.Has(schema.FieldAccount) {
		return nil, apperrors.MissingColumn("account number")
	}
	if !res.Has(schema.FieldAmount) {
		return nil, apperrors.MissingColumn("amount")
	}

	out := &ledgerRows{transactions: make([]domain.Transaction, 0, ds.Len())}
	for i := 0; i < ds.Len(); i++ {
		r := rowReader{ds: ds, res: res, row: i}

		tx, err := buildRow(func() (domain.Transaction, error) {
			if err := fitsHeader(ds, i); err != nil {
				return domain.Transaction{}, err
			}
			account := r.text(schema.FieldAccount)
			if account == "" {
				return domain.Transaction{}, errMissingAccount
			}

			date := locale.SentinelDate
			if res.Has(schema.FieldDate) {
				date = locale.DateOrSentinel(r.text(schema.FieldDate))
			}

			return domain.Transaction{
				CompanyID:      companyID,
				Date:           date,
				AccountNumber:  account,
				CounterAccount: r.optional(schema.FieldCounterAccount),
				AmountEUR:      locale.NormalizeNumber(r.text(schema.FieldAmount)),
				VATCode:        r.optional(schema.FieldVATCode),
				CostCenter:     r.optional(schema.FieldCostCenter),
				DocumentRef:    r.optional(schema.FieldDocumentRef),
				BookingText:    r.optional(schema.FieldBookingText),
				SourceFile:     fileName,
				RowNumber:      rowNumber(i),
			}, nil
		})
		if err != nil {
			out.quarantine.add(rowNumber(i), err)
			continue
		}
		out.transactions = append(out.transactions, tx)
	}

	return out, nil
}

type supplierRows struct {
	suppliers  []domain.Supplier
	quarantine quarantine
}

func stageSuppliers(ds *parsers.Dataset, companyID uuid.UUID, fileName string) (*supplierRows, error) {
	res := schema.Resolve(ds.Columns(), schema.SupplierFields())
	if !res.Has(schema.FieldName) {
		return nil, apperrors.MissingColumn("supplier name")
	}

	out := &supplierRows{suppliers: make([]domain.Supplier, 0, ds.Len())}
	for i := 0; i < ds.Len(); i++ {
		r := rowReader{ds: ds, res: res, row: i}

		s, err := buildRow(func() (domain.Supplier, error) {
			if err := fitsHeader(ds, i); err != nil {
				return domain.Supplier{}, err
			}
			name := r.text(schema.FieldName)
			if name == "" || strings.EqualFold(name, "nan") {
				return domain.Supplier{}, errMissingSupplier
			}

			var spend *float64
			if res.Has(schema.FieldAmount) {
				v := locale.NormalizeNumber(r.text(schema.FieldAmount))
				spend = &v
			}

			return domain.Supplier{
				CompanyID:      companyID,
				Name:           name,
				UIDVat:         r.optional(schema.FieldUID),
				Country:        r.optional(schema.FieldCountry),
				SpendEURAnnual: spend,
				SourceFile:     fileName,
				RowNumber:      rowNumber(i),
			}, nil
		})
		if err != nil {
			out.quarantine.add(rowNumber(i), err)
			continue
		}
		out.suppliers = append(out.suppliers, s)
	}

	return out, nil
}
