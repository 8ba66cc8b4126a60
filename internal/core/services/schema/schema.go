// Package schema maps the column headers of BMD NTCS exports onto canonical
// field names. Header spelling differs between BMD versions, so every field
// carries a list of accepted variants.
package schema

import (
	"strings"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Canonical field names
const (
	FieldDate           = "date"
	FieldAccount        = "account"
	FieldCounterAccount = "counter_account"
	FieldAmount         = "amount"
	FieldVATCode        = "vat_code"
	FieldCostCenter     = "cost_center"
	FieldDocumentRef    = "document_ref"
	FieldBookingText    = "booking_text"
	FieldDocumentDate   = "document_date"

	FieldSupplierID = "supplier_id"
	FieldName       = "name"
	FieldUID        = "uid"
	FieldCountry    = "country"
)

// FieldVariantMap maps a canonical field to the header spellings accepted for it.
// Variant order matters: the first variant present in a file wins.
type FieldVariantMap struct {
	fields   []string
	variants map[string][]string
}

func newFieldVariantMap(entries ...fieldEntry) FieldVariantMap {
	m := FieldVariantMap{variants: make(map[string][]string, len(entries))}
	for _, e := range entries {
		m.fields = append(m.fields, e.field)
		m.variants[e.field] = e.variants
	}
	return m
}

type fieldEntry struct {
	field    string
	variants []string
}

// Fields returns the canonical field names in declaration order
func (m FieldVariantMap) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

// Variants returns a copy of the accepted spellings for field
func (m FieldVariantMap) Variants(field string) []string {
	v := m.variants[field]
	out := make([]string, len(v))
	copy(out, v)
	return out
}

var ledgerFields = newFieldVariantMap(
	fieldEntry{FieldDate, []string{"Buchungsdatum", "BuchDatum", "Datum", "Belegdatum"}},
	fieldEntry{FieldAccount, []string{"Konto", "KontoNr", "Konto-Nr", "Kontonummer"}},
	fieldEntry{FieldCounterAccount, []string{"Gegenkonto", "GegenKto", "Gegen-Konto", "GegenkontoNr"}},
	fieldEntry{FieldAmount, []string{"Betrag", "Betrag EUR", "BetragEUR", "Nettobetrag"}},
	fieldEntry{FieldVATCode, []string{"Steuercode", "StCode", "USt-Code", "Steuerschluessel", "SteuerSchluessel"}},
	fieldEntry{FieldCostCenter, []string{"Kostenstelle", "KSt", "KST", "Kostenst"}},
	fieldEntry{FieldDocumentRef, []string{"Belegnummer", "BelegNr", "Beleg-Nr", "BelNr"}},
	fieldEntry{FieldBookingText, []string{"Buchungstext", "Text", "BuchText", "Bezeichnung"}},
	fieldEntry{FieldDocumentDate, []string{"Belegdatum", "BelDatum", "Beleg-Datum"}},
)

var supplierFields = newFieldVariantMap(
	fieldEntry{FieldSupplierID, []string{"LieferantenNr", "Lieferant-Nr", "LfNr", "KreditorNr"}},
	fieldEntry{FieldName, []string{"Name", "Firmenname", "Firma", "Name1", "Bezeichnung"}},
	fieldEntry{FieldUID, []string{"UID", "UID-Nr", "UIDNr", "ATU", "Steuernummer"}},
	fieldEntry{FieldCountry, []string{"Land", "Laendercode", "LandCode", "ISO-Land"}},
	fieldEntry{FieldAmount, []string{"Betrag", "Umsatz", "Jahresumsatz", "Gesamtbetrag"}},
)

// LedgerFields returns the variant map for FIBU ledger exports
func LedgerFields() FieldVariantMap { return ledgerFields }

// SupplierFields returns the variant map for WAWI supplier exports
func SupplierFields() FieldVariantMap { return supplierFields }

var (
	ledgerIndicators   = []string{"konto", "gegenkonto", "buchungsdatum", "betrag", "belegnummer"}
	supplierIndicators = []string{"lieferantennr", "firmenname", "uid", "umsatz", "kreditor"}
)

// minIndicatorScore is the number of indicators a header row must hit
const minIndicatorScore = 2

// DetectFileKind classifies a header row. Each indicator counts once if any
// lower-cased column contains it as a substring. Ledger is checked first.
func DetectFileKind(columns []string) domain.FileKind {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}

	switch {
	case indicatorScore(lower, ledgerIndicators) >= minIndicatorScore:
		return domain.FileKindLedger
	case indicatorScore(lower, supplierIndicators) >= minIndicatorScore:
		return domain.FileKindSupplier
	default:
		return domain.FileKindUnknown
	}
}

func indicatorScore(columns, indicators []string) int {
	score := 0
	for _, ind := range indicators {
		for _, c := range columns {
			if strings.Contains(c, ind) {
				score++
				break
			}
		}
	}
	return score
}

// ResolveColumn returns the column (original spelling) matching the first
// variant present. Matching is case-insensitive and ignores surrounding
// whitespace on the column header.
func ResolveColumn(columns []string, variants []string) (string, bool) {
	byKey := make(map[string]string, len(columns))
	for _, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, exists := byKey[key]; !exists {
			byKey[key] = c
		}
	}
	for _, v := range variants {
		if col, ok := byKey[strings.ToLower(v)]; ok {
			return col, true
		}
	}
	return "", false
}

// Resolution holds the resolved column per canonical field. Fields absent
// from the file are missing from the map.
type Resolution map[string]string

// Column returns the resolved column for field
func (r Resolution) Column(field string) (string, bool) {
	col, ok := r[field]
	return col, ok
}

// Has reports whether field was found
func (r Resolution) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Resolve resolves every canonical field of m against columns
func Resolve(columns []string, m FieldVariantMap) Resolution {
	res := make(Resolution, len(m.fields))
	for _, f := range m.fields {
		if col, ok := ResolveColumn(columns, m.variants[f]); ok {
			res[f] = col
		}
	}
	return res
}
