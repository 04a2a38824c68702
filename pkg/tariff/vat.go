package tariff

import (
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/pkg/errors"
)

// VatLedger maps a VAT class id to its rate series over the computation window.
type VatLedger map[string]*dateseries.Series

// RasterizeVat builds the per-day rate of every class over [from, to].
func RasterizeVat(classes []VatClass, from, to time.Time) VatLedger {
	ledger := make(VatLedger, len(classes))
	for _, c := range classes {
		ledger[c.ID] = RasterizeScalar(c.Rates, from, to)
	}
	return ledger
}

// Rate returns the VAT fraction of class id on day. An unknown id has no VAT.
// A day outside the ledger window is an ErrRange: the ledger must cover what it prices.
func (l VatLedger) Rate(id string, day time.Time) (float64, error) {
	s, ok := l[id]
	if !ok {
		return 0, nil
	}
	v, err := s.Get(day)
	if err != nil {
		return 0, errors.Wrapf(err, "vat %s", id)
	}
	return v, nil
}

// ApplyVat returns base scaled by (1 + rate) of class id, day by day.
// An id missing from the ledger (including "") leaves base unchanged.
func (l VatLedger) ApplyVat(base *dateseries.Series, id string) (*dateseries.Series, error) {
	rates, ok := l[id]
	if !ok {
		return base.MulScalar(1), nil
	}
	return base.Mul(rates.AddScalar(1))
}
