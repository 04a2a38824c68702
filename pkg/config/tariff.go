package config

import (
	_ "embed"
	"os"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/tariff"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed default_tariff.yaml
var DefaultTariffYAML []byte

type vatEntry struct {
	ID        string   `yaml:"id"`
	StartDate string   `yaml:"start_date"`
	EndDate   string   `yaml:"end_date"`
	Value     *float64 `yaml:"value"`
}

type breakpointEntry struct {
	StartDate     string   `yaml:"start_date"`
	EndDate       string   `yaml:"end_date"`
	QuantityValue *float64 `yaml:"quantity_value"`
	TimeValue     *float64 `yaml:"time_value"`
	PriceUnit     string   `yaml:"price_unit"`
	QuantityUnit  string   `yaml:"quantity_unit"`
	TimeUnit      string   `yaml:"time_unit"`
	VatID         *string  `yaml:"vat_id"`

	// Pre-component layout: one value whose meaning follows base_unit.
	Value     *float64 `yaml:"value"`
	ValueUnit string   `yaml:"value_unit"`
	BaseUnit  string   `yaml:"base_unit"`
}

// EnsureTariffFile writes the default tariff to path if nothing is there yet.
func EnsureTariffFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.WriteFile(path, DefaultTariffYAML, 0644)
	}
	return nil
}

func LoadTariff(path string) (*tariff.Tariff, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTariff(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return t, nil
}

// ParseTariff reads a tariff document. Components keep their document order.
// The mapping may sit under a top-level "pricing" key or be the document root.
func ParseTariff(raw []byte) (*tariff.Tariff, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(tariff.ErrConfiguration, "invalid yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.Wrap(tariff.ErrConfiguration, "empty tariff document")
	}
	pricing := doc.Content[0]
	if v := mappingValue(pricing, "pricing"); v != nil {
		pricing = v
	}
	if pricing.Kind != yaml.MappingNode {
		return nil, errors.Wrap(tariff.ErrConfiguration, "pricing must be a mapping")
	}

	t := &tariff.Tariff{Components: tariff.NewComponents()}
	for i := 0; i+1 < len(pricing.Content); i += 2 {
		key, value := pricing.Content[i].Value, pricing.Content[i+1]
		if key == "vat" {
			classes, err := parseVat(value)
			if err != nil {
				return nil, err
			}
			t.VatClasses = classes
			continue
		}
		schedule, err := parseComponent(key, value)
		if err != nil {
			return nil, err
		}
		if err := t.Components.Add(key, schedule); err != nil {
			return nil, err
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func parseVat(node *yaml.Node) ([]tariff.VatClass, error) {
	var entries []vatEntry
	if err := node.Decode(&entries); err != nil {
		return nil, errors.Wrapf(tariff.ErrConfiguration, "vat: %v", err)
	}

	var order []string
	periods := make(map[string][]tariff.Period[float64])
	for i, e := range entries {
		if e.ID == "" {
			return nil, errors.Wrapf(tariff.ErrConfiguration, "vat entry %d has no id", i)
		}
		if e.Value == nil {
			return nil, errors.Wrapf(tariff.ErrConfiguration, "vat %s entry %d has no value", e.ID, i)
		}
		start, end, err := parseDates(e.StartDate, e.EndDate)
		if err != nil {
			return nil, errors.Wrapf(err, "vat %s entry %d", e.ID, i)
		}
		if _, ok := periods[e.ID]; !ok {
			order = append(order, e.ID)
		}
		periods[e.ID] = append(periods[e.ID], tariff.Period[float64]{Start: start, End: end, Value: *e.Value})
	}

	classes := make([]tariff.VatClass, 0, len(order))
	for _, id := range order {
		s, err := tariff.NewSchedule(periods[id])
		if err != nil {
			return nil, errors.Wrapf(err, "vat %s", id)
		}
		classes = append(classes, tariff.VatClass{ID: id, Rates: s})
	}
	return classes, nil
}

func parseComponent(name string, node *yaml.Node) (*tariff.PriceSchedule, error) {
	var entries []breakpointEntry
	if err := node.Decode(&entries); err != nil {
		return nil, errors.Wrapf(tariff.ErrConfiguration, "component %s: %v", name, err)
	}

	prev := tariff.Rate{
		PriceUnit:    units.Euro,
		QuantityUnit: units.KiloWattHour,
		TimeUnit:     units.MonthUnit,
	}
	legacyQuantity := true
	bps := make([]tariff.Breakpoint, 0, len(entries))
	for i, e := range entries {
		bp, err := e.toBreakpoint(prev, &legacyQuantity)
		if err != nil {
			return nil, errors.Wrapf(err, "component %s entry %d", name, i)
		}
		prev = bp.Value
		bps = append(bps, bp)
	}

	s, err := tariff.NewSchedule(bps)
	if err != nil {
		return nil, errors.Wrapf(err, "component %s", name)
	}
	return s, nil
}

// toBreakpoint resolves an entry against the previous one: units and vat_id carry over, dates never do.
// legacyQuantity tracks whether a bare value is priced per quantity or per period.
func (e breakpointEntry) toBreakpoint(prev tariff.Rate, legacyQuantity *bool) (tariff.Breakpoint, error) {
	var bp tariff.Breakpoint
	start, end, err := parseDates(e.StartDate, e.EndDate)
	if err != nil {
		return bp, err
	}
	bp.Start, bp.End = start, end

	r := tariff.Rate{
		PriceUnit:     prev.PriceUnit,
		QuantityUnit:  prev.QuantityUnit,
		TimeUnit:      prev.TimeUnit,
		VatID:         prev.VatID,
		QuantityValue: e.QuantityValue,
		TimeValue:     e.TimeValue,
	}

	priceUnit := e.PriceUnit
	if priceUnit == "" {
		priceUnit = e.ValueUnit
	}
	if priceUnit != "" {
		if r.PriceUnit, err = units.ParsePriceUnit(priceUnit); err != nil {
			return bp, err
		}
	}
	if e.QuantityUnit != "" {
		if r.QuantityUnit, err = units.ParseQuantityUnit(e.QuantityUnit); err != nil {
			return bp, err
		}
	}
	if e.TimeUnit != "" {
		if r.TimeUnit, err = units.ParseTimeUnit(e.TimeUnit); err != nil {
			return bp, err
		}
	}
	if e.VatID != nil {
		r.VatID = *e.VatID
	}

	if e.BaseUnit != "" {
		if q, err := units.ParseQuantityUnit(e.BaseUnit); err == nil {
			r.QuantityUnit = q
			*legacyQuantity = true
		} else if tu, err := units.ParseTimeUnit(e.BaseUnit); err == nil {
			r.TimeUnit = tu
			*legacyQuantity = false
		} else {
			return bp, errors.Wrapf(units.ErrUnit, "unknown base_unit %q", e.BaseUnit)
		}
	}
	if e.Value != nil {
		v := *e.Value
		if *legacyQuantity && r.QuantityValue == nil {
			r.QuantityValue = &v
		} else if !*legacyQuantity && r.TimeValue == nil {
			r.TimeValue = &v
		}
	}

	if r.QuantityValue == nil && r.TimeValue == nil {
		return bp, errors.Wrap(tariff.ErrConfiguration, "entry has neither quantity_value nor time_value")
	}
	bp.Value = r
	return bp, nil
}

func parseDates(start, end string) (time.Time, *time.Time, error) {
	if start == "" {
		return time.Time{}, nil, errors.Wrap(tariff.ErrConfiguration, "start_date is required")
	}
	s, err := dateseries.ParseDay(start)
	if err != nil {
		return time.Time{}, nil, errors.Wrapf(tariff.ErrConfiguration, "start_date: %v", err)
	}
	if end == "" {
		return s, nil, nil
	}
	e, err := dateseries.ParseDay(end)
	if err != nil {
		return time.Time{}, nil, errors.Wrapf(tariff.ErrConfiguration, "end_date: %v", err)
	}
	return s, &e, nil
}
