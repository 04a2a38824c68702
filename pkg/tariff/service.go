package tariff

import (
	"iter"

	"github.com/pkg/errors"
)

func NewComponents() *Components {
	return &Components{schedules: make(map[string]*PriceSchedule)}
}

// Add appends a named schedule, keeping insertion order.
func (c *Components) Add(name string, s *PriceSchedule) error {
	if name == "" {
		return errors.Wrap(ErrConfiguration, "component name is empty")
	}
	if _, dup := c.schedules[name]; dup {
		return errors.Wrapf(ErrConfiguration, "duplicate component %q", name)
	}
	c.names = append(c.names, name)
	c.schedules[name] = s
	return nil
}

func (c *Components) Get(name string) (*PriceSchedule, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.schedules[name]
	return s, ok
}

func (c *Components) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns the component names in insertion order.
func (c *Components) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// All yields components in insertion order.
func (c *Components) All() iter.Seq2[string, *PriceSchedule] {
	return func(yield func(string, *PriceSchedule) bool) {
		if c == nil {
			return
		}
		for _, n := range c.names {
			if !yield(n, c.schedules[n]) {
				return
			}
		}
	}
}

// Validate checks that the tariff can be priced: at least one component, at least one
// price per quantity somewhere, and unique VAT ids.
func (t *Tariff) Validate() error {
	if t.Components.Len() == 0 {
		return errors.Wrap(ErrConfiguration, "at least one pricing component is required")
	}
	hasQuantity := false
	for _, s := range t.Components.All() {
		if HasQuantityValue(s) {
			hasQuantity = true
			break
		}
	}
	if !hasQuantity {
		return errors.Wrap(ErrConfiguration, "at least one component must have a quantity_value")
	}
	seen := make(map[string]bool, len(t.VatClasses))
	for _, v := range t.VatClasses {
		if seen[v.ID] {
			return errors.Wrapf(ErrConfiguration, "duplicate vat id %q", v.ID)
		}
		seen[v.ID] = true
	}
	return nil
}

// VatIDs lists VAT class ids in declaration order.
func (t *Tariff) VatIDs() []string {
	ids := make([]string, 0, len(t.VatClasses))
	for _, v := range t.VatClasses {
		ids = append(ids, v.ID)
	}
	return ids
}
