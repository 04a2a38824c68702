package tariff

import (
	"sort"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/pkg/errors"
)

// NewSchedule sorts periods by start date and closes every open period on the start of the next one.
// The last period keeps its End, nil meaning unbounded.
func NewSchedule[T any](periods []Period[T]) (*Schedule[T], error) {
	ps := make([]Period[T], len(periods))
	copy(ps, periods)

	for i := range ps {
		if ps[i].Start.IsZero() {
			return nil, errors.Wrapf(ErrConfiguration, "period %d has no start date", i)
		}
		ps[i].Start = dateseries.Truncate(ps[i].Start)
		if ps[i].End != nil {
			end := dateseries.Truncate(*ps[i].End)
			if !end.After(ps[i].Start) {
				return nil, errors.Wrapf(ErrConfiguration, "period %d ends on %s, not after its start %s",
					i, end.Format(time.DateOnly), ps[i].Start.Format(time.DateOnly))
			}
			ps[i].End = &end
		}
	}

	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Start.Before(ps[j].Start) })

	for i := 0; i < len(ps)-1; i++ {
		if ps[i].End == nil {
			next := ps[i+1].Start
			ps[i].End = &next
		}
	}
	return &Schedule[T]{periods: ps}, nil
}

func (s *Schedule[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.periods)
}

// Periods returns a copy of the normalized periods.
func (s *Schedule[T]) Periods() []Period[T] {
	if s == nil {
		return nil
	}
	out := make([]Period[T], len(s.periods))
	copy(out, s.periods)
	return out
}

// Map builds a schedule with the same dates and fn applied to every value.
func Map[T, U any](s *Schedule[T], fn func(p Period[T]) (U, error)) (*Schedule[U], error) {
	out := &Schedule[U]{periods: make([]Period[U], s.Len())}
	for i := 0; i < s.Len(); i++ {
		p := s.periods[i]
		v, err := fn(p)
		if err != nil {
			return nil, err
		}
		out.periods[i] = Period[U]{Start: p.Start, End: p.End, Value: v}
	}
	return out, nil
}

// Rasterize materializes the schedule over [from, to]. value gives the amount a
// period contributes on a given day.
//
// Boundary policy:
//   - a window ending before the first period takes the first period's value;
//   - a window starting after an explicitly bounded last period takes the last period's value;
//   - otherwise days before the first period clamp to the first, days after the last
//     period's end clamp to the last, and each period fills its overlap with the window.
//     Periods are painted in order, so a shared boundary day belongs to the later period.
//
// An empty schedule rasterizes to zeros.
func (s *Schedule[T]) Rasterize(from, to time.Time, value func(p *Period[T], day time.Time) float64) *dateseries.Series {
	from, to = dateseries.Truncate(from), dateseries.Truncate(to)
	out := dateseries.New(from, to, 0)
	if s.Len() == 0 {
		return out
	}

	paint := func(p *Period[T], a, b time.Time) {
		out.FillFunc(a, b, func(day time.Time) float64 { return value(p, day) })
	}

	first := &s.periods[0]
	last := &s.periods[len(s.periods)-1]

	switch {
	case to.Before(first.Start):
		paint(first, from, to)
	case last.End != nil && from.After(*last.End):
		paint(last, from, to)
	default:
		if from.Before(first.Start) {
			paint(first, from, first.Start.AddDate(0, 0, -1))
		}
		if last.End != nil && to.After(*last.End) {
			paint(last, *last.End, to)
		}
		for i := range s.periods {
			p := &s.periods[i]
			start := p.Start
			if start.Before(from) {
				start = from
			}
			end := to
			if p.End != nil && p.End.Before(to) {
				end = *p.End
			}
			paint(p, start, end)
		}
	}
	return out
}

// RasterizeScalar rasterizes a plain numeric schedule.
func RasterizeScalar(s *Schedule[float64], from, to time.Time) *dateseries.Series {
	return s.Rasterize(from, to, func(p *Period[float64], _ time.Time) float64 { return p.Value })
}

// HasQuantityValue reports whether any breakpoint carries a price per quantity.
func HasQuantityValue(s *PriceSchedule) bool {
	for i := 0; i < s.Len(); i++ {
		if s.periods[i].Value.QuantityValue != nil {
			return true
		}
	}
	return false
}
