package dateseries

import (
	"iter"
	"time"

	"github.com/pkg/errors"
)

// New creates a series over [start, end] with every slot set to fill.
// An end before start yields an empty series.
func New(start, end time.Time, fill float64) *Series {
	start, end = Truncate(start), Truncate(end)
	n := DaysBetween(start, end) + 1
	if n < 0 {
		n = 0
	}
	values := make([]float64, n)
	if fill != 0 {
		for i := range values {
			values[i] = fill
		}
	}
	return &Series{start: start, end: end, values: values}
}

// FromValues creates a series starting at start holding a copy of values.
func FromValues(start time.Time, values []float64) *Series {
	start = Truncate(start)
	s := &Series{
		start:  start,
		end:    start.AddDate(0, 0, len(values)-1),
		values: make([]float64, len(values)),
	}
	copy(s.values, values)
	return s
}

func (s *Series) Start() time.Time { return s.start }
func (s *Series) End() time.Time   { return s.end }
func (s *Series) Len() int         { return len(s.values) }

// Values returns a copy of the underlying slots.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Contains reports whether date lies within [start, end].
func (s *Series) Contains(date time.Time) bool {
	date = Truncate(date)
	return !date.Before(s.start) && !date.After(s.end)
}

func (s *Series) index(date time.Time) (int, error) {
	if !s.Contains(date) {
		return 0, errors.Wrapf(ErrRange, "%s not in [%s, %s]",
			date.Format(time.DateOnly), s.start.Format(time.DateOnly), s.end.Format(time.DateOnly))
	}
	return DaysBetween(s.start, date), nil
}

// Get returns the value stored for date.
func (s *Series) Get(date time.Time) (float64, error) {
	i, err := s.index(date)
	if err != nil {
		return 0, err
	}
	return s.values[i], nil
}

// Set stores value for date. Only meant for use while a series is being built.
func (s *Series) Set(date time.Time, value float64) error {
	i, err := s.index(date)
	if err != nil {
		return err
	}
	s.values[i] = value
	return nil
}

// Fill sets every day of [from, to] that lies inside the series to value.
// Days outside the series are ignored.
func (s *Series) Fill(from, to time.Time, value float64) {
	s.FillFunc(from, to, func(time.Time) float64 { return value })
}

// FillFunc sets every day of [from, to] that lies inside the series to fn(day).
func (s *Series) FillFunc(from, to time.Time, fn func(day time.Time) float64) {
	from, to = Truncate(from), Truncate(to)
	if from.Before(s.start) {
		from = s.start
	}
	if to.After(s.end) {
		to = s.end
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		s.values[DaysBetween(s.start, d)] = fn(d)
	}
}

// Slice returns a copy of the closed sub-window [from, to].
func (s *Series) Slice(from, to time.Time) (*Series, error) {
	from, to = Truncate(from), Truncate(to)
	if to.Before(from) {
		return nil, errors.Wrapf(ErrRange, "slice end %s before start %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	i, err := s.index(from)
	if err != nil {
		return nil, err
	}
	j, err := s.index(to)
	if err != nil {
		return nil, err
	}
	return FromValues(from, s.values[i:j+1]), nil
}

// IsAlignedWith reports whether both series cover the same window.
func (s *Series) IsAlignedWith(other *Series) bool {
	return s.start.Equal(other.start) && s.end.Equal(other.end) && len(s.values) == len(other.values)
}

// All yields (date, value) pairs in ascending date order.
// Each call starts a new cursor, so partially consumed loops do not affect later ones.
func (s *Series) All() iter.Seq2[time.Time, float64] {
	return func(yield func(time.Time, float64) bool) {
		for i, v := range s.values {
			if !yield(s.start.AddDate(0, 0, i), v) {
				return
			}
		}
	}
}

// CumulativeSum returns the running total of the series.
func (s *Series) CumulativeSum() *Series {
	out := &Series{start: s.start, end: s.end, values: make([]float64, len(s.values))}
	var total float64
	for i, v := range s.values {
		total += v
		out.values[i] = total
	}
	return out
}

// Sum returns the total of all slots.
func (s *Series) Sum() float64 {
	var total float64
	for _, v := range s.values {
		total += v
	}
	return total
}

func (s *Series) combine(other *Series, op func(a, b float64) float64) (*Series, error) {
	if !s.IsAlignedWith(other) {
		return nil, errors.Wrapf(ErrAlignment, "[%s, %s] vs [%s, %s]",
			s.start.Format(time.DateOnly), s.end.Format(time.DateOnly),
			other.start.Format(time.DateOnly), other.end.Format(time.DateOnly))
	}
	out := &Series{start: s.start, end: s.end, values: make([]float64, len(s.values))}
	for i := range s.values {
		out.values[i] = op(s.values[i], other.values[i])
	}
	return out, nil
}

func (s *Series) broadcast(op func(a float64) float64) *Series {
	out := &Series{start: s.start, end: s.end, values: make([]float64, len(s.values))}
	for i, v := range s.values {
		out.values[i] = op(v)
	}
	return out
}

func (s *Series) Add(other *Series) (*Series, error) {
	return s.combine(other, func(a, b float64) float64 { return a + b })
}

func (s *Series) Sub(other *Series) (*Series, error) {
	return s.combine(other, func(a, b float64) float64 { return a - b })
}

func (s *Series) Mul(other *Series) (*Series, error) {
	return s.combine(other, func(a, b float64) float64 { return a * b })
}

// Div divides slot by slot. Division by a zero slot follows IEEE-754.
func (s *Series) Div(other *Series) (*Series, error) {
	return s.combine(other, func(a, b float64) float64 { return a / b })
}

func (s *Series) AddScalar(v float64) *Series {
	return s.broadcast(func(a float64) float64 { return a + v })
}

func (s *Series) SubScalar(v float64) *Series {
	return s.broadcast(func(a float64) float64 { return a - v })
}

func (s *Series) MulScalar(v float64) *Series {
	return s.broadcast(func(a float64) float64 { return a * v })
}

func (s *Series) DivScalar(v float64) *Series {
	return s.broadcast(func(a float64) float64 { return a / v })
}
