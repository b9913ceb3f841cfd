package metric

import "time"

// Origin records whether a value came from the backend or the fallback
// catalog.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginFallback Origin = "fallback"
)

// Result is the outcome of fetching one kind. Origin is OriginFallback
// whenever the live response was rejected or could not be obtained.
type Result[T any] struct {
	Kind      Kind      `json:"kind"`
	Value     T         `json:"value"`
	Origin    Origin    `json:"origin"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Live builds a result carrying a backend value.
func Live[T any](kind Kind, value T, at time.Time) Result[T] {
	return Result[T]{Kind: kind, Value: value, Origin: OriginLive, FetchedAt: at}
}

// Fallback builds a result carrying a catalog value.
func Fallback[T any](kind Kind, value T, at time.Time) Result[T] {
	return Result[T]{Kind: kind, Value: value, Origin: OriginFallback, FetchedAt: at}
}

// IsFallback reports whether the value was substituted.
func (r Result[T]) IsFallback() bool {
	return r.Origin == OriginFallback
}

// Erase drops the static value type so results of different kinds can
// share one container.
func (r Result[T]) Erase() Result[any] {
	return Result[any]{
		Kind:      r.Kind,
		Value:     r.Value,
		Origin:    r.Origin,
		FetchedAt: r.FetchedAt,
	}
}

// As recovers the static type of an erased result.
func As[T any](r Result[any]) (Result[T], bool) {
	v, ok := r.Value.(T)
	if !ok {
		return Result[T]{}, false
	}

	return Result[T]{
		Kind:      r.Kind,
		Value:     v,
		Origin:    r.Origin,
		FetchedAt: r.FetchedAt,
	}, true
}

// Params carries the size and window parameters of one cycle.
type Params struct {
	// Days is the timeline window.
	Days int `yaml:"days" json:"days"`
	// Months is the trend comparison window.
	Months int `yaml:"months" json:"months"`
	// Limit is the number of water quality readings.
	Limit int `yaml:"limit" json:"limit"`
}

// DefaultParams returns the windows the dashboard polls with.
func DefaultParams() Params {
	return Params{Days: 30, Months: 6, Limit: 20}
}

// WithDefaults replaces non-positive fields with their defaults.
func (p Params) WithDefaults() Params {
	d := DefaultParams()

	if p.Days <= 0 {
		p.Days = d.Days
	}

	if p.Months <= 0 {
		p.Months = d.Months
	}

	if p.Limit <= 0 {
		p.Limit = d.Limit
	}

	return p
}
