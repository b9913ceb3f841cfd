package dashboard

import (
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aquaguardian/aquaboard/internal/metric"
)

// Snapshot is the complete set of results of one aggregation cycle. It is
// never modified after publication; callers must treat returned values as
// read-only.
type Snapshot struct {
	seq         uint64
	publishedAt time.Time
	kinds       []metric.Kind
	results     map[metric.Kind]metric.Result[any]
	digest      uint64
}

func newSnapshot(
	seq uint64,
	publishedAt time.Time,
	results []metric.Result[any],
) *Snapshot {
	s := &Snapshot{
		seq:         seq,
		publishedAt: publishedAt,
		kinds:       make([]metric.Kind, 0, len(results)),
		results:     make(map[metric.Kind]metric.Result[any], len(results)),
	}

	for _, r := range results {
		s.kinds = append(s.kinds, r.Kind)
		s.results[r.Kind] = r
	}

	s.digest = s.hash()

	return s
}

// Seq is the number of the cycle that produced the snapshot.
func (s *Snapshot) Seq() uint64 {
	return s.seq
}

// PublishedAt is when the snapshot replaced its predecessor.
func (s *Snapshot) PublishedAt() time.Time {
	return s.publishedAt
}

// Kinds lists the kinds present, in registration order.
func (s *Snapshot) Kinds() []metric.Kind {
	out := make([]metric.Kind, len(s.kinds))
	copy(out, s.kinds)

	return out
}

// Len returns the number of kinds present.
func (s *Snapshot) Len() int {
	return len(s.results)
}

// Get returns the erased result for kind.
func (s *Snapshot) Get(kind metric.Kind) (metric.Result[any], bool) {
	r, ok := s.results[kind]

	return r, ok
}

// Complete reports whether every kind in kinds is present.
func (s *Snapshot) Complete(kinds []metric.Kind) bool {
	for _, k := range kinds {
		if _, ok := s.results[k]; !ok {
			return false
		}
	}

	return true
}

// FallbackKinds lists the kinds served from the fallback catalog.
func (s *Snapshot) FallbackKinds() []metric.Kind {
	var out []metric.Kind

	for _, k := range s.kinds {
		if s.results[k].IsFallback() {
			out = append(out, k)
		}
	}

	return out
}

// Digest hashes kinds, origins and values. Fetch times and the sequence
// number are excluded, so two cycles over identical backend state have
// equal digests.
func (s *Snapshot) Digest() uint64 {
	return s.digest
}

func (s *Snapshot) hash() uint64 {
	h := xxh3.New()

	for _, k := range s.kinds {
		r := s.results[k]

		h.WriteString(string(k))
		h.WriteString(string(r.Origin))

		body, err := json.Marshal(r.Value)
		if err != nil {
			// Values are plain data; this only trips on a programming error.
			h.WriteString(err.Error())

			continue
		}

		h.Write(body)
	}

	return h.Sum64()
}

type snapshotJSON struct {
	Seq         uint64                             `json:"seq"`
	PublishedAt time.Time                          `json:"published_at"`
	Kinds       []metric.Kind                      `json:"kinds"`
	Results     map[metric.Kind]metric.Result[any] `json:"results"`
}

// MarshalJSON encodes the snapshot for consumers.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Seq:         s.seq,
		PublishedAt: s.publishedAt,
		Kinds:       s.kinds,
		Results:     s.results,
	})
}

// Value returns the typed result for kind.
func Value[T any](s *Snapshot, kind metric.Kind) (metric.Result[T], bool) {
	if s == nil {
		return metric.Result[T]{}, false
	}

	r, ok := s.results[kind]
	if !ok {
		return metric.Result[T]{}, false
	}

	return metric.As[T](r)
}
