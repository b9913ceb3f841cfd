package sink

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/export"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultRecord is the JSON schema for streamed snapshot results.
type ResultRecord struct {
	SnapshotSeq uint64              `json:"snapshot_seq"`
	PublishedAt string              `json:"published_at"`
	Kind        string              `json:"kind"`
	Origin      string              `json:"origin"`
	FetchedAt   string              `json:"fetched_at"`
	Digest      uint64              `json:"digest"`
	Value       jsoniter.RawMessage `json:"value"`
	Instance    string              `json:"instance,omitempty"`
}

// toRows flattens a snapshot into one row per kind. A value that cannot
// be encoded is stored as JSON null.
func toRows(snap *dashboard.Snapshot, instance string) []export.ResultRow {
	digest := snap.Digest()
	rows := make([]export.ResultRow, 0, snap.Len())

	for _, kind := range snap.Kinds() {
		r, _ := snap.Get(kind)

		value, err := json.MarshalToString(r.Value)
		if err != nil {
			value = "null"
		}

		rows = append(rows, export.ResultRow{
			SnapshotSeq: snap.Seq(),
			PublishedAt: snap.PublishedAt().UTC(),
			Kind:        string(kind),
			Origin:      string(r.Origin),
			FetchedAt:   r.FetchedAt.UTC(),
			Digest:      digest,
			Value:       value,
			Instance:    instance,
		})
	}

	return rows
}

func toRecord(row export.ResultRow) *ResultRecord {
	return &ResultRecord{
		SnapshotSeq: row.SnapshotSeq,
		PublishedAt: row.PublishedAt.Format(time.RFC3339Nano),
		Kind:        row.Kind,
		Origin:      row.Origin,
		FetchedAt:   row.FetchedAt.Format(time.RFC3339Nano),
		Digest:      row.Digest,
		Value:       jsoniter.RawMessage(row.Value),
		Instance:    row.Instance,
	}
}
