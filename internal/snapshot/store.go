package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Version tags the snapshot envelope format. Bump on incompatible changes;
// recovery refuses snapshots written under a different version.
const Version = 1

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrCorrupt  = errors.New("snapshot corrupt")
)

// Record is one durable copy of in-progress session state. Only the
// highest-seq record per session matters; superseded ones are overwritten.
type Record struct {
	Version int             `json:"version"`
	Seq     uint64          `json:"seq"`
	TakenAt time.Time       `json:"taken_at"`
	State   json.RawMessage `json:"state"`
}

// Store persists the latest snapshot per session id with a strictly
// increasing sequence number. A crash between writes loses at most the
// work since the last successful Save.
type Store interface {
	Save(ctx context.Context, sessionID string, state json.RawMessage, takenAt time.Time) (uint64, error)
	LoadLatest(ctx context.Context, sessionID string) (Record, error)
	Delete(ctx context.Context, sessionID string) error
	SessionIDs(ctx context.Context) ([]string, error)
	Close() error
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Join(ErrCorrupt, err)
	}
	if rec.Version != Version {
		return Record{}, ErrCorrupt
	}
	return rec, nil
}
