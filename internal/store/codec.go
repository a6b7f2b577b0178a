package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/ashureev/edem-agent/internal/domain"
)

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt agent snapshot")

const snapshotVersion = 1

// snapshotRecord is the on-disk layout. Integer keys keep the encoding
// compact and stable when Go field names change.
type snapshotRecord struct {
	Version   int      `cbor:"1,keyasint"`
	Surface   []string `cbor:"2,keyasint,omitempty"`
	Patterns  []string `cbor:"3,keyasint,omitempty"`
	Trauma    *string  `cbor:"4,keyasint,omitempty"`
	Phase     string   `cbor:"5,keyasint"`
	Energy    float64  `cbor:"6,keyasint"`
	Origin    string   `cbor:"7,keyasint"`
	Fear      string   `cbor:"8,keyasint"`
	Desire    string   `cbor:"9,keyasint"`
	UpdatedAt int64    `cbor:"10,keyasint"` // unix nanoseconds
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// encodeSnapshot serializes the persisted part of a snapshot. The user ID
// lives in its own column and is not repeated in the blob.
func encodeSnapshot(snap *domain.AgentSnapshot) ([]byte, error) {
	rec := snapshotRecord{
		Version:   snapshotVersion,
		Surface:   snap.Memory.Surface,
		Patterns:  snap.Memory.Patterns,
		Trauma:    snap.Memory.Trauma,
		Phase:     string(snap.Phase.Phase),
		Energy:    snap.Phase.Energy,
		Origin:    snap.Myth.Origin,
		Fear:      snap.Myth.Fear,
		Desire:    snap.Myth.Desire,
		UpdatedAt: snap.UpdatedAt.UnixNano(),
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(userID string, data []byte) (*domain.AgentSnapshot, error) {
	var rec snapshotRecord
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w for user %s: %w", ErrCorruptSnapshot, userID, err)
	}
	if rec.Version != snapshotVersion {
		return nil, fmt.Errorf("%w for user %s: unsupported version %d", ErrCorruptSnapshot, userID, rec.Version)
	}
	phase := domain.Phase(rec.Phase)
	if !phase.Valid() {
		return nil, fmt.Errorf("%w for user %s: unknown phase %q", ErrCorruptSnapshot, userID, rec.Phase)
	}

	return &domain.AgentSnapshot{
		UserID: userID,
		Memory: domain.MemoryState{
			Surface:  rec.Surface,
			Patterns: rec.Patterns,
			Trauma:   rec.Trauma,
		},
		Phase: domain.PhaseState{Phase: phase, Energy: rec.Energy},
		Myth: domain.MythContext{
			Origin: rec.Origin,
			Fear:   rec.Fear,
			Desire: rec.Desire,
		},
		UpdatedAt: time.Unix(0, rec.UpdatedAt).UTC(),
	}, nil
}
