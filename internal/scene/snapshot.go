package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
	"github.com/durosity/lighttools/internal/kv"
)

// ErrNoEntities is returned when a save is requested for a scene with no
// tracked entities configured.
var ErrNoEntities = errors.New("no tracked entities configured")

// TrackedEntity is one device or variable monitored by a scene.
type TrackedEntity struct {
	ID   string      `yaml:"id"`
	Kind device.Kind `yaml:"kind"`
}

// Snapshot maps tracked entity ids to the values captured at save time.
// Snapshots are replaced wholesale on save, never partially updated.
type Snapshot map[string]device.Value

// Store captures and restores snapshots through an Accessor and persists
// them in a KV bucket so saved scenes survive restarts.
type Store struct {
	accessor device.Accessor
	bucket   kv.Bucket
}

// NewStore creates a snapshot store. The bucket may be a memory bucket
// when persistence is not wanted.
func NewStore(accessor device.Accessor, bucket kv.Bucket) *Store {
	return &Store{accessor: accessor, bucket: bucket}
}

// Save reads the live value of every entity and returns the captured
// snapshot, persisting it under sceneID. All-or-nothing: if any read
// fails, no snapshot is written and the previously persisted one is left
// untouched.
func (s *Store) Save(ctx context.Context, sceneID string, entities []TrackedEntity) (Snapshot, error) {
	if len(entities) == 0 {
		log.Warn().Str("scene", sceneID).Msg("No entities configured, nothing to save")
		return nil, ErrNoEntities
	}

	snapshot := make(Snapshot, len(entities))
	for _, entity := range entities {
		value, err := s.accessor.ReadValue(ctx, entity.ID)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entity.ID, err)
		}
		snapshot[entity.ID] = value
		log.Debug().
			Str("scene", sceneID).
			Str("entity", entity.ID).
			Stringer("value", value).
			Msg("Captured entity state")
	}

	if err := s.persist(sceneID, snapshot); err != nil {
		return nil, err
	}

	log.Info().Str("scene", sceneID).Int("entities", len(snapshot)).Msg("Scene state saved")
	return snapshot, nil
}

// Restore writes every snapshot value back through the accessor.
// Best-effort: individual write failures are logged and collected but do
// not stop the remaining writes.
func (s *Store) Restore(ctx context.Context, snapshot Snapshot) []error {
	var failures []error

	for id, value := range snapshot {
		if err := s.accessor.WriteValue(ctx, id, value); err != nil {
			log.Warn().Err(err).Str("entity", id).Msg("Failed to restore entity state")
			failures = append(failures, &device.WriteError{EntityID: id, Err: err})
			continue
		}
		log.Debug().Str("entity", id).Stringer("value", value).Msg("Restored entity state")
	}

	return failures
}

// Load returns the persisted snapshot for a scene, or false if none has
// been saved yet.
func (s *Store) Load(sceneID string) (Snapshot, bool, error) {
	data, ok, err := s.bucket.Get(sceneID)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", sceneID, err)
	}
	if !ok {
		return nil, false, nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", sceneID, err)
	}
	return snapshot, true, nil
}

// Forget removes the persisted snapshot for a scene.
func (s *Store) Forget(sceneID string) error {
	_, err := s.bucket.Delete(sceneID)
	return err
}

func (s *Store) persist(sceneID string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", sceneID, err)
	}
	if err := s.bucket.Put(sceneID, data); err != nil {
		return fmt.Errorf("persist snapshot %s: %w", sceneID, err)
	}
	return nil
}
