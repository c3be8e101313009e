package device

import (
	"context"
	"sync"
)

// FakeAccessor is an in-memory Accessor for tests. Entities not present in
// the map read as unreachable. Individual entities can be forced to fail.
type FakeAccessor struct {
	mu     sync.Mutex
	values map[string]Value

	// ReadErrors and WriteErrors force failures per entity id.
	ReadErrors  map[string]error
	WriteErrors map[string]error

	// Writes records every successful WriteValue call in order.
	Writes []FakeWrite
}

// FakeWrite is one recorded write.
type FakeWrite struct {
	EntityID string
	Value    Value
}

// NewFakeAccessor creates a FakeAccessor seeded with the given values.
func NewFakeAccessor(values map[string]Value) *FakeAccessor {
	seeded := make(map[string]Value, len(values))
	for id, v := range values {
		seeded[id] = v
	}
	return &FakeAccessor{
		values:      seeded,
		ReadErrors:  make(map[string]error),
		WriteErrors: make(map[string]error),
	}
}

// ReadValue returns the seeded value or ErrUnreachable.
func (f *FakeAccessor) ReadValue(_ context.Context, entityID string) (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.ReadErrors[entityID]; ok {
		return Value{}, err
	}
	v, ok := f.values[entityID]
	if !ok {
		return Value{}, ErrUnreachable
	}
	return v, nil
}

// WriteValue stores the value and records the write.
func (f *FakeAccessor) WriteValue(_ context.Context, entityID string, value Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.WriteErrors[entityID]; ok {
		return err
	}
	f.values[entityID] = value
	f.Writes = append(f.Writes, FakeWrite{EntityID: entityID, Value: value})
	return nil
}

// Set updates a value directly, bypassing write recording. Used by tests
// to simulate external changes.
func (f *FakeAccessor) Set(entityID string, value Value) {
	f.mu.Lock()
	f.values[entityID] = value
	f.mu.Unlock()
}

// Remove deletes an entity, making subsequent reads unreachable.
func (f *FakeAccessor) Remove(entityID string) {
	f.mu.Lock()
	delete(f.values, entityID)
	f.mu.Unlock()
}

// Get returns the current value and whether it exists.
func (f *FakeAccessor) Get(entityID string) (Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[entityID]
	return v, ok
}

// WriteCount returns how many writes were recorded.
func (f *FakeAccessor) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}
