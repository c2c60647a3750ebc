package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sverrirab/generic-rest/internal/auth"
	"github.com/sverrirab/generic-rest/internal/idgen"
	"github.com/sverrirab/generic-rest/internal/record"
)

// Options configures Open.
type Options struct {
	// Path of the persistence file. Empty keeps the store in memory only.
	// Paths ending in .db, .sqlite or .sqlite3 use the SQLite persister,
	// anything else the JSON file persister.
	Path string

	// Persister overrides Path when set.
	Persister Persister

	// Guard checks credentials on mutations. Nil allows everything.
	Guard *auth.Guard

	// IDs generates identifiers for Create. Defaults to idgen.Random.
	IDs idgen.Generator
}

// Store is the record table.
//
// Thread-safety model:
//   - reads: safe from any goroutine
//   - Create/Update/Delete: safe from any goroutine, applied by Run
//   - Run: must be called from exactly one goroutine
type Store struct {
	mu   sync.RWMutex
	data map[string]record.Record

	persister Persister
	guard     *auth.Guard
	ids       idgen.Generator
	queue     *mutationQueue

	runOnce sync.Once
}

// Open creates a Store and loads the existing data once.
// A missing file is an empty store; any other read error is returned.
func Open(opts Options) (*Store, error) {
	p := opts.Persister
	if p == nil {
		var err error
		p, err = NewPersister(opts.Path)
		if err != nil {
			return nil, err
		}
	}

	data, err := p.Load()
	if err != nil {
		p.Close()
		return nil, newPersistenceError("load records", err)
	}
	if data == nil {
		data = make(map[string]record.Record)
	}
	slog.Info("loaded records", "source", p.String(), "records", len(data))

	ids := opts.IDs
	if ids == nil {
		ids = idgen.Random{}
	}

	return &Store{
		data:      data,
		persister: p,
		guard:     opts.Guard,
		ids:       ids,
		queue:     newMutationQueue(),
	}, nil
}

// Run starts the single-writer loop and blocks until ctx is cancelled or
// Close is called. Mutations still queued at that point fail with ErrClosed.
//
// Must be called from exactly one goroutine, and only once.
func (s *Store) Run(ctx context.Context) error {
	started := false
	s.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("store: Run called more than once")
	}

	slog.Debug("store writer starting")
	for {
		if m, ok := s.queue.TryDequeue(); ok {
			s.process(m)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("store writer stopping: context cancelled")
			s.shutdown()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel is closed by Close; drain and exit.
			if s.queue.Len() == 0 && s.queue.Closed() {
				slog.Debug("store writer stopping: queue closed")
				return nil
			}
		}
	}
}

// shutdown closes the queue and fails everything still pending.
func (s *Store) shutdown() {
	for _, m := range s.queue.Close() {
		if m.state.CompareAndSwap(statePending, stateRunning) {
			m.reply <- mutationResult{err: ErrClosed}
		}
	}
}

// Close stops the writer loop and releases the persister.
// Data is already on disk after every mutation; Close does not write.
func (s *Store) Close() error {
	s.shutdown()
	return s.persister.Close()
}

// All returns a copy of the whole table.
func (s *Store) All() map[string]record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTable(s.data)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Exists reports whether id is present.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return rec.Clone(), nil
}

// GetField returns one field of the record for id. Fails with NotFound if
// the id is absent or the record has no such field.
func (s *Store) GetField(id, field string) (record.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	val, ok := rec[field]
	if !ok {
		return nil, NewFieldNotFoundError(id, field)
	}
	return val, nil
}

// GetWithDigest returns a copy of the record for id together with its
// content digest, both taken under the same read lock.
func (s *Store) GetWithDigest(id string) (record.Record, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, "", NewNotFoundError(id)
	}
	digest, err := record.Digest(rec)
	if err != nil {
		return nil, "", fmt.Errorf("digest record %s: %w", id, err)
	}
	return rec.Clone(), digest, nil
}

// Create stores rec under a fresh identifier and returns it.
func (s *Store) Create(ctx context.Context, authHeader string, rec record.Record) (string, error) {
	if err := s.authorize(authHeader); err != nil {
		return "", err
	}
	return s.submit(ctx, newMutation(opCreate, "", rec.Clone(), false))
}

// Update stores rec under id. With strict set, id must already exist;
// otherwise a missing id is created (upsert).
func (s *Store) Update(ctx context.Context, authHeader, id string, rec record.Record, strict bool) error {
	if err := s.authorize(authHeader); err != nil {
		return err
	}
	_, err := s.submit(ctx, newMutation(opUpdate, id, rec.Clone(), strict))
	return err
}

// Delete removes id.
func (s *Store) Delete(ctx context.Context, authHeader, id string) error {
	if err := s.authorize(authHeader); err != nil {
		return err
	}
	_, err := s.submit(ctx, newMutation(opDelete, id, nil, false))
	return err
}

func (s *Store) authorize(header string) error {
	if err := s.guard.Check(header); err != nil {
		return newUnauthorizedError(err)
	}
	return nil
}

func (s *Store) submit(ctx context.Context, m *mutation) (string, error) {
	if !s.queue.Enqueue(m) {
		return "", ErrClosed
	}
	return m.wait(ctx)
}

// process applies one mutation.
// CRITICAL: called only from the Run goroutine.
func (s *Store) process(m *mutation) {
	if !m.state.CompareAndSwap(statePending, stateRunning) {
		slog.Debug("skipping cancelled mutation", "op", m.op, "id", m.id)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res mutationResult
	switch m.op {
	case opCreate:
		res.id, res.err = s.applyCreate(m.rec)
	case opUpdate:
		res.id, res.err = m.id, s.applyUpdate(m.id, m.rec, m.strict)
	case opDelete:
		res.id, res.err = m.id, s.applyDelete(m.id)
	default:
		res.err = fmt.Errorf("unknown mutation %d", m.op)
	}
	m.reply <- res
}

// The apply functions run with s.mu held for writing.

func (s *Store) applyCreate(rec record.Record) (string, error) {
	id := s.ids.Generate(func(candidate string) bool {
		_, taken := s.data[candidate]
		return taken
	})

	s.data[id] = rec
	if err := s.persist(); err != nil {
		delete(s.data, id)
		return "", err
	}

	slog.Info("record created", "id", id)
	return id, nil
}

func (s *Store) applyUpdate(id string, rec record.Record, strict bool) error {
	prev, existed := s.data[id]
	if strict && !existed {
		return NewNotFoundError(id)
	}

	s.data[id] = rec
	if err := s.persist(); err != nil {
		if existed {
			s.data[id] = prev
		} else {
			delete(s.data, id)
		}
		return err
	}

	slog.Info("record updated", "id", id, "created", !existed)
	return nil
}

func (s *Store) applyDelete(id string) error {
	prev, existed := s.data[id]
	if !existed {
		return NewNotFoundError(id)
	}

	delete(s.data, id)
	if err := s.persist(); err != nil {
		s.data[id] = prev
		return err
	}

	slog.Info("record deleted", "id", id)
	return nil
}

func (s *Store) persist() error {
	if err := s.persister.Save(s.data); err != nil {
		slog.Error("persist failed", "target", s.persister.String(), "error", err)
		return newPersistenceError("save records", err)
	}
	slog.Debug("persisted records", "target", s.persister.String(), "records", len(s.data))
	return nil
}

func cloneTable(src map[string]record.Record) map[string]record.Record {
	out := make(map[string]record.Record, len(src))
	for id, rec := range src {
		out[id] = rec.Clone()
	}
	return out
}
