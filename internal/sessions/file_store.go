package sessions

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/galinilin/docgemma-connect/pkg/models"
)

// FileStore is a Store backed by a directory of `{session_id}.json`
// files, with an in-memory cache acting as the read path and every
// mutation written through atomically (write to a sibling temp file,
// then rename), grounded in
// original_source/.../api/services/session_store.py's SessionStore.
type FileStore struct {
	mu       sync.RWMutex
	dataDir  string
	sessions map[string]*models.Session
	locker   *SessionLocker
}

// NewFileStore opens (creating if necessary) dataDir and loads every
// `*.json` file in it into the cache. Any loaded session carrying a
// pending-approval record has it cleared and its status reset to idle,
// since checkpoints never survive a restart (spec §4.C, invariant I3).
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	fs := &FileStore{
		dataDir:  dataDir,
		sessions: make(map[string]*models.Session),
		locker:   NewSessionLocker(DefaultLockTimeout),
	}
	if err := fs.loadAll(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) loadAll() error {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dataDir, entry.Name()))
		if err != nil {
			continue
		}
		var s models.Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if s.PendingApproval != nil {
			s.PendingApproval = nil
			s.Status = models.SessionIdle
		}
		fs.sessions[s.ID] = &s
	}
	return nil
}

func (fs *FileStore) path(id string) string {
	return filepath.Join(fs.dataDir, id+".json")
}

// save atomically persists s: write to a sibling .tmp file, then rename
// over the target (spec §6.2's write-via-temp-then-rename requirement).
// Callers must hold fs.mu.
func (fs *FileStore) save(s *models.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	target := fs.path(s.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (fs *FileStore) Create(_ context.Context) (*models.Session, error) {
	now := time.Now()
	s := &models.Session{
		ID:        uuid.NewString(),
		Status:    models.SessionIdle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sessions[s.ID] = s
	if err := fs.save(s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (fs *FileStore) Get(_ context.Context, id string) (*models.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	s, ok := fs.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (fs *FileStore) List(_ context.Context) ([]*models.Session, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]*models.Session, 0, len(fs.sessions))
	for _, s := range fs.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(fs.sessions, id)
	if err := os.Remove(fs.path(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (fs *FileStore) mutate(id string, fn func(s *models.Session)) error {
	if err := fs.locker.Lock(id); err != nil {
		return err
	}
	defer fs.locker.Unlock(id)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return fs.save(s)
}

func (fs *FileStore) AppendMessage(_ context.Context, id string, msg models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return fs.mutate(id, func(s *models.Session) {
		s.Messages = append(s.Messages, msg)
	})
}

func (fs *FileStore) SetPendingApproval(_ context.Context, id string, pa models.PendingApproval) error {
	return fs.mutate(id, func(s *models.Session) {
		s.PendingApproval = &pa
		s.Status = models.SessionWaitingApproval
	})
}

func (fs *FileStore) ClearPendingApproval(_ context.Context, id string) error {
	return fs.mutate(id, func(s *models.Session) {
		s.PendingApproval = nil
		if s.Status == models.SessionWaitingApproval {
			s.Status = models.SessionProcessing
		}
	})
}

func (fs *FileStore) ResetForNewTurn(_ context.Context, id string) error {
	return fs.mutate(id, func(s *models.Session) {
		s.PendingApproval = nil
		s.Status = models.SessionProcessing
	})
}

func (fs *FileStore) SetStatus(_ context.Context, id string, status models.SessionStatus) error {
	return fs.mutate(id, func(s *models.Session) {
		s.Status = status
	})
}

func (fs *FileStore) SetPatientHint(_ context.Context, id string, hint string) error {
	return fs.mutate(id, func(s *models.Session) {
		s.PatientHint = hint
	})
}

var _ Store = (*FileStore)(nil)
