package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2/maybe"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-gin-auth-backend/internal/domain"
)

type FileStoreOptions struct {
	Path string
	// FailOnCorrupt makes unreadable files an error instead of an empty store.
	FailOnCorrupt bool
	Logger        *zap.Logger
}

// FileStore persists the whole collection as one pretty-printed JSON array.
// Writes replace the file via rename so readers never see a partial file.
type FileStore struct {
	*collection
	path    string
	strict  bool
	log     *zap.Logger
	sf      singleflight.Group
	corrupt atomic.Bool
}

func NewFileStore(o FileStoreOptions) (*FileStore, error) {
	if o.Path == "" {
		return nil, errors.New("file store: empty path")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	s := &FileStore{path: o.Path, strict: o.FailOnCorrupt, log: o.Logger}
	s.collection = &collection{
		fresh: func(context.Context) ([]domain.User, error) { return s.readFile() },
		view:  s.coalescedRead,
		write: s.writeFile,
	}
	if _, err := s.readFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) coalescedRead(context.Context) ([]domain.User, error) {
	v, err, _ := s.sf.Do("load", func() (any, error) { return s.readFile() })
	if err != nil {
		return nil, err
	}
	return cloneAll(v.([]domain.User)), nil
}

func (s *FileStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("file store: create data dir: %w", err)
	}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return s.writeFile(context.Background(), []domain.User{})
	}
	return nil
}

func (s *FileStore) readFile() ([]domain.User, error) {
	if err := s.ensure(); err != nil {
		return s.degrade(err)
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return s.degrade(err)
	}
	var users []domain.User
	if err := json.Unmarshal(b, &users); err != nil {
		return s.degrade(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	s.corrupt.Store(false)
	return users, nil
}

// degrade applies the corruption policy: strict stores surface the problem,
// tolerant ones log it and report an empty collection.
func (s *FileStore) degrade(cause error) ([]domain.User, error) {
	if s.strict {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreCorrupt, s.path, cause)
	}
	s.corrupt.Store(true)
	s.log.Error("user store unreadable, treating as empty",
		zap.String("path", s.path), zap.Error(cause))
	return []domain.User{}, nil
}

func (s *FileStore) writeFile(_ context.Context, users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}
	b, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("file store: create data dir: %w", err)
	}
	if s.corrupt.Swap(false) {
		s.quarantine()
	}

	if err := maybe.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("file store: replace: %w", err)
	}
	return nil
}

// quarantine moves an unreadable file aside so the next write cannot
// destroy whatever it held.
func (s *FileStore) quarantine() {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, dst); err != nil {
		s.log.Error("could not move corrupt user store aside", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.log.Warn("corrupt user store preserved", zap.String("path", dst))
}

var _ domain.UserRepository = (*FileStore)(nil)
