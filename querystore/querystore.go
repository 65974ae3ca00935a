// Package querystore holds named SQL templates looked up by the DAO layer.
//
// Templates are addressed by a namespace, the entity type name, and a
// query name. A Store loads them from a directory of YAML files:
//
//	# queries/account.yaml
//	namespace: Account
//	queries:
//	  byOwner: SELECT ID, OWNER, BALANCE FROM ACCOUNTS WHERE OWNER = ?
//	  rich: |
//	    SELECT ID, OWNER, BALANCE FROM ACCOUNTS
//	    WHERE BALANCE > ? ORDER BY BALANCE DESC
package querystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no template exists for a name.
var ErrNotFound = errors.New("querystore: query not found")

// Repository resolves named SQL templates.
type Repository interface {
	// Lookup returns the template registered as namespace.name, or as the
	// bare name when no namespaced template exists.
	Lookup(namespace, name string) (string, error)
}

// Key returns the lookup key of a namespaced query.
func Key(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Map is an in-memory Repository keyed by Key(namespace, name).
type Map map[string]string

// Lookup implements Repository.
func (m Map) Lookup(namespace, name string) (string, error) {
	return lookup(m, namespace, name)
}

func lookup(m map[string]string, namespace, name string) (string, error) {
	if q, ok := m[Key(namespace, name)]; ok {
		return q, nil
	}
	if q, ok := m[name]; ok {
		return q, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, Key(namespace, name))
}

// File is the YAML layout of a template file. An empty namespace defaults
// to the file name without extension.
type File struct {
	Namespace string            `yaml:"namespace,omitempty"`
	Queries   map[string]string `yaml:"queries"`
}

// LoadFile reads the templates of one file into a map keyed by Key.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse query file %s: %w", filepath.Base(path), err)
	}
	ns := f.Namespace
	if ns == "" {
		ns = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m := make(map[string]string, len(f.Queries))
	for name, q := range f.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("query file %s: query %q is empty", filepath.Base(path), name)
		}
		m[Key(ns, name)] = q
	}
	return m, nil
}

// Store is a Repository backed by a directory of YAML files. It is safe
// for concurrent use and can be reloaded while in use.
type Store struct {
	dir     string
	log     *slog.Logger
	mu      sync.RWMutex
	queries map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report reloads.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open loads all *.yaml and *.yml files of dir into a new Store.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads every template file of dir. A key defined in two files is an
// error.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read query dir: %w", err)
	}
	all := make(map[string]string)
	origin := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isQueryFile(e.Name()) {
			continue
		}
		m, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		for k, q := range m {
			if prev, ok := origin[k]; ok {
				return nil, fmt.Errorf("query %q defined in both %s and %s", k, prev, e.Name())
			}
			origin[k] = e.Name()
			all[k] = q
		}
	}
	return all, nil
}

func isQueryFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Reload re-reads the directory. On error the previous templates are kept.
func (s *Store) Reload() error {
	m, err := Load(s.dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.queries = m
	s.mu.Unlock()
	return nil
}

// Lookup implements Repository.
func (s *Store) Lookup(namespace, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.queries, namespace, name)
}

// Names returns the sorted keys of all loaded templates.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.queries))
}

// Watch reloads the store whenever a template file in its directory
// changes, until ctx is done. onReload, if not nil, receives the result
// of every reload.
func (s *Store) Watch(ctx context.Context, onReload func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("querystore: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("querystore: watch %s: %w", s.dir, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isQueryFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			err := s.Reload()
			if err != nil {
				s.log.WarnContext(ctx, "query reload failed", "dir", s.dir, "file", ev.Name, "error", err)
			} else {
				s.log.DebugContext(ctx, "queries reloaded", "dir", s.dir, "file", ev.Name)
			}
			if onReload != nil {
				onReload(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.WarnContext(ctx, "query watcher error", "dir", s.dir, "error", err)
		}
	}
}

var (
	_ Repository = Map(nil)
	_ Repository = (*Store)(nil)
)
