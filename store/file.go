package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	fileFormatVersion = 1

	// DefaultMaxBackups is how many timestamped backups a File keeps.
	DefaultMaxBackups = 10
)

var errNoValidBackup = errors.New("no valid backup found")

// fileState is the on-disk document of a File store.
type fileState struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

func newFileState() fileState {
	return fileState{Version: fileFormatVersion, Entries: map[string]json.RawMessage{}}
}

// FileOptions configures a File store.
type FileOptions struct {
	// MaxBackups is the number of rotating backups to keep.
	// Zero means DefaultMaxBackups; negative disables backups.
	MaxBackups int
}

// File keeps every entry in a single JSON document on disk. Each write
// replaces the document atomically and rotates a backup of the previous
// version, so a corrupt document can be recovered on the next open.
type File struct {
	mu         sync.Mutex
	path       string
	maxBackups int
	state      fileState
	recovered  string
}

// OpenFile loads the store at path, creating an empty one if it does not
// exist. A corrupt document is moved aside and replaced by the newest valid
// backup, or by an empty store when no backup is usable; RecoveryMessage
// describes what happened.
func OpenFile(path string, opts FileOptions) (*File, error) {
	maxBackups := opts.MaxBackups
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}

	state, msg, err := loadWithRecovery(path)
	if err != nil {
		return nil, err
	}
	return &File{
		path:       path,
		maxBackups: maxBackups,
		state:      state,
		recovered:  msg,
	}, nil
}

// Path returns the document path.
func (f *File) Path() string {
	return f.path
}

// RecoveryMessage is non-empty when OpenFile had to recover from corruption.
func (f *File) RecoveryMessage() string {
	return f.recovered
}

func (f *File) Get(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	raw, ok := f.state.Entries[key]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (f *File) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.state
	next.Entries = maps.Clone(f.state.Entries)
	next.Entries[key] = raw
	if err := autosave(f.path, next, f.maxBackups); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	f.state = next
	return nil
}

func (f *File) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.state.Entries[key]; !ok {
		return nil
	}
	next := f.state
	next.Entries = maps.Clone(f.state.Entries)
	delete(next.Entries, key)
	if err := autosave(f.path, next, f.maxBackups); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	f.state = next
	return nil
}

// load reads the document at path. A missing file yields an empty state.
func load(path string) (fileState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newFileState(), nil
		}
		return fileState{}, err
	}
	return decodeState(data)
}

func loadWithRecovery(path string) (fileState, string, error) {
	state, err := load(path)
	if err == nil {
		return state, "", nil
	}
	if !isCorruptStateError(err) {
		return fileState{}, "", fmt.Errorf("read store: %w", err)
	}

	corruptPath, err := moveCorruptFile(path)
	if err != nil {
		return fileState{}, "", fmt.Errorf("move corrupt store aside: %w", err)
	}

	recovered, backupPath, err := loadLatestValidBackup(path)
	if err == nil {
		if err := writeJSON(path, recovered); err != nil {
			return fileState{}, "", fmt.Errorf("restore backup: %w", err)
		}
		msg := fmt.Sprintf("corrupt store recovered from %s", filepath.Base(backupPath))
		if corruptPath != "" {
			msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
		}
		return recovered, msg, nil
	}
	if !errors.Is(err, errNoValidBackup) {
		return fileState{}, "", fmt.Errorf("inspect backups: %w", err)
	}

	empty := newFileState()
	if err := writeJSON(path, empty); err != nil {
		return fileState{}, "", fmt.Errorf("reset corrupt store: %w", err)
	}
	msg := "corrupt store had no valid backup; started empty"
	if corruptPath != "" {
		msg += fmt.Sprintf(" (bad file moved to %s)", filepath.Base(corruptPath))
	}
	return empty, msg, nil
}

// autosave writes through a temporary file and an atomic rename, after
// copying the previous document to .bak and a rotating timestamped backup.
func autosave(path string, state fileState, maxBackups int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	if maxBackups > 0 {
		if err := backup(path, maxBackups); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func decodeState(data []byte) (fileState, error) {
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{}, err
	}
	if state.Entries == nil {
		state.Entries = map[string]json.RawMessage{}
	}
	if state.Version == 0 {
		state.Version = fileFormatVersion
	}
	return state, nil
}

func writeJSON(path string, state fileState) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func backup(path string, maxBackups int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", path, timestamp)
	if err := os.WriteFile(rotatingPath, data, 0o644); err != nil {
		return err
	}

	return pruneRotatingBackups(path, maxBackups)
}

func pruneRotatingBackups(path string, maxBackups int) error {
	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= maxBackups {
		return nil
	}

	sort.Strings(files)
	for _, old := range files[:len(files)-maxBackups] {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func loadLatestValidBackup(path string) (fileState, string, error) {
	candidates := make([]string, 0, DefaultMaxBackups+1)
	latest := path + ".bak"
	if _, err := os.Stat(latest); err == nil {
		candidates = append(candidates, latest)
	}
	rotating, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return fileState{}, "", err
	}
	candidates = append(candidates, rotating...)
	if len(candidates) == 0 {
		return fileState{}, "", errNoValidBackup
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iInfo, iErr := os.Stat(candidates[i])
		jInfo, jErr := os.Stat(candidates[j])
		if iErr != nil || jErr != nil {
			return candidates[i] > candidates[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		state, err := decodeState(data)
		if err != nil {
			continue
		}
		return state, candidate, nil
	}

	return fileState{}, "", errNoValidBackup
}

func moveCorruptFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().UTC().Format("20060102-150405")
	corruptPath := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.corrupt-%s%s", name, timestamp, ext))
	if err := os.Rename(path, corruptPath); err != nil {
		return "", err
	}
	return corruptPath, nil
}

func isCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
