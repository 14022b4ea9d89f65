package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_connsync/internal/logger"
	"github.com/bassista/go_connsync/internal/model"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

// FileGateway serves connections from a JSON data file.
// Every mutation is a load-modify-save cycle under one lock; saves are atomic (temp + rename).
type FileGateway struct {
	path        string
	dir         string
	base        string
	workspaceID string
	validator   *validator.Validate
	mu          sync.Mutex
	lastWritten int64
	lastPayload []byte
}

// NewFileGateway opens the data file at path, creating an empty document if it does not exist.
func NewFileGateway(path, workspaceID string) (*FileGateway, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	g := &FileGateway{path: path, dir: dir, base: base, workspaceID: workspaceID, validator: validator.New()}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		doc := DataDocument{}
		doc.ApplyDefaults()
		if err := g.saveUnlocked(&doc); err != nil {
			return nil, err
		}
		logger.WithComponent("file-gateway").Infof("created empty data file %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	return g, nil
}

// Load reads the JSON file, parses and validates it.
func (g *FileGateway) Load() (*DataDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadUnlocked()
}

// loadUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (g *FileGateway) loadUnlocked() (*DataDocument, error) {
	file, err := os.Open(g.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	var doc DataDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}

	doc.ApplyDefaults()

	if err := g.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate data file: %w", err)
	}

	return &doc, nil
}

// saveUnlocked stamps, validates and writes the document (caller must hold the lock).
func (g *FileGateway) saveUnlocked(doc *DataDocument) error {
	if err := g.validator.Struct(doc); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	stamp := time.Now().UnixMilli()
	if stamp <= g.lastWritten {
		stamp = g.lastWritten + 1
	}
	doc.Metadata.LastUpdate = stamp

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	tmpFile, err := os.CreateTemp(g.dir, g.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), g.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	g.lastWritten = stamp
	g.lastPayload = payload
	return nil
}

// read runs fn against a freshly loaded document.
func (g *FileGateway) read(ctx context.Context, fn func(doc *DataDocument) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, err := g.loadUnlocked()
	if err != nil {
		return err
	}
	return fn(doc)
}

// write runs fn against a freshly loaded document and saves it when fn succeeds.
func (g *FileGateway) write(ctx context.Context, fn func(doc *DataDocument) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, err := g.loadUnlocked()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return g.saveUnlocked(doc)
}

func (g *FileGateway) List(ctx context.Context, workspaceID string) (model.ConnectionList, error) {
	var out model.ConnectionList
	err := g.read(ctx, func(doc *DataDocument) error {
		out = doc.list(workspaceID)
		return nil
	})
	return out, err
}

func (g *FileGateway) Get(ctx context.Context, connectionID string, withRefresh bool) (model.Connection, error) {
	logger.WithConnection("file-gateway", connectionID).Debugf("get connection (refresh=%v)", withRefresh)
	var out model.Connection
	err := g.read(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.get(connectionID)
		return err
	})
	return out, err
}

func (g *FileGateway) Create(ctx context.Context, req model.ConnectionCreateRequest) (model.Connection, error) {
	var out model.Connection
	err := g.write(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.create(req, g.workspaceID)
		return err
	})
	if err == nil {
		logger.WithConnection("file-gateway", out.ConnectionID).Infof("created connection")
	}
	return out, err
}

func (g *FileGateway) Update(ctx context.Context, req model.ConnectionUpdateRequest) (model.Connection, error) {
	var out model.Connection
	err := g.write(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.update(req)
		return err
	})
	return out, err
}

func (g *FileGateway) Delete(ctx context.Context, connectionID string) error {
	return g.write(ctx, func(doc *DataDocument) error {
		return doc.remove(connectionID)
	})
}

func (g *FileGateway) Sync(ctx context.Context, connectionID string) (model.JobInfo, error) {
	var out model.JobInfo
	err := g.write(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.startJob(connectionID, model.JobSync)
		return err
	})
	return out, err
}

func (g *FileGateway) Reset(ctx context.Context, connectionID string) (model.JobInfo, error) {
	var out model.JobInfo
	err := g.write(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.startJob(connectionID, model.JobResetConnection)
		return err
	})
	return out, err
}

func (g *FileGateway) GetState(ctx context.Context, connectionID string) (model.ConnectionState, error) {
	var out model.ConnectionState
	err := g.read(ctx, func(doc *DataDocument) error {
		var err error
		out, err = doc.state(connectionID)
		return err
	})
	return out, err
}

// StartWatcher listens for changes to the data file and calls onChange after debounce.
// It watches the parent directory (not the file) so atomic replace sequences (temp+rename)
// are still observed. Changes written by this gateway are ignored. The caller owns ctx:
// cancel it to stop the goroutine and close the watcher.
func (g *FileGateway) StartWatcher(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(g.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	callback := g.makeWatcherCallback(onChange)

	go func() {
		defer watcher.Close()

		// debounce coalesces bursty events (write+chmod/rename) into a single check
		var debounce *time.Timer
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, callback)
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != g.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("file-gateway").Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

// makeWatcherCallback reports the change unless the file still holds our own last write.
func (g *FileGateway) makeWatcherCallback(onChange func()) func() {
	return func() {
		g.mu.Lock()
		raw, readErr := os.ReadFile(g.path)
		ownWrite := readErr == nil && bytes.Equal(raw, g.lastPayload)
		var loadErr error
		var doc *DataDocument
		if readErr == nil && !ownWrite {
			doc, loadErr = g.loadUnlocked()
		}
		g.mu.Unlock()

		if readErr != nil {
			logger.WithComponent("file-gateway").Warnf("watch reload failed: %v", readErr)
			return
		}
		if ownWrite {
			logger.WithComponent("file-gateway").Tracef("data file unchanged since our last write")
			return
		}
		if loadErr != nil {
			logger.WithComponent("file-gateway").Warnf("ignoring invalid data file change: %v", loadErr)
			return
		}

		logger.WithComponent("file-gateway").Infof("data file changed externally (%d connections)", len(doc.Connections))
		onChange()
	}
}
