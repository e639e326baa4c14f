package tail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"iot-fleet-backend/internal/repository"
)

// ErrNoRecords is returned when a build has no log record yet; the
// viewer has already been told and no watch was started.
var ErrNoRecords = errors.New("no log records")

// Viewer receives build log lines. Implementations must tolerate
// Send being called from the follower goroutine.
type Viewer interface {
	Send(line string) error
}

// Registry owns the live tail subscriptions, one per viewer
// connection. Attaching a new tail for a viewer that already has one
// stops the previous watch first, so a viewer never holds two watches
// on the same or different files.
type Registry struct {
	store        repository.BuildLogStore
	pathFor      func(owner, udid, buildID string) string
	pollInterval time.Duration

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(store repository.BuildLogStore, pathFor func(owner, udid, buildID string) string, pollInterval time.Duration) *Registry {
	return &Registry{
		store:        store,
		pathFor:      pathFor,
		pollInterval: pollInterval,
		watches:      make(map[string]*watch),
	}
}

// Attach connects a viewer to a build's growing log file: a snapshot
// of the most recent known record message first, then every newly
// appended line in arrival order. Watch errors are reported through
// onError and do not tear down the viewer connection.
func (r *Registry) Attach(ctx context.Context, buildID, owner, viewerID string, viewer Viewer, onError func(description string)) error {
	record, err := r.store.Get(buildID)
	if err != nil || len(record.Log) == 0 {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[logtail] record fetch failed for %s: %v", buildID, err)
		}
		if sendErr := viewer.Send("Sorry, no log records fetched."); sendErr != nil {
			log.Printf("[logtail] viewer notify failed: %v", sendErr)
		}
		return ErrNoRecords
	}

	recordOwner := record.Owner
	if recordOwner == "" {
		recordOwner = owner
	}

	// Best-effort snapshot before the live tail starts.
	latest := record.Log[len(record.Log)-1]

	// A record without a device reference cannot be mapped to a log
	// file; fall back to the newest entry before giving up.
	recordUDID := record.UDID
	if recordUDID == "" {
		recordUDID = latest.UDID
	}
	if recordUDID == "" {
		return fmt.Errorf("build %s has no device reference", buildID)
	}

	// The log file may be the first artifact of a build that has not
	// produced output yet; create it rather than wait for the builder.
	path := r.pathFor(recordOwner, recordUDID, buildID)
	if err := ensureFile(path); err != nil {
		return fmt.Errorf("failed to prepare log file %s: %w", path, err)
	}

	if err := viewer.Send(latest.Message); err != nil {
		log.Printf("[logtail] snapshot send failed: %v", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	newWatch := &watch{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	previous := r.watches[viewerID]
	r.watches[viewerID] = newWatch
	r.mu.Unlock()

	if previous != nil {
		previous.cancel()
		<-previous.done
	}

	go func() {
		defer close(newWatch.done)
		follow(watchCtx, path, r.pollInterval, viewer, onError)

		r.mu.Lock()
		if r.watches[viewerID] == newWatch {
			delete(r.watches, viewerID)
		}
		r.mu.Unlock()
	}()

	return nil
}

// Detach stops the viewer's active watch, if any, and waits for the
// follower to release the file.
func (r *Registry) Detach(viewerID string) {
	r.mu.Lock()
	active := r.watches[viewerID]
	delete(r.watches, viewerID)
	r.mu.Unlock()

	if active != nil {
		active.cancel()
		<-active.done
	}
}

// ActiveWatches reports the number of live tail subscriptions.
func (r *Registry) ActiveWatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watches)
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}
