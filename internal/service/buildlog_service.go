package service

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"

	"github.com/sethvargo/go-retry"
)

// DevicePathProvider locates a device's deploy directory on disk.
type DevicePathProvider interface {
	PathForDevice(owner, udid string) string
}

// BuildLogService maintains the durable per-build log record and its
// on-disk companion file.
type BuildLogService struct {
	store           repository.BuildLogStore
	paths           DevicePathProvider
	conflictRetries uint64
}

func NewBuildLogService(store repository.BuildLogStore, paths DevicePathProvider, conflictRetries uint64) *BuildLogService {
	return &BuildLogService{
		store:           store,
		paths:           paths,
		conflictRetries: conflictRetries,
	}
}

// Append records one build log entry. The first line for a build
// creates the record; concurrent creators fall back to appending.
// Appends never fail the caller: after bounded conflict retries the
// lost line is logged and dropped.
func (s *BuildLogService) Append(ctx context.Context, buildID, owner, udid, message, contents string) {
	entry := models.BuildLogEntry{
		Message:   message,
		Timestamp: time.Now().UTC(),
		UDID:      udid,
		BuildID:   buildID,
		Contents:  contents,
	}

	_, err := s.store.Get(buildID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Build log read failed for %s: %v", buildID, err)
			return
		}

		now := time.Now().UTC()
		initial := &models.BuildLog{
			BuildID:    buildID,
			Owner:      owner,
			UDID:       udid,
			StartTime:  now,
			LastUpdate: now,
			Log:        []models.BuildLogEntry{entry},
		}
		insertErr := s.store.Insert(initial)
		if insertErr == nil {
			return
		}
		if !errors.Is(insertErr, repository.ErrDuplicate) {
			log.Printf("Build log insert failed for %s: %v", buildID, insertErr)
			return
		}
		// Another writer created the record first; append instead.
	}

	s.atomicAppend(ctx, buildID, entry)
}

// atomicAppend is a revision-checked read-modify-write with bounded
// retry. Exhaustion is logged, never raised.
func (s *BuildLogService) atomicAppend(ctx context.Context, buildID string, entry models.BuildLogEntry) {
	backoff := retry.WithMaxRetries(s.conflictRetries, retry.NewConstant(conflictRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		record, err := s.store.Get(buildID)
		if err != nil {
			return err
		}

		record.Log = append(record.Log, entry)
		record.LastUpdate = time.Now().UTC()

		if err := s.store.Update(record); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Printf("Build log append failed for %s after retries: %v", buildID, err)
	}
}

// Fetch returns the build log record and, when the companion file
// exists on disk, its raw contents.
func (s *BuildLogService) Fetch(ctx context.Context, buildID string) (*models.BuildLog, string, error) {
	record, err := s.store.Get(buildID)
	if err != nil {
		return nil, "", err
	}

	contents, err := os.ReadFile(s.LogFilePath(record.Owner, record.UDID, buildID))
	if err != nil {
		// Record without a file is a build that produced no output yet.
		return record, "", nil
	}
	return record, string(contents), nil
}

// List returns the newest build summaries for an owner.
func (s *BuildLogService) List(ctx context.Context, owner string) ([]models.BuildLogSummary, error) {
	records, err := s.store.ListByOwner(owner, 100)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.BuildLogSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, models.BuildLogSummary{
			BuildID:    record.BuildID,
			Owner:      record.Owner,
			UDID:       record.UDID,
			StartTime:  record.StartTime,
			LastUpdate: record.LastUpdate,
			Lines:      len(record.Log),
		})
	}
	return summaries, nil
}

// LogFilePath derives the deterministic on-disk location of a build's
// log file.
func (s *BuildLogService) LogFilePath(owner, udid, buildID string) string {
	return filepath.Join(s.paths.PathForDevice(owner, udid), buildID, "build.log")
}
