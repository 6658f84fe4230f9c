package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/internal/roster"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidRoster  = errors.New("roster file could not be read")
	ErrRosterNotFound = errors.New("roster upload not found")
)

// Archive stores the raw roster file for later download.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

type RosterUploadInput struct {
	EventID    uint
	FileName   string
	UploadedBy string
	Data       []byte
}

type RosterService interface {
	Upload(ctx context.Context, in RosterUploadInput) (*models.RosterUpload, error)
	List(ctx context.Context, eventID uint) ([]models.RosterUpload, error)
	Delete(ctx context.Context, id uint) error
}

type rosterService struct {
	rosters repository.RosterRepository
	events  repository.EventRepository
	archive Archive
	log     *logrus.Entry
}

// NewRosterService builds the roster service. archive may be nil, in which
// case raw files are not kept.
func NewRosterService(rosters repository.RosterRepository, events repository.EventRepository, archive Archive) RosterService {
	return &rosterService{
		rosters: rosters,
		events:  events,
		archive: archive,
		log:     logrus.WithField("component", "rosters"),
	}
}

func (s *rosterService) Upload(ctx context.Context, in RosterUploadInput) (*models.RosterUpload, error) {
	if _, err := s.events.FindByID(ctx, in.EventID); err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	rows, err := roster.ParseCSV(bytes.NewReader(in.Data))
	if err != nil {
		if errors.Is(err, roster.ErrEmptyRoster) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	if len(rows) == 0 {
		return nil, roster.ErrEmptyRoster
	}

	upload := &models.RosterUpload{
		EventID:    in.EventID,
		FileName:   filepath.Base(in.FileName),
		RowCount:   len(rows),
		UploadedBy: in.UploadedBy,
		Entries:    make([]models.RosterEntry, len(rows)),
	}
	for i, r := range rows {
		upload.Entries[i] = models.RosterEntry{Fields: r}
	}

	logger := s.log.WithFields(logrus.Fields{"event_id": in.EventID, "file": upload.FileName, "rows": len(rows)})
	if s.archive != nil {
		key := ObjectKey(in.EventID, upload.FileName)
		if err := s.archive.Put(ctx, key, in.Data, "text/csv"); err != nil {
			return nil, fmt.Errorf("archive roster: %w", err)
		}
		upload.ObjectKey = key
	}

	if err := s.rosters.Create(ctx, upload); err != nil {
		if upload.ObjectKey != "" {
			if derr := s.archive.Delete(ctx, upload.ObjectKey); derr != nil {
				logger.WithError(derr).WithField("key", upload.ObjectKey).Warn("orphaned roster archive")
			}
		}
		return nil, err
	}
	logger.Info("roster uploaded")

	// Entries can be large; callers only need the summary.
	upload.Entries = nil
	return upload, nil
}

// ObjectKey names the archived file as rosters/{event}/{slug}-{rand}.csv.
func ObjectKey(eventID uint, fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	name := slug.Make(base)
	if name == "" {
		name = "roster"
	}
	return fmt.Sprintf("rosters/%d/%s-%s.csv", eventID, name, uuid.NewString()[:8])
}

func (s *rosterService) List(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	return s.rosters.ListByEventID(ctx, eventID)
}

func (s *rosterService) Delete(ctx context.Context, id uint) error {
	ok, err := s.rosters.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRosterNotFound
	}
	s.log.WithField("upload_id", id).Info("roster deleted")
	return nil
}
