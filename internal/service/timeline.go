package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/mykafka"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/search"
)

var ErrTitleRequired = errors.New("title is required")

// EntryInput is what callers may set on an entry; everything else is
// derived server-side.
type EntryInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	EventDate   *time.Time `json:"event_date"`
	EntryType   string     `json:"entry_type"`
	Category    *string    `json:"category"`
	ImageURL    *string    `json:"image_url"`
	ExternalURL *string    `json:"external_url"`
	SourceAPI   string     `json:"source_api"`
	ExternalID  *string    `json:"external_id"`
	Metadata    *string    `json:"metadata"`
}

type TimelineService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	Search   *search.Service
}

func (s *TimelineService) List(ctx context.Context, userID uint, offset, limit int) ([]models.TimelineEntry, int64, error) {
	return s.Repo.ListEntries(ctx, userID, offset, limit)
}

func (s *TimelineService) Create(ctx context.Context, userID uint, in EntryInput) (*models.TimelineEntry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	now := time.Now().UTC()
	entry := models.TimelineEntry{
		UserID:    userID,
		Title:     title,
		EventDate: now,
		EntryType: "Activity",
		SourceAPI: "manual",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.EventDate != nil {
		entry.EventDate = *in.EventDate
	}
	if t := strings.TrimSpace(in.EntryType); t != "" {
		entry.EntryType = t
	}
	if a := strings.TrimSpace(in.SourceAPI); a != "" {
		entry.SourceAPI = a
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.Category != nil {
		entry.Category = *in.Category
	}
	if in.ImageURL != nil {
		entry.ImageURL = *in.ImageURL
	}
	if in.ExternalURL != nil {
		entry.ExternalURL = *in.ExternalURL
	}
	if in.ExternalID != nil {
		entry.ExternalID = *in.ExternalID
	}
	if in.Metadata != nil {
		entry.Metadata = *in.Metadata
	}

	if err := s.Repo.CreateEntry(ctx, &entry); err != nil {
		return nil, err
	}

	s.index(ctx, &entry)
	s.publish(ctx, "entry_created", &entry)
	return &entry, nil
}

// Update applies the set fields of in to the caller's entry. Absent fields
// keep their stored values.
func (s *TimelineService) Update(ctx context.Context, id, userID uint, in EntryInput) (*models.TimelineEntry, error) {
	entry, err := s.Repo.GetEntry(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		entry.Title = t
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.EventDate != nil {
		entry.EventDate = *in.EventDate
	}
	if t := strings.TrimSpace(in.EntryType); t != "" {
		entry.EntryType = t
	}
	if in.Category != nil {
		entry.Category = *in.Category
	}
	if in.ImageURL != nil {
		entry.ImageURL = *in.ImageURL
	}
	if in.ExternalURL != nil {
		entry.ExternalURL = *in.ExternalURL
	}
	if in.Metadata != nil {
		entry.Metadata = *in.Metadata
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.Repo.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.index(ctx, entry)
	s.publish(ctx, "entry_updated", entry)
	return entry, nil
}

func (s *TimelineService) Delete(ctx context.Context, id, userID uint) error {
	if err := s.Repo.DeleteEntry(ctx, id, userID); err != nil {
		return err
	}

	if s.Search.Enabled() {
		if err := s.Search.DeleteEntry(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search deindex error", "entry_id", id, "error", err)
		}
	}
	s.publish(ctx, "entry_deleted", &models.TimelineEntry{ID: id, UserID: userID})
	return nil
}

// index mirrors an entry into the search index, best effort. Search being
// behind is acceptable; the database is the source of truth.
func (s *TimelineService) index(ctx context.Context, entry *models.TimelineEntry) {
	if !s.Search.Enabled() {
		return
	}
	if err := s.Search.IndexEntry(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("search index error", "entry_id", entry.ID, "error", err)
	}
}

func (s *TimelineService) publish(ctx context.Context, eventType string, entry *models.TimelineEntry) {
	event := map[string]interface{}{
		"type":     eventType,
		"entry_id": entry.ID,
		"user_id":  entry.UserID,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "timeline_events", strconv.FormatUint(uint64(entry.UserID), 10), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
