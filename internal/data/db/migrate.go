package db

import (
	"fmt"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Family tree
		// =========================
		&types.Person{},
		&types.PersonRelationship{},

		// =========================
		// Person-linked content
		// =========================
		&types.StoryPerson{},
		&types.MediaTag{},
		&types.PersonClaim{},
		&types.TimelineEvent{},

		// =========================
		// Duplicate detection + merge
		// =========================
		&types.DuplicateCandidate{},
		&types.MergeHistoryEntry{},
		&types.ScanState{},
	)
}

// EnsureDedupeIndexes creates the indexes AutoMigrate cannot express.
// The statements are valid on both Postgres and SQLite.
func EnsureDedupeIndexes(db *gorm.DB) error {
	// at most one live candidate per unordered pair per family
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_duplicate_candidate_pending_pair
		ON duplicate_candidate(family_id, person_a_id, person_b_id)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_duplicate_candidate_pending_pair: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_duplicate_candidate_family_status_score
		ON duplicate_candidate(family_id, status, score);
	`).Error; err != nil {
		return fmt.Errorf("create idx_duplicate_candidate_family_status_score: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_person_family_updated
		ON person(family_id, updated_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_person_family_updated: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_story_person_story_person
		ON story_person(story_id, person_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_story_person_story_person: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_media_tag_media_person
		ON media_tag(media_id, person_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_media_tag_media_person: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_merge_history_family_merged_at
		ON merge_history(family_id, merged_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_merge_history_family_merged_at: %w", err)
	}
	return nil
}

// Migrate runs table migration followed by index creation.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureDedupeIndexes(db)
}
