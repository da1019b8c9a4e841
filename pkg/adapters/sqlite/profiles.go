// Package sqlite stores completed profiles in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/aretw0/formbot/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const upsertSQL = `
INSERT INTO profiles (participant_id, name, age, gender, photo_id, photo_unique_id, education, wants_news, version, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(participant_id) DO UPDATE SET
    name = excluded.name,
    age = excluded.age,
    gender = excluded.gender,
    photo_id = excluded.photo_id,
    photo_unique_id = excluded.photo_unique_id,
    education = excluded.education,
    wants_news = excluded.wants_news,
    version = excluded.version,
    completed_at = excluded.completed_at`

const selectSQL = `
SELECT name, age, gender, photo_id, photo_unique_id, education, wants_news, version, completed_at
FROM profiles WHERE participant_id = ?`

// Profiles implements ports.ProfileRepository on SQLite.
type Profiles struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Profiles, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Profiles{db: db}, nil
}

func (p *Profiles) Put(ctx context.Context, participantID string, profile domain.Profile) error {
	var completedAt any
	if !profile.CompletedAt.IsZero() {
		completedAt = profile.CompletedAt.UTC()
	}
	version := profile.Version
	if version == 0 {
		version = domain.SessionVersion
	}

	_, err := p.db.ExecContext(ctx, upsertSQL,
		participantID,
		profile.Name,
		profile.Age,
		string(profile.Gender),
		profile.Photo.FileID,
		profile.Photo.UniqueID,
		string(profile.Education),
		profile.WantsNews,
		version,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: put profile: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Profiles) Get(ctx context.Context, participantID string) (*domain.Profile, error) {
	var (
		profile     domain.Profile
		gender      string
		education   string
		completedAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, selectSQL, participantID).Scan(
		&profile.Name,
		&profile.Age,
		&gender,
		&profile.Photo.FileID,
		&profile.Photo.UniqueID,
		&education,
		&profile.WantsNews,
		&profile.Version,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %w", domain.ErrStoreUnavailable, err)
	}

	profile.Gender = domain.Gender(gender)
	profile.Education = domain.Education(education)
	if completedAt.Valid {
		profile.CompletedAt = completedAt.Time
	}
	return &profile, nil
}

// Close closes the database.
func (p *Profiles) Close() error {
	return p.db.Close()
}
