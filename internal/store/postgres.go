package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the tables the service reads and writes.
// transcripts is owned by the speech recognition stage; it is created here
// only so a fresh database is usable. Execute it via [PostgresStore.Migrate]
// or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    transcript_id BIGSERIAL PRIMARY KEY,
    video_id      BIGINT NOT NULL,
    start_time    DOUBLE PRECISION NOT NULL DEFAULT 0,
    end_time      DOUBLE PRECISION NOT NULL DEFAULT 0,
    text          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transcripts_video ON transcripts(video_id);

CREATE TABLE IF NOT EXISTS translations (
    translation_id BIGSERIAL PRIMARY KEY,
    transcript_id  BIGINT REFERENCES transcripts(transcript_id),
    text           TEXT NOT NULL,
    language       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tts (
    tts_id         BIGSERIAL PRIMARY KEY,
    translation_id BIGINT NOT NULL REFERENCES translations(translation_id),
    file_path      TEXT NOT NULL,
    voice          TEXT NOT NULL,
    start_time     DOUBLE PRECISION NOT NULL DEFAULT 0,
    duration       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS voice_models (
    id          BIGSERIAL PRIMARY KEY,
    voice_id    TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling [PostgresStore.Migrate]
// when the schema may not exist yet.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPool connects to dsn and verifies the connection.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// ListTranslationsByVideo returns the translations of videoID's transcripts.
func (s *PostgresStore) ListTranslationsByVideo(ctx context.Context, videoID int64) ([]Translation, error) {
	const query = `
		SELECT t.translation_id, t.transcript_id, t.text, t.language, tr.start_time
		FROM translations t
		JOIN transcripts tr ON t.transcript_id = tr.transcript_id
		WHERE tr.video_id = $1
		ORDER BY tr.start_time, t.translation_id`

	rows, err := s.db.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("store: list translations for video %d: %w", videoID, err)
	}
	defer rows.Close()

	var out []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.ID, &t.TranscriptID, &t.Text, &t.Language, &t.StartTime); err != nil {
			return nil, fmt.Errorf("store: scan translation: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate translations: %w", err)
	}
	return out, nil
}

// CreateTranslation inserts t. A zero TranscriptID is stored as NULL.
func (s *PostgresStore) CreateTranslation(ctx context.Context, t *Translation) error {
	const query = `
		INSERT INTO translations (transcript_id, text, language)
		VALUES ($1, $2, $3)
		RETURNING translation_id`

	var transcriptID *int64
	if t.TranscriptID != 0 {
		transcriptID = &t.TranscriptID
	}
	if err := s.db.QueryRow(ctx, query, transcriptID, t.Text, t.Language).Scan(&t.ID); err != nil {
		return fmt.Errorf("store: create translation: %w", err)
	}
	return nil
}

// UpdateTranslationText replaces the text of translation id.
func (s *PostgresStore) UpdateTranslationText(ctx context.Context, id int64, text string) error {
	tag, err := s.db.Exec(ctx, `UPDATE translations SET text = $1 WHERE translation_id = $2`, text, id)
	if err != nil {
		return fmt.Errorf("store: update translation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("translation %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetTTS retrieves TTS record id.
func (s *PostgresStore) GetTTS(ctx context.Context, id int64) (*TTS, error) {
	const query = `
		SELECT tts_id, translation_id, file_path, voice, start_time, duration
		FROM tts
		WHERE tts_id = $1`

	var t TTS
	err := s.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TranslationID, &t.FilePath, &t.Voice, &t.StartTime, &t.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tts %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get tts %d: %w", id, err)
	}
	return &t, nil
}

// CreateTTS inserts t and sets its ID.
func (s *PostgresStore) CreateTTS(ctx context.Context, t *TTS) error {
	const query = `
		INSERT INTO tts (translation_id, file_path, voice, start_time, duration)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING tts_id`

	err := s.db.QueryRow(ctx, query,
		t.TranslationID, t.FilePath, t.Voice, t.StartTime, t.Duration,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("store: create tts: %w", err)
	}
	return nil
}

// UpdateTTS sets the voice and duration of TTS record id.
func (s *PostgresStore) UpdateTTS(ctx context.Context, id int64, voice string, duration float64) error {
	tag, err := s.db.Exec(ctx, `UPDATE tts SET voice = $1, duration = $2 WHERE tts_id = $3`, voice, duration, id)
	if err != nil {
		return fmt.Errorf("store: update tts %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tts %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateVoiceModel inserts m and sets its ID and CreatedAt.
func (s *PostgresStore) CreateVoiceModel(ctx context.Context, m *VoiceModel) error {
	const query = `
		INSERT INTO voice_models (voice_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := s.db.QueryRow(ctx, query, m.VoiceID, m.Name, m.Description).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("store: create voice model: %w", err)
	}
	return nil
}

// ListVoiceModels returns all voice models, newest first.
func (s *PostgresStore) ListVoiceModels(ctx context.Context) ([]VoiceModel, error) {
	const query = `
		SELECT id, voice_id, name, description, created_at
		FROM voice_models
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list voice models: %w", err)
	}
	defer rows.Close()

	out := []VoiceModel{}
	for rows.Next() {
		var m VoiceModel
		if err := rows.Scan(&m.ID, &m.VoiceID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan voice model: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate voice models: %w", err)
	}
	return out, nil
}
