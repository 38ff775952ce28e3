package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// transcript is the slice of a transcript the store needs for joins.
type transcript struct {
	videoID   int64
	startTime float64
}

// MemoryStore is an in-memory implementation of Store.
// It uses maps with an RWMutex for thread-safe access.
// Suitable for development and testing; use PostgresStore in production.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	transcripts  map[int64]transcript
	translations map[int64]Translation
	tts          map[int64]TTS
	voiceModels  map[int64]VoiceModel
	now          func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts:  make(map[int64]transcript),
		translations: make(map[int64]Translation),
		tts:          make(map[int64]TTS),
		voiceModels:  make(map[int64]VoiceModel),
		now:          time.Now,
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// AddTranscript registers a transcript segment of videoID and returns its ID.
// Transcripts are produced upstream by speech recognition; this seeds them
// for development and tests.
func (s *MemoryStore) AddTranscript(videoID int64, startTime float64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.transcripts[id] = transcript{videoID: videoID, startTime: startTime}
	return id
}

// ListTranslationsByVideo returns the translations joined to videoID's
// transcripts, ordered by start time then ID.
func (s *MemoryStore) ListTranslationsByVideo(_ context.Context, videoID int64) ([]Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Translation
	for _, t := range s.translations {
		tr, ok := s.transcripts[t.TranscriptID]
		if !ok || tr.videoID != videoID {
			continue
		}
		t.StartTime = tr.startTime
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateTranslation stores a copy of t and assigns its ID.
func (s *MemoryStore) CreateTranslation(_ context.Context, t *Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	stored := *t
	stored.StartTime = 0
	s.translations[t.ID] = stored
	return nil
}

// UpdateTranslationText replaces the text of translation id.
func (s *MemoryStore) UpdateTranslationText(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.translations[id]
	if !ok {
		return ErrNotFound
	}
	t.Text = text
	s.translations[id] = t
	return nil
}

// GetTTS returns a copy of TTS record id.
func (s *MemoryStore) GetTTS(_ context.Context, id int64) (*TTS, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// CreateTTS stores a copy of t and assigns its ID.
func (s *MemoryStore) CreateTTS(_ context.Context, t *TTS) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.tts[t.ID] = *t
	return nil
}

// UpdateTTS sets the voice and duration of TTS record id.
func (s *MemoryStore) UpdateTTS(_ context.Context, id int64, voice string, duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tts[id]
	if !ok {
		return ErrNotFound
	}
	t.Voice = voice
	t.Duration = duration
	s.tts[id] = t
	return nil
}

// CreateVoiceModel stores a copy of m and assigns its ID and CreatedAt.
func (s *MemoryStore) CreateVoiceModel(_ context.Context, m *VoiceModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	m.CreatedAt = s.now().UTC()
	s.voiceModels[m.ID] = *m
	return nil
}

// ListVoiceModels returns all voice models, newest first.
func (s *MemoryStore) ListVoiceModels(_ context.Context) ([]VoiceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VoiceModel, 0, len(s.voiceModels))
	for _, m := range s.voiceModels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
