package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportbot/model"
	"supportbot/types"
)

// MirrorObjectName is the fixed object name the durable log is uploaded
// under: every mirror pass re-uploads the whole file.
const MirrorObjectName = "chat_history.csv"

var csvHeader = []string{"session_id", "user_input", "ai_response", "timestamp", "similarity_scores"}

// Mirror uploads a full snapshot of the durable log to cold storage.
type Mirror interface {
	Upload(ctx context.Context, objectName string, data []byte) error
}

// SessionStore keeps the per-session turn history in memory for the
// process lifetime and appends every turn to a durable CSV log,
// optionally mirroring the log to cold storage after each interaction.
//
// One mutex guards both the in-memory map and the file: a turn append
// is atomic, and concurrent turns on one session land in whatever order
// their appends complete.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string][]types.Turn
	// seq counts durable log appends; every scheduled upload carries the
	// sequence it was scheduled at.
	seq uint64

	csvPath string
	mirror  Mirror
	uploads sync.WaitGroup

	// uploadMu serializes mirror uploads; lastUploaded is the highest
	// sequence whose snapshot reached cold storage.
	uploadMu     sync.Mutex
	lastUploaded uint64

	logger *slog.Logger
}

// NewSessionStore opens (and if needed creates, with a header row) the
// durable CSV log. A nil mirror disables cold-storage mirroring.
func NewSessionStore(csvPath string, mirror Mirror) (*SessionStore, error) {
	s := &SessionStore{
		sessions: make(map[string][]types.Turn),
		csvPath:  csvPath,
		mirror:   mirror,
		logger:   slog.Default(),
	}
	if err := s.initializeCSV(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) initializeCSV() error {
	if _, err := os.Stat(s.csvPath); err == nil {
		return nil
	}

	f, err := os.Create(s.csvPath)
	if err != nil {
		return fmt.Errorf("error creating session log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("error writing session log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// GetHistory returns the ordered turn history for a session. Unknown
// ids yield an empty history, never an error.
func (s *SessionStore) GetHistory(sessionID string) []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}

// AddInteraction normalizes the response, appends the turn to the
// in-memory history and the durable log, and kicks off an asynchronous
// mirror of the full log. A log write failure aborts the turn with
// types.PersistenceError and leaves the in-memory history untouched; a
// mirror failure is logged and swallowed.
func (s *SessionStore) AddInteraction(sessionID, userInput, aiResponse string, scores []types.SimilarityScore) (string, error) {
	cleaned := model.CleanResponse(aiResponse)
	turn := types.Turn{
		UserInput:        userInput,
		AIResponse:       cleaned,
		Timestamp:        time.Now().Format(time.RFC3339),
		SimilarityScores: scores,
	}

	s.mu.Lock()
	if err := s.appendToCSV(sessionID, turn); err != nil {
		s.mu.Unlock()
		return "", types.NewPersistenceError(err)
	}
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if s.mirror != nil {
		s.uploads.Add(1)
		go func() {
			defer s.uploads.Done()
			s.uploadSnapshot(context.Background(), seq)
		}()
	}
	return cleaned, nil
}

func (s *SessionStore) appendToCSV(sessionID string, turn types.Turn) error {
	scoresJSON := ""
	if len(turn.SimilarityScores) > 0 {
		type csvScore struct {
			Content string  `json:"content"`
			Score   float64 `json:"score"`
			Answer  string  `json:"answer"`
		}
		formatted := make([]csvScore, len(turn.SimilarityScores))
		for i, sc := range turn.SimilarityScores {
			formatted[i] = csvScore{Content: sc.Content, Score: sc.Score, Answer: sc.Answer}
		}
		encoded, err := json.Marshal(formatted)
		if err != nil {
			return fmt.Errorf("error encoding similarity scores: %w", err)
		}
		scoresJSON = string(encoded)
	}

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening session log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{sessionID, turn.UserInput, turn.AIResponse, turn.Timestamp, scoresJSON}); err != nil {
		return fmt.Errorf("error appending to session log: %w", err)
	}
	w.Flush()
	return w.Error()
}

// uploadSnapshot re-uploads the whole durable log to cold storage. The
// snapshot is taken under the lock so a concurrent append cannot tear
// the file contents mid-read.
//
// Uploads are serialized and sequence-stamped: a snapshot that lost the
// race to a newer one is skipped, so under the full re-upload model the
// mirror never regresses to a shorter log.
func (s *SessionStore) uploadSnapshot(ctx context.Context, seq uint64) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	if seq <= s.lastUploaded {
		return
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.csvPath)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("failed to snapshot session log for mirroring", "error", err)
		return
	}

	if err := s.mirror.Upload(ctx, MirrorObjectName, data); err != nil {
		s.logger.Error("failed to mirror session log", "error", err)
		return
	}
	s.lastUploaded = seq
	s.logger.Info("session log mirrored", "object", MirrorObjectName, "bytes", len(data))
}

// CreateNewSession flushes the durable log to cold storage, then mints
// a fresh session id. The flush runs first so a session rollover never
// loses turns under the full re-upload model.
func (s *SessionStore) CreateNewSession(ctx context.Context) string {
	if s.mirror != nil {
		s.mu.Lock()
		s.seq++
		seq := s.seq
		s.mu.Unlock()
		s.uploadSnapshot(ctx, seq)
	}

	sessionID := uuid.NewString()
	s.logger.Info("new session created", "session_id", sessionID)
	return sessionID
}

// Close waits for in-flight mirror uploads. Shutdown is not clean until
// it returns.
func (s *SessionStore) Close() {
	s.uploads.Wait()
}
