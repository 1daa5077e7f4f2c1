package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/types"
)

type fakeMirror struct {
	mu      sync.Mutex
	uploads []string
	err     error
}

func (f *fakeMirror) Upload(ctx context.Context, objectName string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, string(data))
	return nil
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func newTestStore(t *testing.T, mirror Mirror) (*SessionStore, string) {
	t.Helper()
	csvPath := filepath.Join(t.TempDir(), "chat_history.csv")
	s, err := NewSessionStore(csvPath, mirror)
	require.NoError(t, err)
	return s, csvPath
}

func sampleScores() []types.SimilarityScore {
	return []types.SimilarityScore{
		{Content: "My package never arrived", Score: 0.12, Source: types.DocSource, Answer: "Sorry to hear that, please DM your order number."},
		{Content: "Where is my order", Score: 0.19, Source: types.DocSource, Answer: "You can track it in your account."},
	}
}

func TestNewSessionStoreWritesHeader(t *testing.T) {
	_, csvPath := newTestStore(t, nil)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"session_id", "user_input", "ai_response", "timestamp", "similarity_scores"}, rows[0])
}

func TestNewSessionStoreKeepsExistingLog(t *testing.T) {
	s, csvPath := newTestStore(t, nil)
	_, err := s.AddInteraction("sess-1", "hi", "hello", nil)
	require.NoError(t, err)

	// Reopening must not rewrite the file.
	_, err = NewSessionStore(csvPath, nil)
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetHistoryUnknownSession(t *testing.T) {
	s, _ := newTestStore(t, nil)
	assert.Empty(t, s.GetHistory("never-seen"))
}

func TestAddInteractionAppendOrder(t *testing.T) {
	s, _ := newTestStore(t, nil)

	resp, err := s.AddInteraction("sess-1", "first question", "**Response:** first answer", sampleScores())
	require.NoError(t, err)
	assert.Equal(t, "first answer", resp)

	_, err = s.AddInteraction("sess-1", "second question", "second answer", nil)
	require.NoError(t, err)

	history := s.GetHistory("sess-1")
	require.Len(t, history, 2)
	assert.Equal(t, "first question", history[0].UserInput)
	assert.Equal(t, "first answer", history[0].AIResponse)
	assert.Equal(t, sampleScores(), history[0].SimilarityScores)
	assert.Equal(t, "second question", history[1].UserInput)

	// Timestamps are ISO-8601.
	_, err = time.Parse(time.RFC3339, history[0].Timestamp)
	assert.NoError(t, err)

	// Other sessions are unaffected.
	assert.Empty(t, s.GetHistory("sess-2"))
}

func TestAddInteractionWritesCSVRow(t *testing.T) {
	s, csvPath := newTestStore(t, nil)

	_, err := s.AddInteraction("sess-1", "my question", "Answer: my answer", sampleScores())
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "sess-1", row[0])
	assert.Equal(t, "my question", row[1])
	assert.Equal(t, "my answer", row[2])

	var scores []struct {
		Content string  `json:"content"`
		Score   float64 `json:"score"`
		Answer  string  `json:"answer"`
	}
	require.NoError(t, json.Unmarshal([]byte(row[4]), &scores))
	require.Len(t, scores, 2)
	assert.Equal(t, "My package never arrived", scores[0].Content)
	assert.InDelta(t, 0.12, scores[0].Score, 1e-9)
	assert.NotEmpty(t, scores[0].Answer)
}

func TestAddInteractionPersistenceFailure(t *testing.T) {
	s, csvPath := newTestStore(t, nil)

	// Losing the log file makes the append fail: the turn must abort
	// and leave no trace in memory.
	require.NoError(t, os.Remove(csvPath))

	_, err := s.AddInteraction("sess-1", "question", "answer", nil)
	require.Error(t, err)

	var persistenceErr types.PersistenceError
	assert.True(t, errors.As(err, &persistenceErr))
	assert.Empty(t, s.GetHistory("sess-1"))
}

func TestAddInteractionMirrors(t *testing.T) {
	mirror := &fakeMirror{}
	s, _ := newTestStore(t, mirror)

	_, err := s.AddInteraction("sess-1", "question", "answer", nil)
	require.NoError(t, err)
	s.Close()

	require.Equal(t, 1, mirror.count())
	assert.Contains(t, mirror.uploads[0], "session_id,user_input")
	assert.Contains(t, mirror.uploads[0], "question")
}

// gatedMirror stalls its first upload until released so a later upload
// can be scheduled while the first is still in flight.
type gatedMirror struct {
	mu      sync.Mutex
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	last    string
}

func newGatedMirror() *gatedMirror {
	return &gatedMirror{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedMirror) Upload(ctx context.Context, objectName string, data []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = string(data)
	return nil
}

func (g *gatedMirror) lastUpload() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func TestOverlappingMirrorsKeepLatestTurns(t *testing.T) {
	mirror := newGatedMirror()
	s, _ := newTestStore(t, mirror)

	_, err := s.AddInteraction("sess-1", "turn one", "a1", nil)
	require.NoError(t, err)

	// Wait until the first snapshot is mid-upload, then land a second
	// interaction whose snapshot must not be overwritten by the first.
	<-mirror.entered
	_, err = s.AddInteraction("sess-1", "turn two", "a2", nil)
	require.NoError(t, err)

	close(mirror.release)
	s.Close()

	assert.Contains(t, mirror.lastUpload(), "turn one")
	assert.Contains(t, mirror.lastUpload(), "turn two")
}

func TestMirrorFailureDoesNotFailInteraction(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("bucket gone")}
	s, _ := newTestStore(t, mirror)

	_, err := s.AddInteraction("sess-1", "question", "answer", nil)
	require.NoError(t, err)
	s.Close()

	require.Len(t, s.GetHistory("sess-1"), 1)
}

func TestCreateNewSession(t *testing.T) {
	mirror := &fakeMirror{}
	s, _ := newTestStore(t, mirror)

	_, err := s.AddInteraction("old-sess", "question", "answer", nil)
	require.NoError(t, err)
	s.Close()
	before := mirror.count()

	id := s.CreateNewSession(context.Background())
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	// Rollover flushes the log before minting the id.
	assert.Equal(t, before+1, mirror.count())

	other := s.CreateNewSession(context.Background())
	assert.NotEqual(t, id, other)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	s, _ := newTestStore(t, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddInteraction("sess-1", "q", "a", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetHistory("sess-1"), n)
}
