package engagement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/domain"
	"github.com/quill-writing/quill/internal/infra/sqlite"
)

// start is a Monday morning, far from any DST change.
var start = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *clock) NextDay() { c.Advance(24 * time.Hour) }

// memStore is an in-memory Store that can be told to fail.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   int
	putErr error
	getErr error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.data[slot]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return d, nil
}

func (m *memStore) Put(_ context.Context, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.data[slot] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

var errDiskFull = errors.New("disk full")

// newEngine returns an engine on store with a UTC clock at start.
func newEngine(t *testing.T, store engagement.Store) (*engagement.Engine, *clock) {
	t.Helper()
	clk := &clock{t: start}
	e := engagement.NewEngine(store, engagement.Options{
		UserID:   "writer-1",
		Location: time.UTC,
		Now:      clk.Now,
	})
	return e, clk
}

// load opens the record or fails the test.
func load(t *testing.T, e *engagement.Engine) *domain.UserProgress {
	t.Helper()
	p, err := e.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return p
}

func sumHistory(p *domain.UserProgress) int64 {
	var total int64
	for _, g := range p.XPHistory {
		total += g.Amount
	}
	return total
}
