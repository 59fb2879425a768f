package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"funnelscope/internal"
	"funnelscope/internal/config"
	"funnelscope/internal/database"
	"funnelscope/internal/events"
	"funnelscope/internal/funnels"
	"funnelscope/internal/sessions"
	"funnelscope/internal/visitors"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with funnelscope's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a test database with all funnelscope models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by test name so multiple calls within the same test return the same
// database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateTestFunnel creates a funnel in the database, reusing one with the
// same slug if it already exists.
func CreateTestFunnel(t *testing.T, db *gorm.DB, name string) funnels.Funnel {
	t.Helper()

	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	var funnel funnels.Funnel
	if db.Where("slug = ?", slug).First(&funnel).Error == nil {
		return funnel
	}

	funnel = funnels.Funnel{
		OrganizationID: 1,
		Name:           name,
		Slug:           slug,
	}
	require.NoError(t, db.Create(&funnel).Error)
	return funnel
}

// SessionOption mutates a fixture session before it is persisted.
type SessionOption func(*sessions.Session)

// CreateTestSession inserts a session with sane defaults; options override
// individual fields.
func CreateTestSession(t *testing.T, db *gorm.DB, funnelID uint, startedAt time.Time, opts ...SessionOption) sessions.Session {
	t.Helper()

	session := sessions.Session{
		ID:           uuid.NewString(),
		FunnelID:     funnelID,
		VisitorID:    uuid.NewString(),
		StartedAt:    startedAt.UTC(),
		PageViews:    1,
		EventCount:   1,
		CurrentStage: sessions.StageAwareness,
		DeviceType:   "desktop",
		Browser:      "Chrome",
	}
	for _, opt := range opts {
		opt(&session)
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

// EventOption mutates a fixture event before it is persisted.
type EventOption func(*events.Event)

// CreateTestEvent inserts an event tied to a session.
func CreateTestEvent(t *testing.T, db *gorm.DB, session sessions.Session, name string, timestamp time.Time, opts ...EventOption) events.Event {
	t.Helper()

	event := events.Event{
		FunnelID:  session.FunnelID,
		SessionID: session.ID,
		VisitorID: session.VisitorID,
		Name:      name,
		EventType: events.EventTypeCustomEvent,
		Timestamp: timestamp.UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// CreateTestPageView inserts a pageview event with path and title set.
func CreateTestPageView(t *testing.T, db *gorm.DB, session sessions.Session, path, title string, timestamp time.Time) events.Event {
	t.Helper()

	return CreateTestEvent(t, db, session, "pageview", timestamp, func(e *events.Event) {
		e.EventType = events.EventTypePageView
		e.PagePath = path
		e.PageTitle = title
	})
}

// CreateTestProfile inserts a visitor profile.
func CreateTestProfile(t *testing.T, db *gorm.DB, funnelID uint, totalSessions int64, lastSeen time.Time) visitors.Profile {
	t.Helper()

	profile := visitors.Profile{
		FunnelID:      funnelID,
		VisitorID:     uuid.NewString(),
		FirstSeenAt:   lastSeen.Add(-24 * time.Hour),
		LastSeenAt:    lastSeen.UTC(),
		TotalSessions: totalSessions,
	}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}

// CreateTestApp creates a test Fiber app with all routes mounted.
func CreateTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// Ptr returns a pointer to v, for optional fixture fields.
func Ptr[T any](v T) *T {
	return &v
}
