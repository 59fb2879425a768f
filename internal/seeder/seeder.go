// Package seeder generates realistic demo data: a funnel, a population of
// visitors with lifecycle-shaped session counts, and session/event streams
// spread over the last weeks.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"funnelscope/internal/events"
	"funnelscope/internal/funnels"
	"funnelscope/internal/sessions"
	"funnelscope/internal/visitors"
)

// Seeder handles the demo data seeding process.
type Seeder struct {
	DBManager    cartridge.DBManager
	Logger       *slog.Logger
	VisitorCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, visitorCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if visitorCount <= 0 {
		visitorCount = 200
	}
	return &Seeder{
		DBManager:    dbManager,
		Logger:       logger,
		VisitorCount: visitorCount,
	}
}

var seedSources = []struct {
	utmSource   string
	utmMedium   string
	utmCampaign string
	clickID     string // which click-id field gets populated
}{
	{"facebook", "paid", "spring-launch", "social"},
	{"google", "cpc", "brand-search", "search"},
	{"youtube", "video", "product-demo", "video"},
	{"newsletter", "email", "weekly-digest", ""},
	{"", "", "", ""},
}

var seedPages = []struct {
	path  string
	title string
	stage string
}{
	{"/", "Home", sessions.StageAwareness},
	{"/features", "Features", sessions.StageInterest},
	{"/pricing", "Pricing", sessions.StageDesire},
	{"/checkout", "Checkout", sessions.StageCheckout},
	{"/thank-you", "Thank You", sessions.StagePurchase},
}

var seedDevices = []string{"desktop", "desktop", "mobile", "mobile", "tablet"}
var seedBrowsers = []string{"Chrome", "Chrome", "Safari", "Firefox", "Edge"}
var seedCountries = []struct{ code, name string }{
	{"US", "United States"},
	{"DE", "Germany"},
	{"GB", "United Kingdom"},
	{"BR", "Brazil"},
	{"", ""},
}

// Seed creates (or reuses) the demo funnel and fills it with visitors,
// sessions and events.
func (s *Seeder) Seed(ctx context.Context, funnelName string) error {
	start := time.Now()
	s.Logger.Info("Seeding demo data...",
		slog.String("funnel", funnelName), slog.Int("visitors", s.VisitorCount))

	db := s.DBManager.GetConnection()

	funnel, err := s.ensureFunnel(db, funnelName)
	if err != nil {
		return err
	}

	for i := 0; i < s.VisitorCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.seedVisitor(db, funnel.ID); err != nil {
			return fmt.Errorf("error seeding visitor %d: %w", i, err)
		}
	}

	s.Logger.Info("Seeding completed",
		slog.String("funnel", funnelName), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) ensureFunnel(db *gorm.DB, name string) (*funnels.Funnel, error) {
	slug := fmt.Sprintf("demo-%s", uuid.NewString()[:8])

	var funnel funnels.Funnel
	if db.Where("name = ?", name).First(&funnel).Error == nil {
		return &funnel, nil
	}

	funnel = funnels.Funnel{OrganizationID: 1, Name: name, Slug: slug}
	if err := db.Create(&funnel).Error; err != nil {
		return nil, fmt.Errorf("error creating demo funnel: %w", err)
	}
	return &funnel, nil
}

// seedVisitor creates one visitor profile and a lifecycle-shaped number of
// sessions for it. Roughly: half one-off visitors, a third returning, the
// rest loyal; a slice of the population has gone quiet long enough to show
// up as churned.
func (s *Seeder) seedVisitor(db *gorm.DB, funnelID uint) error {
	visitorID := uuid.NewString()
	now := time.Now().UTC()

	sessionCount := 1
	switch roll := rand.IntN(10); {
	case roll >= 8:
		sessionCount = 5 + rand.IntN(8)
	case roll >= 5:
		sessionCount = 2 + rand.IntN(3)
	}

	// 1 in 6 visitors last showed up before the churn window.
	daysBack := rand.IntN(25)
	if rand.IntN(6) == 0 {
		daysBack = 35 + rand.IntN(30)
	}
	lastSeen := now.AddDate(0, 0, -daysBack)
	firstSeen := lastSeen.AddDate(0, 0, -rand.IntN(60))

	var totalEvents int64
	for i := 0; i < sessionCount; i++ {
		startedAt := firstSeen.Add(time.Duration(rand.Int64N(int64(lastSeen.Sub(firstSeen) + time.Hour))))
		eventCount, err := s.seedSession(db, funnelID, visitorID, startedAt)
		if err != nil {
			return err
		}
		totalEvents += eventCount
	}

	profile := visitors.Profile{
		FunnelID:      funnelID,
		VisitorID:     visitorID,
		FirstSeenAt:   firstSeen,
		LastSeenAt:    lastSeen,
		TotalSessions: int64(sessionCount),
		TotalEvents:   totalEvents,
	}
	if err := db.Create(&profile).Error; err != nil {
		return fmt.Errorf("error creating visitor profile: %w", err)
	}
	return nil
}

func (s *Seeder) seedSession(db *gorm.DB, funnelID uint, visitorID string, startedAt time.Time) (int64, error) {
	source := seedSources[rand.IntN(len(seedSources))]
	device := seedDevices[rand.IntN(len(seedDevices))]
	browser := seedBrowsers[rand.IntN(len(seedBrowsers))]
	country := seedCountries[rand.IntN(len(seedCountries))]

	// How deep into the funnel this session gets.
	depth := 1 + rand.IntN(len(seedPages))
	converted := depth == len(seedPages)

	duration := float64(30 + rand.IntN(600))
	active := duration * (0.3 + rand.Float64()*0.7)

	session := sessions.Session{
		ID:              uuid.NewString(),
		FunnelID:        funnelID,
		VisitorID:       visitorID,
		StartedAt:       startedAt,
		PageViews:       depth,
		EventCount:      depth,
		DurationSeconds: duration,
		ActiveTimeSeconds: &active,
		CurrentStage:    seedPages[depth-1].stage,
		Converted:       converted,
		DeviceType:      device,
		Browser:         browser,
		CountryCode:     country.code,
		CountryName:     country.name,
	}
	if converted {
		session.ConversionValue = 20 + rand.Float64()*180
	}

	session.FirstUTMSource = source.utmSource
	session.FirstUTMMedium = source.utmMedium
	session.FirstUTMCampaign = source.utmCampaign
	session.LastUTMSource = source.utmSource
	session.LastUTMMedium = source.utmMedium
	session.LastUTMCampaign = source.utmCampaign

	clickID := uuid.NewString()
	switch source.clickID {
	case "social":
		session.FirstSocialClickID = clickID
		session.LastSocialClickID = clickID
	case "search":
		session.FirstSearchClickID = clickID
		session.LastSearchClickID = clickID
	case "video":
		session.FirstVideoClickID = clickID
		session.LastVideoClickID = clickID
	}

	var history sessions.StageHistory
	for i := 0; i < depth; i++ {
		history = append(history, sessions.StageEntry{
			Stage:     seedPages[i].stage,
			EnteredAt: startedAt.Add(time.Duration(i) * time.Minute),
		})
	}
	session.StageHistory = history

	if err := db.Create(&session).Error; err != nil {
		return 0, fmt.Errorf("error creating session: %w", err)
	}

	for i := 0; i < depth; i++ {
		event := events.Event{
			FunnelID:  funnelID,
			SessionID: session.ID,
			VisitorID: visitorID,
			Name:      "pageview",
			EventType: events.EventTypePageView,
			PagePath:  seedPages[i].path,
			PageTitle: seedPages[i].title,
			UTMSource: source.utmSource,
			UTMMedium: source.utmMedium,
			UTMCampaign: source.utmCampaign,
			DeviceType: device,
			Browser:    browser,
			CountryCode: country.code,
			CountryName: country.name,
			Timestamp:  startedAt.Add(time.Duration(i) * time.Minute),
		}
		if converted && i == depth-1 {
			event.IsConversion = true
			event.Revenue = session.ConversionValue
		}
		if err := db.Create(&event).Error; err != nil {
			return 0, fmt.Errorf("error creating event: %w", err)
		}
	}

	return int64(depth), nil
}
