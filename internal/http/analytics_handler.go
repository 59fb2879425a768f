package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"funnelscope/internal/analytics"
	"funnelscope/internal/config"
	"funnelscope/internal/events"
	"funnelscope/internal/funnels"
	"funnelscope/internal/pkg/async"
	"funnelscope/internal/sessions"
	"funnelscope/internal/timeframe"
	"funnelscope/internal/visitors"
)

var titleCaser = cases.Title(language.English)

type analyticsRequest struct {
	Funnel    *funnels.Funnel
	Params    analytics.FunnelScopedQueryParams
	TimeFrame *timeframe.TimeFrame
}

// parseAnalyticsRequest resolves the funnel (not-found fails the whole
// request) and the time window before any computation starts.
func parseAnalyticsRequest(ctx *cartridge.Context) (*analyticsRequest, error) {
	funnelID, err := strconv.ParseUint(ctx.Params("id"), 10, 32)
	if err != nil {
		return nil, &badRequestError{message: "invalid funnel id"}
	}

	funnel, err := funnels.GetByID(ctx.DBManager.GetConnection(), uint(funnelID))
	if err != nil {
		return nil, err
	}

	parser := timeframe.NewParser()
	tf, err := parser.Parse(timeframe.ParserParams{
		Range: ctx.Query("range"),
		From:  ctx.Query("from"),
		To:    ctx.Query("to"),
	})
	if err != nil {
		return nil, &badRequestError{message: err.Error()}
	}

	params := analytics.NewFunnelScopedQueryParams(tf, funnel.ID)
	params.Limit = config.GetConfig().DefaultResultLimit
	if limit := ctx.QueryInt("limit"); limit > 0 {
		params.Limit = limit
	}

	return &analyticsRequest{Funnel: funnel, Params: params, TimeFrame: tf}, nil
}

type badRequestError struct {
	message string
}

func (e *badRequestError) Error() string { return e.message }

func handleAnalyticsError(ctx *cartridge.Context, err error) error {
	var notFound *funnels.FunnelNotFoundError
	if errors.As(err, &notFound) {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": notFound.Error(),
			"code":  "FUNNEL_NOT_FOUND",
		})
	}

	var badRequest *badRequestError
	if errors.As(err, &badRequest) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": badRequest.Error(),
			"code":  "INVALID_REQUEST",
		})
	}

	ctx.Logger.Error("Analytics request failed", slog.Any("error", err))
	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to compute analytics",
		"code":  "ANALYTICS_ERROR",
	})
}

// loadSessionsWithGeography loads the window sessions and applies the batched
// event-level geography fallback: one pass to find sessions missing
// geography, one batch query for the minimal event data, never a per-session
// lookup.
func loadSessionsWithGeography(db *gorm.DB, req *analyticsRequest) ([]sessions.Session, error) {
	sess, err := sessions.InWindow(db, req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return nil, err
	}

	needing := analytics.SessionsNeedingGeography(sess)
	if len(needing) > 0 {
		fallback, err := events.GeographyForSessions(db, needing)
		if err != nil {
			return nil, err
		}
		analytics.ApplyGeographyFallback(sess, fallback)
	}
	return sess, nil
}

// FunnelTrafficAction returns a one-dimension session breakdown
// (device/browser/os/country/city/utm_campaign/stage).
func FunnelTrafficAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	dimension := ctx.Query("dimension", analytics.DimensionDevice)
	db := ctx.DBManager.GetConnection()

	var sess []sessions.Session
	if dimension == analytics.DimensionCountry || dimension == analytics.DimensionCity {
		sess, err = loadSessionsWithGeography(db, req)
	} else {
		sess, err = sessions.InWindow(db, req.Funnel.ID, req.TimeFrame)
	}
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	rollups, err := analytics.SessionBreakdown(sess, dimension)
	if err != nil {
		return handleAnalyticsError(ctx, &badRequestError{message: err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"dimension": dimension,
		"label":     titleCaser.String(dimension),
		"total":     len(sess),
		"results":   analytics.RoundRollups(analytics.Limit(rollups, req.Params.Limit)),
	})
}

// FunnelCampaignsAction returns the composite source/medium/campaign rollup.
func FunnelCampaignsAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	side, err := parseTouchSide(ctx.Query("touch", string(analytics.TouchLast)))
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	sess, err := sessions.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	rollups := analytics.CampaignBreakdown(sess, side)
	return ctx.JSON(fiber.Map{
		"touch":   side,
		"total":   len(sess),
		"results": analytics.RoundRollups(analytics.Limit(rollups, req.Params.Limit)),
	})
}

// FunnelCategoriesAction returns the event-category rollup.
func FunnelCategoriesAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	evts, err := events.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame, 0)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	rollups := analytics.CategoryBreakdown(evts)
	return ctx.JSON(fiber.Map{
		"total":   len(evts),
		"results": analytics.RoundRollups(analytics.Limit(rollups, req.Params.Limit)),
	})
}

// FunnelPropertyBreakdownAction is the ad-hoc event-property groupBy.
func FunnelPropertyBreakdownAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	property := ctx.Query("property")
	if property == "" {
		return handleAnalyticsError(ctx, &badRequestError{message: "property is required"})
	}

	evts, err := events.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame, 0)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	rollups, err := analytics.EventPropertyBreakdown(evts, property)
	if err != nil {
		return handleAnalyticsError(ctx, &badRequestError{message: err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"property": property,
		"total":    len(evts),
		"results":  analytics.RoundRollups(analytics.Limit(rollups, req.Params.Limit)),
	})
}

// FunnelTimeSeriesAction returns the bucketed session series for the window.
func FunnelTimeSeriesAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	granularity, err := timeframe.ParseGranularity(ctx.Query("granularity"))
	if err != nil {
		return handleAnalyticsError(ctx, &badRequestError{message: err.Error()})
	}

	sess, err := sessions.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	metrics := []analytics.Metric[sessions.Session]{
		analytics.Count[sessions.Session]("sessions"),
		analytics.CountIf("conversions", func(s sessions.Session) bool { return s.Converted }),
		analytics.Sum("revenue", func(s sessions.Session) float64 { return s.ConversionValue }),
		analytics.Sum("page_views", func(s sessions.Session) float64 { return float64(s.PageViews) }),
	}
	at := func(s sessions.Session) time.Time { return s.StartedAt }

	var series []analytics.TimeBucket
	if ctx.QueryBool("zero_fill") {
		series = analytics.ZeroFilledSeries(sess, at, granularity, metrics, req.TimeFrame)
	} else {
		series = analytics.AggregateSeries(sess, at, granularity, metrics)
	}

	return ctx.JSON(fiber.Map{
		"granularity": granularity,
		"series":      series,
	})
}

// FunnelFlowAction returns the flow graph for the window.
func FunnelFlowAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	var eventType events.EventType
	switch ctx.Query("event_type", "pageview") {
	case "pageview":
		eventType = events.EventTypePageView
	case "custom":
		eventType = events.EventTypeCustomEvent
	case "all":
		eventType = 0
	default:
		return handleAnalyticsError(ctx, &badRequestError{message: "unknown event_type"})
	}

	db := ctx.DBManager.GetConnection()
	sess, err := sessions.InWindow(db, req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}
	evts, err := events.InWindow(db, req.Funnel.ID, req.TimeFrame, eventType)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(analytics.BuildFlow(sess, evts, eventType))
}

// FunnelStagesAction returns the canonical stage drop-off breakdown.
func FunnelStagesAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	byStage, err := sessions.CountByCurrentStage(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(analytics.StageFlow(byStage))
}

func parseTouchSide(value string) (analytics.TouchSide, error) {
	switch analytics.TouchSide(value) {
	case analytics.TouchFirst, analytics.TouchLast:
		return analytics.TouchSide(value), nil
	default:
		return "", &badRequestError{message: "touch must be first or last"}
	}
}

// FunnelAttributionAction returns the attributed-channel breakdown for one
// touch side.
func FunnelAttributionAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	side, err := parseTouchSide(ctx.Query("touch", string(analytics.TouchLast)))
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	sess, err := sessions.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	breakdown := analytics.AttributionBreakdown(sess, side)
	breakdown.Platforms = analytics.RoundRollups(breakdown.Platforms)
	return ctx.JSON(breakdown)
}

// FunnelEngagementAction returns per-event engagement aggregates.
func FunnelEngagementAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	db := ctx.DBManager.GetConnection()
	engaged, err := sessions.WithEngagement(db, req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}
	evts, err := events.InWindow(db, req.Funnel.ID, req.TimeFrame, 0)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	stats := analytics.EventEngagementStats(engaged, evts)
	for i := range stats {
		stats[i].AvgEngagement = analytics.Round1(stats[i].AvgEngagement)
		stats[i].AvgDurationSeconds = analytics.Round2(stats[i].AvgDurationSeconds)
		stats[i].ConversionRate = analytics.Round1(stats[i].ConversionRate)
		stats[i].Revenue = analytics.Round2(stats[i].Revenue)
	}

	if req.Params.Limit > 0 && len(stats) > req.Params.Limit {
		stats = stats[:req.Params.Limit]
	}
	return ctx.JSON(fiber.Map{"results": stats})
}

// FunnelFrequencyAction returns the per-visitor frequency histogram for one
// event name.
func FunnelFrequencyAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	eventName := ctx.Query("event")
	if eventName == "" {
		return handleAnalyticsError(ctx, &badRequestError{message: "event is required"})
	}

	evts, err := events.ByName(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame, eventName)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"event":   eventName,
		"buckets": analytics.FrequencyDistribution(evts, eventName),
	})
}

// FunnelEventNamesAction lists the distinct event names seen in the window,
// for frequency/property breakdown pickers.
func FunnelEventNamesAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	names, err := events.DistinctNames(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"names": names})
}

// FunnelVisitorsAction returns the lifecycle-stage breakdown, lazily
// classifying any profile whose stage is still unset.
func FunnelVisitorsAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	cfg := config.GetConfig()
	db := ctx.DBManager.GetConnection()

	profiles, err := visitors.ForFunnel(db, req.Funnel.ID)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}
	if err := visitors.EnsureLifecycleStages(db, ctx.Logger, profiles, time.Now().UTC(), cfg.ChurnWindowDays); err != nil {
		return handleAnalyticsError(ctx, err)
	}

	rollups := analytics.Rollup(profiles, func(p visitors.Profile) string {
		return p.LifecycleStage
	}, analytics.RollupMetrics[visitors.Profile]{})

	return ctx.JSON(fiber.Map{
		"total":   len(profiles),
		"results": analytics.RoundRollups(rollups),
	})
}

// FunnelVitalsAction returns the Core Web Vitals summary for the window.
func FunnelVitalsAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	sess, err := sessions.InWindow(ctx.DBManager.GetConnection(), req.Funnel.ID, req.TimeFrame)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	summary := analytics.VitalsOverview(sess)
	summary.AvgLoadTimeMs = analytics.Round2(summary.AvgLoadTimeMs)
	summary.AvgInteractiveMs = analytics.Round2(summary.AvgInteractiveMs)
	summary.AvgLayoutShift = analytics.Round2(summary.AvgLayoutShift)
	summary.AvgPaintMs = analytics.Round2(summary.AvgPaintMs)
	summary.AvgTTFBMs = analytics.Round2(summary.AvgTTFBMs)
	summary.AvgExperienceScore = analytics.Round2(summary.AvgExperienceScore)
	return ctx.JSON(summary)
}

// FunnelOverviewAction computes the independent aggregations of the dashboard
// concurrently. The analyses share no mutable state, so they fan out through
// the worker pool and fan back in by name; a failed sub-metric degrades to an
// empty structure instead of failing the whole dashboard.
func FunnelOverviewAction(ctx *cartridge.Context) error {
	req, err := parseAnalyticsRequest(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	cfg := config.GetConfig()
	db := ctx.DBManager.GetConnection()
	logger := ctx.Logger
	funnelID := req.Funnel.ID
	tf := req.TimeFrame
	limit := req.Params.Limit

	sessionBreakdown := func(dimension string) func() (interface{}, error) {
		return func() (interface{}, error) {
			sess, err := sessions.InWindow(db, funnelID, tf)
			if err != nil {
				logger.Error("Error loading sessions for breakdown",
					slog.String("dimension", dimension), slog.Any("error", err))
				return []analytics.GroupRollup{}, err
			}
			rollups, err := analytics.SessionBreakdown(sess, dimension)
			if err != nil {
				return []analytics.GroupRollup{}, err
			}
			return analytics.RoundRollups(analytics.Limit(rollups, limit)), nil
		}
	}

	tasks := []async.Task{
		{Name: "devices", Execute: sessionBreakdown(analytics.DimensionDevice)},
		{Name: "browsers", Execute: sessionBreakdown(analytics.DimensionBrowser)},
		{
			Name: "countries",
			Execute: func() (interface{}, error) {
				sess, err := loadSessionsWithGeography(db, req)
				if err != nil {
					return []analytics.GroupRollup{}, err
				}
				rollups, err := analytics.SessionBreakdown(sess, analytics.DimensionCountry)
				if err != nil {
					return []analytics.GroupRollup{}, err
				}
				return analytics.RoundRollups(analytics.Limit(rollups, limit)), nil
			},
		},
		{
			Name: "attribution",
			Execute: func() (interface{}, error) {
				sess, err := sessions.InWindow(db, funnelID, tf)
				if err != nil {
					return analytics.TouchBreakdown{}, err
				}
				breakdown := analytics.AttributionBreakdown(sess, analytics.TouchLast)
				breakdown.Platforms = analytics.RoundRollups(breakdown.Platforms)
				return breakdown, nil
			},
		},
		{
			Name: "stages",
			Execute: func() (interface{}, error) {
				byStage, err := sessions.CountByCurrentStage(db, funnelID, tf)
				if err != nil {
					return analytics.StageFlowResult{}, err
				}
				return analytics.StageFlow(byStage), nil
			},
		},
		{
			Name: "series",
			Execute: func() (interface{}, error) {
				sess, err := sessions.InWindow(db, funnelID, tf)
				if err != nil {
					return []analytics.TimeBucket{}, err
				}
				return analytics.ZeroFilledSeries(sess,
					func(s sessions.Session) time.Time { return s.StartedAt },
					tf.SuggestedGranularity(),
					[]analytics.Metric[sessions.Session]{
						analytics.Count[sessions.Session]("sessions"),
						analytics.CountIf("conversions", func(s sessions.Session) bool { return s.Converted }),
					}, tf), nil
			},
		},
		{
			Name: "vitals",
			Execute: func() (interface{}, error) {
				sess, err := sessions.InWindow(db, funnelID, tf)
				if err != nil {
					return analytics.VitalsSummary{}, err
				}
				return analytics.VitalsOverview(sess), nil
			},
		},
	}

	pool := async.NewPool(cfg.AnalyticsWorkers)
	results := pool.Execute(context.Background(), tasks)

	response := fiber.Map{
		"funnel_id": funnelID,
		"from":      tf.From,
		"to":        tf.To,
	}
	for name, result := range results {
		if result.Err != nil {
			logger.Error("Overview sub-metric failed",
				slog.String("metric", name), slog.Any("error", result.Err))
		}
		response[name] = result.Data
	}
	return ctx.JSON(response)
}
