package timeframe

import (
	"fmt"
	"time"
)

// ParserParams carries the raw range inputs from a request. Either Range is a
// named preset, or From/To are explicit RFC3339 (or date-only) bounds.
type ParserParams struct {
	Range string
	From  string
	To    string
}

// Parser resolves request-level range parameters to a TimeFrame.
type Parser struct {
	timeProvider TimeProvider
}

func NewParser(timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &Parser{timeProvider: provider}
}

// Parse resolves a named preset or an explicit from/to pair into a TimeFrame.
// Named presets always win over explicit bounds; with neither present the
// window defaults to the last 7 days.
func (p *Parser) Parse(params ParserParams) (*TimeFrame, error) {
	now := p.timeProvider.Now()

	if params.Range != "" {
		return p.parsePreset(RangeLabel(params.Range), now)
	}

	if params.From == "" && params.To == "" {
		tf, err := NewTimeFrame(now.AddDate(0, 0, -7), now)
		if err != nil {
			return nil, err
		}
		tf.Label = RangeLabelLast7Days
		return tf, nil
	}

	from, err := parseBound(params.From, now.AddDate(0, 0, -7), false)
	if err != nil {
		return nil, fmt.Errorf("invalid 'from' date: %w", err)
	}
	to, err := parseBound(params.To, now, true)
	if err != nil {
		return nil, fmt.Errorf("invalid 'to' date: %w", err)
	}

	return NewTimeFrame(from, to)
}

func (p *Parser) parsePreset(label RangeLabel, now time.Time) (*TimeFrame, error) {
	var from time.Time

	switch label {
	case RangeLabelToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case RangeLabelLast24h:
		from = now.Add(-24 * time.Hour)
	case RangeLabelLast7Days:
		from = now.AddDate(0, 0, -7)
	case RangeLabelLast30Days:
		from = now.AddDate(0, 0, -30)
	case RangeLabelLast90Days:
		from = now.AddDate(0, 0, -90)
	default:
		return nil, fmt.Errorf("unknown range: %s", label)
	}

	tf, err := NewTimeFrame(from, now)
	if err != nil {
		return nil, err
	}
	tf.Label = label
	return tf, nil
}

func parseBound(value string, fallback time.Time, isEnd bool) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	if isEnd {
		// Date-only end bounds include the whole day.
		return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, time.UTC), nil
	}
	return date, nil
}
