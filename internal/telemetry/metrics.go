package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/capitalize-ai/conversation-router/internal/model"
)

// ParsePeriod maps the usage surface's period parameter to a duration.
func ParsePeriod(period string) (time.Duration, error) {
	switch period {
	case "", "24h":
		return 24 * time.Hour, nil
	case "1h":
		return time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	case "30d":
		return 30 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown period %q", period)
}

// ComputeMetrics aggregates the window ending now. An empty channelFilter
// includes all channels.
func (s *Store) ComputeMetrics(period string, channelFilter model.ChannelType) (*model.SystemMetrics, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	from := now.Add(-window)

	s.mu.Lock()
	messages := make([]model.UsageMetric, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Timestamp.Before(from) {
			continue
		}
		if channelFilter != "" && m.Channel != channelFilter {
			continue
		}
		messages = append(messages, m)
	}
	transfers := make([]model.TransferRecord, 0, len(s.transfers))
	for _, t := range s.transfers {
		if t.Timestamp.Before(from) {
			continue
		}
		if channelFilter != "" && t.From != channelFilter && t.To != channelFilter {
			continue
		}
		transfers = append(transfers, t)
	}
	var sessions []model.SessionRecord
	activeSessions := 0
	for _, rec := range s.sessions {
		if rec.StartedAt.Before(from) && (rec.EndedAt == nil || rec.EndedAt.Before(from)) {
			continue
		}
		if channelFilter != "" && rec.Channel != channelFilter {
			continue
		}
		sessions = append(sessions, *rec)
		if rec.EndedAt == nil {
			activeSessions++
		}
	}
	s.mu.Unlock()

	out := &model.SystemMetrics{
		Period:       period,
		From:         from,
		To:           now,
		ChannelUsage: s.channelUsage(messages),
		Transfers:    groupTransfers(transfers),
		Sessions:     sessions,
	}

	failed := 0
	for _, m := range messages {
		if !m.Success {
			failed++
		}
	}
	errorRate := 0.0
	if len(messages) > 0 {
		errorRate = float64(failed) / float64(len(messages))
	}
	out.Summary = model.UsageSummary{
		TotalMessages:  len(messages),
		TotalTransfers: len(transfers),
		TotalSessions:  len(sessions),
		ActiveSessions: activeSessions,
		ErrorRate:      errorRate,
	}

	return out, nil
}

// channelUsage groups window messages by channel.
func (s *Store) channelUsage(messages []model.UsageMetric) []model.ChannelUsage {
	type agg struct {
		total, success int
		latencySum     int64
		hourBuckets    [24]int
	}
	byChannel := make(map[model.ChannelType]*agg)
	for _, m := range messages {
		a, ok := byChannel[m.Channel]
		if !ok {
			a = &agg{}
			byChannel[m.Channel] = a
		}
		a.total++
		if m.Success {
			a.success++
		}
		a.latencySum += m.ResponseTimeMs
		a.hourBuckets[m.Timestamp.UTC().Hour()]++
	}

	out := make([]model.ChannelUsage, 0, len(byChannel))
	for _, ch := range []model.ChannelType{model.ChannelRealtime, model.ChannelNormal, model.ChannelHuman} {
		a, ok := byChannel[ch]
		if !ok {
			continue
		}

		peakHour, peakCount := 0, 0
		for hour, count := range a.hourBuckets {
			if count > peakCount {
				peakHour, peakCount = hour, count
			}
		}

		avgLatency := int64(0)
		if a.total > 0 {
			avgLatency = a.latencySum / int64(a.total)
		}

		out = append(out, model.ChannelUsage{
			Channel:               ch,
			TotalMessages:         a.total,
			SuccessfulMessages:    a.success,
			FailedMessages:        a.total - a.success,
			AverageResponseTimeMs: avgLatency,
			PeakUsageHour:         peakHour,
			UserSatisfactionScore: s.satisfaction(ch, a.success, a.total),
		})
	}
	return out
}

// satisfaction derives the score: successRate*100 plus the per-channel
// adjustment, clamped to [0,100].
func (s *Store) satisfaction(ch model.ChannelType, success, total int) int {
	if total == 0 {
		return 0
	}
	score := float64(success) / float64(total) * 100
	switch ch {
	case model.ChannelHuman:
		score += float64(s.adjustments.Human)
	case model.ChannelRealtime:
		score += float64(s.adjustments.Realtime)
	}
	return int(math.Min(100, math.Max(0, math.Round(score))))
}

// groupTransfers aggregates transfers by (from,to) route with a histogram
// of reasons.
func groupTransfers(transfers []model.TransferRecord) []model.TransferRoute {
	type key struct{ from, to model.ChannelType }
	type agg struct {
		count, success int
		durationSum    int64
		reasons        map[string]int
	}
	routes := make(map[key]*agg)
	var order []key
	for _, t := range transfers {
		k := key{t.From, t.To}
		a, ok := routes[k]
		if !ok {
			a = &agg{reasons: make(map[string]int)}
			routes[k] = a
			order = append(order, k)
		}
		a.count++
		if t.Success {
			a.success++
		}
		a.durationSum += t.DurationMs
		a.reasons[string(t.Reason)]++
	}

	out := make([]model.TransferRoute, 0, len(routes))
	for _, k := range order {
		a := routes[k]
		out = append(out, model.TransferRoute{
			From:              k.from,
			To:                k.to,
			Count:             a.count,
			SuccessRate:       float64(a.success) / float64(a.count),
			AverageDurationMs: a.durationSum / int64(a.count),
			Reasons:           a.reasons,
		})
	}
	return out
}

// RealTimeStats returns the rolling 5-minute operational snapshot.
func (s *Store) RealTimeStats() model.RealTimeStats {
	now := time.Now()
	cutoff := now.Add(-realTimeWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.RealTimeStats{
		ChannelDistribution: make(map[model.ChannelType]int),
		Timestamp:           now,
	}

	var latencySum int64
	failed := 0
	for _, m := range s.messages {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		stats.MessagesLast5Min++
		stats.ChannelDistribution[m.Channel]++
		latencySum += m.ResponseTimeMs
		if !m.Success {
			failed++
		}
	}
	if stats.MessagesLast5Min > 0 {
		stats.AverageResponseMs = latencySum / int64(stats.MessagesLast5Min)
		stats.ErrorRate = float64(failed) / float64(stats.MessagesLast5Min)
	}

	for _, t := range s.transfers {
		if !t.Timestamp.Before(cutoff) {
			stats.TransfersLast5Min++
		}
	}

	for _, rec := range s.sessions {
		if rec.EndedAt == nil {
			stats.ActiveSessions++
		}
	}

	return stats
}
