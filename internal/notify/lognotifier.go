package notify

import (
	"context"
	"log/slog"

	"github.com/ambakkou/stormwatch/internal/domain"
)

// LogNotifier is the fallback sink when no broker is configured: delivered
// conditions land in the structured log and nowhere else.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, sessionID string, cond domain.WeatherCondition) error {
	n.logger.Warn("weather notification",
		"session", sessionID,
		"condition", cond.ID,
		"type", cond.Type,
		"severity", cond.Severity,
		"urgent", cond.Urgent(),
		"title", cond.Title,
		"recommendation", cond.Recommendation,
		"data_source", cond.DataSource)
	return nil
}
