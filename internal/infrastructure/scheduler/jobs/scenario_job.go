// Package jobs contains the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/purplepatch/notify-hub/internal/application/scenario"
	"github.com/purplepatch/notify-hub/internal/domain/notification"
)

// ScenarioJob runs one scenario over one channel when its daily time
// fires. One job instance per (scenario, channel) pairing.
type ScenarioJob struct {
	coordinator *scenario.Coordinator
	scenarioID  scenario.ID
	channel     notification.ChannelType
	logger      *slog.Logger
}

// NewScenarioJob creates a scheduled scenario run.
func NewScenarioJob(coordinator *scenario.Coordinator, id scenario.ID, channel notification.ChannelType, logger *slog.Logger) *ScenarioJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScenarioJob{
		coordinator: coordinator,
		scenarioID:  id,
		channel:     channel,
		logger:      logger,
	}
}

// Name returns the unique job name.
func (j *ScenarioJob) Name() string {
	return fmt.Sprintf("scenario:%s:%s", j.scenarioID, j.channel)
}

// Run executes the scenario batch.
func (j *ScenarioJob) Run(ctx context.Context) error {
	attempted, err := j.coordinator.RunScenario(ctx, j.scenarioID, j.channel)
	if err != nil {
		return fmt.Errorf("run scenario %s over %s: %w", j.scenarioID, j.channel, err)
	}

	j.logger.Info("scenario batch dispatched",
		"scenario", j.scenarioID,
		"channel", j.channel,
		"attempted", attempted,
	)
	return nil
}
