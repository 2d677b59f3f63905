package jobs

import (
	"context"
	"time"

	"vehicle-risk-backend/internal/logger"
)

const jobTimeout = 10 * time.Minute

// RecalculateBonusMalus recomputes every bonus-malus row whose lease has expired
func (jr *JobRunner) RecalculateBonusMalus() {
	jr.runWithRecovery("RecalculateBonusMalus", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		count, err := jr.services.BonusMalus.RecalculateDue(ctx)
		if err != nil {
			logger.Error("Failed to recalculate due bonus-malus rows", "error", err, "recalculated", count)
			return
		}

		logger.Info("Recalculated due bonus-malus rows", "count", count)
	})
}

// RefreshFxRate checks the latest stored snapshot of the configured pair against
// the market and stores a replacement once it expired or drifted
func (jr *JobRunner) RefreshFxRate() {
	jr.runWithRecovery("RefreshFxRate", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		from, to := jr.config.Fx.From, jr.config.Fx.To
		snap, replaced, err := jr.services.Fx.Refresh(ctx, from, to)
		if err != nil {
			logger.Error("Failed to refresh FX rate", "from", from, "to", to, "error", err)
			return
		}

		logger.Info("Refreshed FX rate",
			"from", from,
			"to", to,
			"rate", snap.Rate,
			"replaced", replaced,
			"expires_at", snap.ExpiresAt)
	})
}
