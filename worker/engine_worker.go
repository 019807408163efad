package worker

import (
	"context"
	"errors"
	"time"

	"taskforge/engine"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// EngineWorker runs the reconciliation engine on a cron schedule. Each
// tick is a full, self-contained run; an overlapping tick simply loses the
// advisory lock and is skipped.
type EngineWorker struct {
	runner     *engine.LockedRunner
	logger     *logrus.Logger
	cronEngine *cron.Cron
	cronSpec   string
	batchLimit int
}

func NewEngineWorker(runner *engine.LockedRunner, logger *logrus.Logger, cronSpec string, batchLimit int) *EngineWorker {
	return &EngineWorker{
		runner:     runner,
		logger:     logger,
		cronEngine: cron.New(),
		cronSpec:   cronSpec,
		batchLimit: batchLimit,
	}
}

func (w *EngineWorker) Start() error {
	_, err := w.cronEngine.AddFunc(w.cronSpec, w.tick)
	if err != nil {
		return err
	}
	w.cronEngine.Start()
	w.logger.WithField("cron", w.cronSpec).Info("Engine worker started")
	return nil
}

func (w *EngineWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := w.runner.Run(ctx, engine.RunInput{Limit: w.batchLimit})
	if err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			w.logger.Info("Engine worker: previous run still holds the lock, skipping tick")
			return
		}
		w.logger.WithError(err).Error("Engine worker: scheduled run failed")
		return
	}

	if stats.ProcessedEnrollments > 0 {
		w.logger.WithField("processed", stats.ProcessedEnrollments).Debug("Engine worker: tick finished")
	}
}

func (w *EngineWorker) Stop() {
	ctx := w.cronEngine.Stop()
	<-ctx.Done()
	w.logger.Info("Engine worker stopped")
}
