package gateway

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// reporter logs a periodic snapshot of lock-table occupancy, the same
// cadence-driven background job shape the corpus builds on
// robfig/cron for its own scheduled maintenance tasks.
type reporter struct {
	server *Server
	cron   *cron.Cron
}

// newReporter builds a reporter that logs every minute. Call Start to
// begin, Stop to drain in-flight runs on shutdown.
func newReporter(s *Server) *reporter {
	return &reporter{
		server: s,
		cron:   cron.New(),
	}
}

func (r *reporter) Start() error {
	_, err := r.cron.AddFunc("@every 1m", r.report)
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *reporter) report() {
	r.server.logger.Info("lock table snapshot",
		slog.Int("held_locks", r.server.manager.Len()),
	)
}
