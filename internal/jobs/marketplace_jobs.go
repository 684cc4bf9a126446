package jobs

import (
	"context"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"go.uber.org/zap"
)

// Job names
const (
	CloseExpiredQuotesJobName     = "close_expired_quotes"
	PurgeReadNotificationsJobName = "purge_read_notifications"
)

// closeExpiredBatchSize bounds the quotes closed in one run
const closeExpiredBatchSize = 200

// QuoteCloser closes open quotes whose bidding deadline has passed
type QuoteCloser interface {
	CloseExpired(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// NotificationPurger deletes read notifications older than a retention period
type NotificationPurger interface {
	PurgeRead(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// CloseExpiredQuotesJob stops bidding on quotes past their deadline
type CloseExpiredQuotesJob struct {
	quotes  QuoteCloser
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewCloseExpiredQuotesJob(quotes QuoteCloser, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *CloseExpiredQuotesJob {
	return &CloseExpiredQuotesJob{
		quotes:  quotes,
		metrics: m,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run is called by the scheduler
func (j *CloseExpiredQuotesJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	closed, err := j.quotes.CloseExpired(ctx, j.now().UTC(), closeExpiredBatchSize)
	j.metrics.JobRun(CloseExpiredQuotesJobName, err)
	if err != nil {
		j.logger.Error("closing expired quotes failed",
			zap.Error(err),
			zap.Int("closed", closed),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if closed > 0 {
		j.logger.Info("expired quotes closed",
			zap.Int("closed", closed),
			zap.Duration("duration", time.Since(start)))
	}
}

// PurgeReadNotificationsJob keeps the notifications table bounded
type PurgeReadNotificationsJob struct {
	notifications NotificationPurger
	retention     time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger
	timeout       time.Duration
	now           func() time.Time
}

func NewPurgeReadNotificationsJob(notifications NotificationPurger, retention time.Duration, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *PurgeReadNotificationsJob {
	return &PurgeReadNotificationsJob{
		notifications: notifications,
		retention:     retention,
		metrics:       m,
		logger:        logger,
		timeout:       timeout,
		now:           time.Now,
	}
}

func (j *PurgeReadNotificationsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	purged, err := j.notifications.PurgeRead(ctx, j.now().UTC(), j.retention)
	j.metrics.JobRun(PurgeReadNotificationsJobName, err)
	if err != nil {
		j.logger.Error("purging read notifications failed", zap.Error(err))
		return
	}
	j.logger.Debug("read notifications purged", zap.Int64("purged", purged))
}

// RegisterMarketplaceJobs adds the housekeeping jobs to the scheduler. An
// empty cron expression disables the corresponding job.
func RegisterMarketplaceJobs(
	scheduler *Scheduler,
	quotes QuoteCloser,
	notifications NotificationPurger,
	closeExpiredExpr string,
	purgeExpr string,
	retention time.Duration,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) error {
	if closeExpiredExpr != "" {
		job := NewCloseExpiredQuotesJob(quotes, m, logger, timeout)
		if err := scheduler.AddJob(CloseExpiredQuotesJobName, closeExpiredExpr, job.Run); err != nil {
			return err
		}
	}
	if purgeExpr != "" && retention > 0 {
		job := NewPurgeReadNotificationsJob(notifications, retention, m, logger, timeout)
		if err := scheduler.AddJob(PurgeReadNotificationsJobName, purgeExpr, job.Run); err != nil {
			return err
		}
	}
	return nil
}
