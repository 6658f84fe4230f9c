package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Reconciler is the part of the payment service the job drives.
type Reconciler interface {
	ReconcilePending(ctx context.Context) (int, error)
}

// StartPaymentReconciler verifies stale gateway payments every interval.
// The caller owns the returned scheduler and must shut it down.
func StartPaymentReconciler(r Reconciler, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runReconcile(r, interval)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	logrus.WithField("interval", interval).Info("payment reconciler started")
	return sched, nil
}

func runReconcile(r Reconciler, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := r.ReconcilePending(ctx); err != nil {
		logrus.WithError(err).Error("payment reconciliation failed")
	}
}
