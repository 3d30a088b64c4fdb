package work

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/suraksha-app/suraksha/server/cron"
	"github.com/suraksha-app/suraksha/server/models"
)

// StuckJobThreshold is how long a claimed job may sit in-progress before the
// requeuer treats its claim as orphaned.
var StuckJobThreshold = 10 * time.Minute

// WorkerPoolAdapter ties the db-backed job queue to a cron scheduler, so
// callers can run jobs now, after a delay, or on a schedule.
type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	worker        *worker
	requeuer      *requeuer
	started       bool
}

func NewWorkerAdapter(timeZoneArg string) *WorkerPoolAdapter {
	return &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZoneArg),
		worker:        newWorker([]int64{0, 10, 100, 120}),
		requeuer:      newRequeuer(StuckJobThreshold),
	}
}

// Start starts the cron scheduler, the job worker & the stuck job requeuer.
func (adapter *WorkerPoolAdapter) Start() error {
	if adapter.started {
		return nil
	}
	adapter.started = true

	logg.Info("Starting cron scheduler & worker")
	adapter.cronScheduler.StartAsync()
	adapter.worker.start()
	adapter.requeuer.start()

	return nil
}

// Stop stops the cron scheduler, the job worker & the stuck job requeuer.
func (adapter *WorkerPoolAdapter) Stop() error {
	if !adapter.started {
		return nil
	}
	adapter.started = false

	logg.Info("Stopping cron scheduler & worker")
	adapter.cronScheduler.Stop()
	adapter.worker.stop()
	adapter.requeuer.stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.worker.registerHandler(name, handler)
}

// Perform sends a new job to the queue, to be executed as soon as the worker
// is available.
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	return adapter.enqueue(job, nil)
}

// PerformIn queues up a job to run once the given number of seconds has elapsed.
func (adapter *WorkerPoolAdapter) PerformIn(seconds int, job JobParams) error {
	runAt := time.Now().Add(time.Duration(seconds) * time.Second)
	return adapter.enqueue(job, &runAt)
}

// PeriodicallyPerform adds a job to the queue periodically, based on the
// cron expression provided.
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				if err := adapter.Perform(job); err != nil {
					logg.Error(err)
				}
			},
			job,
		)

	return err
}

func (adapter *WorkerPoolAdapter) enqueue(job JobParams, runAt *time.Time) error {
	if job.Name == "" || job.Handler == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}

	err = models.EnqueueJob(job.Name, job.Handler, string(argsAsJson), job.Unique, runAt)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	return nil
}
