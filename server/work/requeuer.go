package work

import (
	"time"

	"github.com/pkg/errors"
	"github.com/suraksha-app/suraksha/colors"
	"github.com/suraksha-app/suraksha/server/models"
	"gorm.io/gorm"
)

// requeuer pulls jobs out of 'in-progress' that have stayed there too long,
// i.e. claims orphaned by a crash, and puts them back on the queue so a
// pending follow-up is never lost.
type requeuer struct {
	staleAfter time.Duration
	stopChan   chan struct{}
}

func newRequeuer(staleAfter time.Duration) *requeuer {
	return &requeuer{
		staleAfter: staleAfter,
		stopChan:   make(chan struct{}),
	}
}

func (r *requeuer) start() {
	go r.loop()
}

func (r *requeuer) stop() {
	r.stopChan <- struct{}{}
}

func (r *requeuer) loop() {
	// At some point we may need an exponential back-off,
	// but for now keep it simple
	sleepBackOff := 30
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	logg.Info("Starting stuck job requeuer")
	for {
		select {
		case <-r.stopChan:
			logg.Info("Stopping stuck job requeuer")
			return
		case <-rateLimiter.C:
			job, err := models.StaleInProgressJob(r.staleAfter)

			// If no stuck job found, sleep for 'sleepBackOff' seconds
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rateLimiter.Reset(time.Duration(sleepBackOff) * time.Second)
				continue
			}

			if err != nil {
				r.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			r.logInfof("fetched stuck job with id=%v, job.claimed=%v", job.ID, job.Claimed)

			r.requeue(job)
			rateLimiter.Reset(DefaultTickerDuration)
		}
	}
}

func (r *requeuer) requeue(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.ENQUEUED_JOB)
	if err != nil {
		r.logError(err)
		return
	}

	err = models.UpdateJob(job.ID, map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
	})
	if err != nil {
		r.logError(err)
		return
	}

	r.logInfof("job with id=%v requeued", job.ID)
}

func (r *requeuer) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow("[job requeuer] ")
	logg.Infof(prefix+template, args...)
}

func (r *requeuer) logError(args ...interface{}) {
	prefix := colors.Red("[job requeuer] ")
	logg.Error(append([]interface{}{prefix}, args...)...)
}
