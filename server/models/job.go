package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Name        string     `json:"name"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	Fails       int        `json:"fails"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	RunAt       *time.Time `json:"run_at"`
	JobStatusID string     `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status"`
}

// EnqueueJob adds a job to the queue. With unique=true, the job is skipped
// when one with the same name is already enqueued or in progress.
func EnqueueJob(name, handler, args string, unique bool, runAt *time.Time) error {
	enqueuedStatus, err := FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return err
	}

	if unique {
		inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
		if err != nil {
			return err
		}

		res := db.Where("name = ? AND job_status_id IN ?",
			name, []string{enqueuedStatus.ID, inProgressStatus.ID}).First(&Job{})

		if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		if res.RowsAffected > 0 {
			return ErrDuplicateJob
		}
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		RunAt:       runAt,
		JobStatusID: enqueuedStatus.ID,
	}).Error
}

// NextJob returns the oldest unclaimed enqueued job that is due to run.
func NextJob() (*Job, error) {
	enqueuedStatus, err := FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = db.Where("job_status_id = ? AND claimed = ? AND (run_at IS NULL OR run_at <= ?)",
		enqueuedStatus.ID, false, time.Now()).Order("rowid").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// ClaimJob marks a job as in-progress, returning false if another worker got
// there first. The conditional update is what makes the claim safe.
func ClaimJob(jobID string) (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", jobID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func UpdateJob(jobID string, data map[string]interface{}) error {
	return db.Model(&Job{}).Where("id = ?", jobID).Updates(data).Error
}

// StaleInProgressJob returns the oldest in-progress job untouched for at
// least staleAfter, usually a claim orphaned by a crash mid-run.
func StaleInProgressJob(staleAfter time.Duration) (*Job, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = db.Where("job_status_id = ? AND updated_at <= ?",
		inProgressStatus.ID, time.Now().Add(-staleAfter)).Order("updated_at").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func FindJobByName(name string) (*Job, error) {
	job := Job{}
	err := db.Preload("JobStatus").First(&job, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func JobCountFor(name string) (int64, error) {
	var count int64
	err := db.Model(&Job{}).Where("name = ?", name).Count(&count).Error
	return count, err
}
