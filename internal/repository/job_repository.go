package repository

import (
	"fmt"
	"sync"

	"github.com/docurisk/backend/internal/models"
	"gorm.io/gorm"
)

// JobRepository persists the durable Job row. The ledger in the blob store
// remains the source of truth for per-document state; the Job row carries
// status and counters for fast queries.
type JobRepository interface {
	Create(job *models.Job) error
	Update(job *models.Job) error
	Get(id string) (*models.Job, error)
	List(limit, offset int) ([]models.Job, error)
}

// GormJobRepository stores jobs in postgres via gorm.
type GormJobRepository struct {
	db *gorm.DB
}

func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *GormJobRepository) Update(job *models.Job) error {
	if err := r.db.Save(job).Error; err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (r *GormJobRepository) Get(id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("job %s not found: %w", id, err)
	}
	return &job, nil
}

func (r *GormJobRepository) List(limit, offset int) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// MemoryJobRepository keeps jobs in memory. It backs tests and the degraded
// local mode that runs without a database.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]models.Job)}
}

func (r *MemoryJobRepository) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *MemoryJobRepository) Update(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *MemoryJobRepository) Get(id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, exists := r.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return &job, nil
}

func (r *MemoryJobRepository) List(limit, offset int) ([]models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	if offset >= len(jobs) {
		return nil, nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
