package repository

import (
	"github.com/twinvision/backend/internal/db/models"
	"github.com/twinvision/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveRepository stores alerts and predictions for later audit
type ArchiveRepository interface {
	Repository
	InsertAlerts(alerts []models.AlertRecord) error
	ListAlerts(machineID string, page utils.PageRequest) ([]models.AlertRecord, int64, error)
	InsertPrediction(prediction *models.PredictionRecord) error
	ListPredictions(machineID string, page utils.PageRequest) ([]models.PredictionRecord, int64, error)
}

// archiveRepository implements ArchiveRepository
type archiveRepository struct {
	BaseRepository
}

// NewArchiveRepository creates a new archive repository
func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// InsertAlerts stores a batch of alerts; alerts already archived are skipped
func (r *archiveRepository) InsertAlerts(alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	err := r.GetDB().
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(alerts, 100).Error
	return r.handleError(err)
}

// ListAlerts returns one page of archived alerts, newest first
func (r *archiveRepository) ListAlerts(machineID string, page utils.PageRequest) ([]models.AlertRecord, int64, error) {
	var alerts []models.AlertRecord
	var total int64

	if err := r.GetDB().Model(&models.AlertRecord{}).Scopes(byMachine(machineID)).Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	err := r.GetDB().Scopes(byMachine(machineID), utils.Paginate(page)).
		Order("timestamp desc").
		Find(&alerts).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return alerts, total, nil
}

// InsertPrediction stores one prediction attempt
func (r *archiveRepository) InsertPrediction(prediction *models.PredictionRecord) error {
	if prediction.MachineID == "" {
		return ErrInvalidInput
	}

	err := r.GetDB().Create(prediction).Error
	return r.handleError(err)
}

// ListPredictions returns one page of archived predictions, newest first
func (r *archiveRepository) ListPredictions(machineID string, page utils.PageRequest) ([]models.PredictionRecord, int64, error) {
	var predictions []models.PredictionRecord
	var total int64

	if err := r.GetDB().Model(&models.PredictionRecord{}).Scopes(byMachine(machineID)).Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	err := r.GetDB().Scopes(byMachine(machineID), utils.Paginate(page)).
		Order("created_at desc, id desc").
		Find(&predictions).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return predictions, total, nil
}

func byMachine(machineID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if machineID == "" {
			return db
		}
		return db.Where("machine_id = ?", machineID)
	}
}
