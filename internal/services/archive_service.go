package services

import (
	"context"
	"fmt"

	"github.com/twinvision/backend/internal/db"
	"github.com/twinvision/backend/internal/db/models"
	"github.com/twinvision/backend/internal/db/repository"
	"github.com/twinvision/backend/internal/prediction"
	"github.com/twinvision/backend/internal/simulation"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap"
)

// ArchiveService writes alerts and prediction attempts to the archive database.
// Nothing it writes is ever read back into the simulation.
type ArchiveService struct {
	repo   repository.ArchiveRepository
	logger *utils.Logger
	writes chan func() error
	done   chan struct{}
}

// NewArchiveService creates an archive service over database
func NewArchiveService(database *db.Database, logger *utils.Logger) *ArchiveService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &ArchiveService{
		repo:   repoFactory.Archive(),
		logger: logger.Named("archive_service"),
		writes: make(chan func() error, 256),
		done:   make(chan struct{}),
	}
}

// Start runs the write loop until ctx ends, then drains what is queued
func (s *ArchiveService) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		for {
			select {
			case <-ctx.Done():
				s.drain()
				s.logger.Info("Archive writer stopped")
				return
			case write := <-s.writes:
				s.apply(write)
			}
		}
	}()
}

// Wait blocks until the write loop has exited
func (s *ArchiveService) Wait() {
	<-s.done
}

func (s *ArchiveService) drain() {
	for {
		select {
		case write := <-s.writes:
			s.apply(write)
		default:
			return
		}
	}
}

func (s *ArchiveService) apply(write func() error) {
	if err := write(); err != nil {
		s.logger.Error("Archive write failed", zap.Error(err))
	}
}

func (s *ArchiveService) enqueue(write func() error) {
	select {
	case s.writes <- write:
	default:
		s.logger.Warn("Archive queue full, dropping write")
	}
}

// HandleTick archives the alerts raised by one tick
func (s *ArchiveService) HandleTick(event simulation.TickEvent) {
	if len(event.NewAlerts) == 0 {
		return
	}

	records := make([]models.AlertRecord, 0, len(event.NewAlerts))
	for _, alert := range event.NewAlerts {
		records = append(records, models.AlertRecord{
			ID:          alert.ID,
			MachineID:   alert.MachineID,
			MachineName: alert.MachineName,
			Severity:    string(alert.Severity),
			Message:     alert.Message,
			SimTime:     event.State.Time,
			Timestamp:   alert.Timestamp,
		})
	}

	s.enqueue(func() error {
		return s.repo.InsertAlerts(records)
	})
}

// HandlePrediction archives settled prediction attempts
func (s *ArchiveService) HandlePrediction(event prediction.Event) {
	if event.Type == prediction.EventPending {
		return
	}

	record := &models.PredictionRecord{
		Seq:       event.Seq,
		MachineID: event.MachineID,
		Error:     event.Error,
	}
	if event.Input != nil {
		record.Temperature = event.Input.Temperature
		record.Load = event.Input.Load
		record.Speed = event.Input.Speed
		record.ReadingTime = event.Input.Timestamp
	}
	if event.Prediction != nil {
		record.FailureType = event.Prediction.FailureType
		record.EstimatedTime = event.Prediction.EstimatedTime
		record.ConfidenceScore = event.Prediction.ConfidenceScore
	}

	s.enqueue(func() error {
		return s.repo.InsertPrediction(record)
	})
}

// ListAlerts returns one page of archived alerts
func (s *ArchiveService) ListAlerts(machineID string, page utils.PageRequest) (utils.Page, error) {
	alerts, total, err := s.repo.ListAlerts(machineID, page)
	if err != nil {
		s.logger.Error("Failed to list archived alerts", zap.Error(err))
		return utils.Page{}, fmt.Errorf("%w: failed to list archived alerts", utils.ErrInternalServer)
	}
	return utils.NewPage(alerts, page, total), nil
}

// ListPredictions returns one page of archived prediction attempts
func (s *ArchiveService) ListPredictions(machineID string, page utils.PageRequest) (utils.Page, error) {
	predictions, total, err := s.repo.ListPredictions(machineID, page)
	if err != nil {
		s.logger.Error("Failed to list archived predictions", zap.Error(err))
		return utils.Page{}, fmt.Errorf("%w: failed to list archived predictions", utils.ErrInternalServer)
	}
	return utils.NewPage(predictions, page, total), nil
}
