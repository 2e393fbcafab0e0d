package services

import (
	"context"
	"fmt"
	"log/slog"

	"deployer/internal/models"
)

// DeploymentSaver persists deployment records
type DeploymentSaver interface {
	SaveDeployment(ctx context.Context, deployment *models.Deployment) error
}

// RecordService stores every completed deployment
type RecordService struct {
	repository DeploymentSaver
}

// NewRecordService creates a new RecordService instance
func NewRecordService(repository DeploymentSaver) *RecordService {
	return &RecordService{
		repository: repository,
	}
}

// Process saves the deployment record
func (s *RecordService) Process(ctx context.Context, deployment *models.Deployment) error {
	if err := s.repository.SaveDeployment(ctx, deployment); err != nil {
		return fmt.Errorf("failed to record deployment %s: %w", deployment.ID, err)
	}

	slog.Debug("RecordService: deployment recorded",
		"id", deployment.ID,
		"contract_id", deployment.ContractID,
	)
	return nil
}

// Name returns the service name
func (s *RecordService) Name() string {
	return "RecordService"
}
