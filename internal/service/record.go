package service

import (
	"context"
	"errors"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// ErrTaskMismatch is returned when a service record references a task of
// another asset.
var ErrTaskMismatch = errors.New("task does not belong to asset")

// CreateServiceRecord appends a service record to one of the caller's assets.
func (s *Service) CreateServiceRecord(ctx context.Context, claims *models.Claims, assetID string, record *models.ServiceRecord) error {
	asset, err := s.GetAsset(ctx, claims, assetID)
	if err != nil {
		return err
	}
	if record.TaskID != nil {
		task, err := s.getTask(ctx, claims, record.TaskID.Hex())
		if err != nil {
			return err
		}
		if task.AssetID != asset.ID {
			return ErrTaskMismatch
		}
	}
	record.AssetID = asset.ID
	record.OwnerID = asset.OwnerID
	record.ServiceDate = record.ServiceDate.UTC()
	return s.serviceRecords.InsertServiceRecord(ctx, record)
}

// ListServiceRecords lists the service history of one of the caller's assets.
func (s *Service) ListServiceRecords(ctx context.Context, claims *models.Claims, assetID string) ([]models.ServiceRecord, error) {
	if _, err := s.GetAsset(ctx, claims, assetID); err != nil {
		return nil, err
	}
	return s.serviceRecords.FindServiceRecordsByAsset(ctx, assetID)
}

// GetServiceRecord returns a service record owned by the caller.
func (s *Service) GetServiceRecord(ctx context.Context, claims *models.Claims, id string) (*models.ServiceRecord, error) {
	record, err := s.serviceRecords.FindServiceRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(claims, record.OwnerID); err != nil {
		return nil, err
	}
	return record, nil
}
