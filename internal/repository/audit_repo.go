package repository

import (
	"chainfund/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(a *models.AuditLog) error {
	return r.db.Create(a).Error
}

func (r *AuditLogRepository) ListByResource(resource, resourceID string, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	err := r.db.Where("resource = ? AND resource_id = ?", resource, resourceID).
		Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
