// Package funnels defines the tenant-scoped funnel container that scopes all
// analytics queries.
package funnels

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Funnel is a tenant's trackable visitor journey definition. Identity is
// immutable once created; sessions and events reference it by ID.
type Funnel struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	OrganizationID uint   `gorm:"index:idx_funnel_org;not null"`
	SubAccountID   uint   `gorm:"index:idx_funnel_org"`
	Name           string `gorm:"not null"`
	Slug           string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FunnelNotFoundError indicates the referenced funnel does not exist (or is
// outside the caller's tenant scope). Handlers map it to a 404 and abandon the
// request without partial computation.
type FunnelNotFoundError struct {
	FunnelID uint
}

func (e *FunnelNotFoundError) Error() string {
	return fmt.Sprintf("funnel %d not found", e.FunnelID)
}

// GetByID loads a funnel or returns FunnelNotFoundError.
func GetByID(db *gorm.DB, funnelID uint) (*Funnel, error) {
	var funnel Funnel
	err := db.First(&funnel, funnelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &FunnelNotFoundError{FunnelID: funnelID}
	}
	if err != nil {
		return nil, fmt.Errorf("error loading funnel %d: %w", funnelID, err)
	}
	return &funnel, nil
}

// ListForOrganization returns the funnels owned by an organization, newest first.
func ListForOrganization(db *gorm.DB, organizationID uint) ([]Funnel, error) {
	var results []Funnel
	err := db.Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error listing funnels: %w", err)
	}
	return results, nil
}
