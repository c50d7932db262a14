// Package repository implements the service stores on gorm.
package repository

import (
	"errors" // Sentinel errors

	"group_fund/internal/domain"  // Importing domain models
	"group_fund/internal/service" // Store ports

	"gorm.io/gorm" // GORM ORM library
)

// translate maps gorm sentinels to domain errors; other errors pass through.
func translate(op string, err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(op, "%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.AlreadyExists(op, "%s already exists", what)
	default:
		return err
	}
}

var (
	_ service.ContributionStore = (*ContributionRepository)(nil)
	_ service.PayoutStore       = (*PayoutRepository)(nil)
	_ service.VoteStore         = (*VoteRepository)(nil)
)
