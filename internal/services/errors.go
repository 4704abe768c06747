package services

import (
	"errors"

	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/storage"
)

// notFound converts a storage miss into the domain NotFoundError for entity.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
