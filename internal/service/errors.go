package service

import (
	"errors"

	"snapshare/internal/models"
	"snapshare/internal/repository"

	"gorm.io/gorm"
)

// translate maps repository errors onto the AppError taxonomy. resource and
// id only feed the not-found message.
func translate(err error, resource string, id any) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError(resource + " already exists")
	case errors.Is(err, repository.ErrInconsistent):
		return models.NewInconsistencyError(resource+" was left in an inconsistent state; retry the request", err)
	default:
		// Includes cancelled and timed-out calls.
		return models.NewBackendUnavailableError(err)
	}
}

func isNotFound(err error) bool {
	return models.ErrorCode(err) == models.CodeNotFound
}
