package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// normalize folds driver-specific unique violations into gorm.ErrDuplicatedKey
// for dialectors that do not translate them.
func normalize(err error) error {
	if err == nil || errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key") {
		return errors.Join(gorm.ErrDuplicatedKey, err)
	}
	return err
}
