package repo

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/fieldform/backend/internal/models"
)

const settingTwoFactorForced = "isTwoFactorForced"

// TwoFactorForced reports whether two-factor authentication is enforced for
// every account. A missing row means "not forced".
func (r *GormRepo) TwoFactorForced(ctx context.Context) (bool, error) {
	var setting models.Setting
	err := r.DB.WithContext(ctx).Where("key = ?", settingTwoFactorForced).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	forced, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return false, nil
	}
	return forced, nil
}

func (r *GormRepo) SetTwoFactorForced(ctx context.Context, forced bool) error {
	setting := models.Setting{Key: settingTwoFactorForced, Value: strconv.FormatBool(forced)}
	return r.DB.WithContext(ctx).Save(&setting).Error
}
