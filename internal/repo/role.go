package repo

import (
	"context"

	"github.com/fieldform/backend/internal/models"
)

func (r *GormRepo) RolesForUser(ctx context.Context, userID uint) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id asc").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRepo) UserClaims(ctx context.Context, userID uint) ([]models.UserClaim, error) {
	var claims []models.UserClaim
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *GormRepo) RoleClaims(ctx context.Context, roleID uint) ([]models.RoleClaim, error) {
	var claims []models.RoleClaim
	if err := r.DB.WithContext(ctx).Where("role_id = ?", roleID).Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *GormRepo) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{Name: name}
	tx := r.DB.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &role, nil
}

func (r *GormRepo) AssignRole(ctx context.Context, userID, roleID uint) error {
	link := models.UserRole{UserID: userID, RoleID: roleID}
	return r.DB.WithContext(ctx).Where(&link).FirstOrCreate(&link).Error
}
