package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/model"
)

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(op *model.Operator) error {
	return r.db.Create(op).Error
}

func (r *OperatorRepository) GetByID(id int64) (*model.Operator, error) {
	var op model.Operator
	err := r.db.Where("id = ?", id).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *OperatorRepository) GetByUsername(username string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.Where("username = ?", username).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *OperatorRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Operator{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *OperatorRepository) UpdateLastLogin(id int64, at time.Time) error {
	return r.db.Model(&model.Operator{}).Where("id = ?", id).Update("last_login_at", at).Error
}
