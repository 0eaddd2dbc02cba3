package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/group_sub_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.PlanDefinition{}).Count(&count).Error
	return count, err
}

func (r *PlanRepository) CreateBatch(plans []model.PlanDefinition) error {
	return r.db.Create(&plans).Error
}

func (r *PlanRepository) GetByID(id string) (*model.PlanDefinition, error) {
	var plan model.PlanDefinition
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// List 按优先级升序返回全部套餐
func (r *PlanRepository) List() ([]*model.PlanDefinition, error) {
	var plans []*model.PlanDefinition
	err := r.db.Order("priority ASC").Order("id ASC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) Upsert(plan *model.PlanDefinition) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(plan).Error
}
