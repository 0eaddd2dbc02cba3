package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/group_sub_server/internal/model"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) GetByGroupID(groupID int64) (*model.Entitlement, error) {
	var ent model.Entitlement
	err := r.db.Where("group_id = ?", groupID).First(&ent).Error
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

// Upsert 按 group_id 整条写入
func (r *EntitlementRepository) Upsert(ent *model.Entitlement) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		UpdateAll: true,
	}).Create(ent).Error
}

// ListActive 只加载巡检需要的列，单条记录的 last_event 损坏不影响整体加载
func (r *EntitlementRepository) ListActive() ([]*model.Entitlement, error) {
	var ents []*model.Entitlement
	err := r.db.Select("group_id", "plan_id", "active", "expires_at").
		Where("active = ?", true).
		Order("group_id ASC").
		Find(&ents).Error
	return ents, err
}

func (r *EntitlementRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Entitlement{}).Count(&count).Error
	return count, err
}
