package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/group_sub_server/internal/model"
)

type FeatureRepository struct {
	db *gorm.DB
}

func NewFeatureRepository(db *gorm.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

func (r *FeatureRepository) Get(groupID int64, feature string) (*model.FeatureGrant, error) {
	var grant model.FeatureGrant
	err := r.db.Where("group_id = ? AND feature = ?", groupID, feature).First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *FeatureRepository) ListByGroup(groupID int64) ([]*model.FeatureGrant, error) {
	var grants []*model.FeatureGrant
	err := r.db.Where("group_id = ?", groupID).Order("feature ASC").Find(&grants).Error
	return grants, err
}

// ListEnabled 返回群组已开启的功能名
func (r *FeatureRepository) ListEnabled(groupID int64) ([]string, error) {
	var features []string
	err := r.db.Model(&model.FeatureGrant{}).
		Where("group_id = ? AND enabled = ?", groupID, true).
		Order("feature ASC").
		Pluck("feature", &features).Error
	return features, err
}

func (r *FeatureRepository) Upsert(grant *model.FeatureGrant) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "feature"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "changed_by", "changed_at"}),
	}).Create(grant).Error
}

func (r *FeatureRepository) AppendChange(change *model.FeatureChange) error {
	return r.db.Create(change).Error
}

// ListChanges groupID 为 0 时返回所有群组
func (r *FeatureRepository) ListChanges(groupID int64, limit int) ([]*model.FeatureChange, error) {
	var changes []*model.FeatureChange
	query := r.db.Order("id DESC")
	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&changes).Error
	return changes, err
}

func (r *FeatureRepository) TrimChanges(keep int) error {
	return trimOldest(r.db, &model.FeatureChange{}, keep)
}
