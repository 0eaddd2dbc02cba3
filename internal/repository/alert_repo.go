package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/group_sub_server/internal/model"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateIfAbsent 写入提醒；(group_id, threshold, day) 已存在时不写入并返回 false
func (r *AlertRepository) CreateIfAbsent(alert *model.ExpiryAlert) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(alert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *AlertRepository) MarkDelivered(id int64) error {
	return r.db.Model(&model.ExpiryAlert{}).Where("id = ?", id).Update("delivered", true).Error
}

// List groupID 为 0 时返回所有群组
func (r *AlertRepository) List(groupID int64, limit int) ([]*model.ExpiryAlert, error) {
	var alerts []*model.ExpiryAlert
	query := r.db.Order("id DESC")
	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) Trim(keep int) error {
	return trimOldest(r.db, &model.ExpiryAlert{}, keep)
}

// GetTracker 读取计数器，不存在时创建
func (r *AlertRepository) GetTracker() (*model.ExpiryTracker, error) {
	tracker := model.ExpiryTracker{ID: model.TrackerID}
	err := r.db.Where("id = ?", model.TrackerID).FirstOrCreate(&tracker).Error
	if err != nil {
		return nil, err
	}
	return &tracker, nil
}

func (r *AlertRepository) SaveTracker(tracker *model.ExpiryTracker) error {
	tracker.ID = model.TrackerID
	return r.db.Save(tracker).Error
}
