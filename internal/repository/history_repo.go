package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/model"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) AppendApproval(record *model.ApprovalRecord) error {
	return r.db.Create(record).Error
}

// ListApprovals 最新的在前
func (r *HistoryRepository) ListApprovals(limit int) ([]*model.ApprovalRecord, error) {
	var records []*model.ApprovalRecord
	query := r.db.Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

func (r *HistoryRepository) CountApprovals() (int64, error) {
	var count int64
	err := r.db.Model(&model.ApprovalRecord{}).Count(&count).Error
	return count, err
}

func (r *HistoryRepository) TrimApprovals(keep int) error {
	return trimOldest(r.db, &model.ApprovalRecord{}, keep)
}

func (r *HistoryRepository) AppendCancellation(record *model.CancellationRecord) error {
	return r.db.Create(record).Error
}

// ListCancellations groupID 为 0 时返回所有群组
func (r *HistoryRepository) ListCancellations(groupID int64, limit int) ([]*model.CancellationRecord, error) {
	var records []*model.CancellationRecord
	query := r.db.Order("id DESC")
	if groupID != 0 {
		query = query.Where("group_id = ?", groupID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

func (r *HistoryRepository) TrimCancellations(keep int) error {
	return trimOldest(r.db, &model.CancellationRecord{}, keep)
}
