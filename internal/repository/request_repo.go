package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/model"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *model.PaymentRequest) error {
	return r.db.Create(req).Error
}

func (r *RequestRepository) GetByID(id int64) (*model.PaymentRequest, error) {
	var req model.PaymentRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPending 按创建时间升序返回待审批请求
func (r *RequestRepository) ListPending() ([]*model.PaymentRequest, error) {
	var reqs []*model.PaymentRequest
	err := r.db.Where("status = ?", model.RequestStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&reqs).Error
	return reqs, err
}

// MarkProcessed 仅当请求仍为 pending 时写入终态，返回受影响行数
func (r *RequestRepository) MarkProcessed(req *model.PaymentRequest) (int64, error) {
	result := r.db.Model(&model.PaymentRequest{}).
		Where("id = ? AND status = ?", req.ID, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        req.Status,
			"processed_by":  req.ProcessedBy,
			"processed_at":  req.ProcessedAt,
			"reason":        req.Reason,
			"duration_days": req.DurationDays,
		})
	return result.RowsAffected, result.Error
}

type statusCount struct {
	Status string
	Count  int64
}

// CountByStatus 按状态统计请求数
func (r *RequestRepository) CountByStatus() (map[string]int64, error) {
	var rows []statusCount
	err := r.db.Model(&model.PaymentRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
