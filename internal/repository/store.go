package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrCommitUncertain 提交或回滚本身失败，事务结果未知
var ErrCommitUncertain = errors.New("transaction outcome unknown")

// Store 聚合所有 repository，便于在同一事务内使用
type Store struct {
	db           *gorm.DB
	Plans        *PlanRepository
	Requests     *RequestRepository
	Entitlements *EntitlementRepository
	Features     *FeatureRepository
	Alerts       *AlertRepository
	History      *HistoryRepository
	Operators    *OperatorRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Plans:        NewPlanRepository(db),
		Requests:     NewRequestRepository(db),
		Entitlements: NewEntitlementRepository(db),
		Features:     NewFeatureRepository(db),
		Alerts:       NewAlertRepository(db),
		History:      NewHistoryRepository(db),
		Operators:    NewOperatorRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithContext 返回绑定 ctx 的 Store
func (s *Store) WithContext(ctx context.Context) *Store {
	return NewStore(s.db.WithContext(ctx))
}

// Atomic 在单个事务中执行 fn，fn 返回错误时回滚。
// 回滚或提交失败时返回 ErrCommitUncertain。
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(NewStore(tx)); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("%w: rollback failed: %v (cause: %v)", ErrCommitUncertain, rbErr, err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: commit failed: %v", ErrCommitUncertain, err)
	}
	return nil
}

// trimOldest 只保留最新的 keep 条记录
func trimOldest(db *gorm.DB, value interface{}, keep int) error {
	if keep <= 0 {
		return nil
	}

	var ids []int64
	err := db.Model(value).Order("id DESC").Offset(keep).Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return db.Where("id <= ?", ids[0]).Delete(value).Error
}
