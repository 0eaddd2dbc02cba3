package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/repository"
)

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"record not found", gorm.ErrRecordNotFound, KindNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound},
		{"commit uncertain", fmt.Errorf("%w: commit failed", repository.ErrCommitUncertain), KindPartialApplyRisk},
		{"io error", errors.New("disk full"), KindStorageFailure},
		{"business error passes through", newError(KindAlreadyProcessed, "op", "Request already approved"), KindAlreadyProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageError("test.op", tt.err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.True(t, errors.Is(err, &Error{Kind: tt.want}))
		})
	}

	assert.NoError(t, storageError("test.op", nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindStorageFailure, KindOf(errors.New("plain")))
	assert.Equal(t, KindInvalidPlan, KindOf(fmt.Errorf("wrap: %w", ErrInvalidPlan)))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindStorageFailure, Op: "approval.approve", Message: "storage failure", Err: errors.New("disk full")}
	assert.Equal(t, "approval.approve: storage failure: disk full", err.Error())
	assert.Equal(t, "storage failure", PublicMessage(err))
	assert.Equal(t, "", PublicMessage(errors.New("plain")))
	assert.Equal(t, "not_found", ErrNotFound.Error())
}
