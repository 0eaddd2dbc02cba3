package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/repository"
)

type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindAlreadyProcessed ErrorKind = "already_processed"
	KindInvalidPlan      ErrorKind = "invalid_plan"
	KindInvalidInput     ErrorKind = "invalid_input"
	KindStorageFailure   ErrorKind = "storage_failure"
	KindPartialApplyRisk ErrorKind = "partial_apply_risk"
)

// Error 业务错误，errors.Is 按 Kind 匹配
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyProcessed = &Error{Kind: KindAlreadyProcessed}
	ErrInvalidPlan      = &Error{Kind: KindInvalidPlan}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrStorageFailure   = &Error{Kind: KindStorageFailure}
	ErrPartialApplyRisk = &Error{Kind: KindPartialApplyRisk}
)

// KindOf 返回错误类别，未分类的错误视为存储错误
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// PublicMessage 返回可以直接展示给运营的简短消息
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ""
}

func newError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// storageError 把 repository 返回的错误转为业务错误
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Message: "record not found", Err: err}
	}
	if errors.Is(err, repository.ErrCommitUncertain) {
		return &Error{Kind: KindPartialApplyRisk, Op: op, Message: "transition outcome unknown", Err: err}
	}
	return &Error{Kind: KindStorageFailure, Op: op, Message: "storage failure", Err: err}
}
