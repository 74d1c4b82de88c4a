package xworker

import "errors"

var (
	// ErrNotDeployed worker 声明的角色与本节点角色没有交集，保持不激活。
	ErrNotDeployed = errors.New("xworker: not deployed on this node")
	// ErrAlreadyStarted 重复启动。
	ErrAlreadyStarted = errors.New("xworker: already started")
	// ErrStopped worker 已停止。
	ErrStopped = errors.New("xworker: stopped")

	ErrEmptyName    = errors.New("xworker: worker name is empty")
	ErrNilSchedule  = errors.New("xworker: schedule is nil")
	ErrNilJob       = errors.New("xworker: job is nil")
	ErrNilState     = errors.New("xworker: state backend is nil")
	ErrNilExecutor  = errors.New("xworker: executor is nil")
	ErrNilIDs       = errors.New("xworker: id generator is nil")
	ErrNilSource    = errors.New("xworker: tick source is nil")
	ErrNilMap       = errors.New("xworker: replica map is nil")
	ErrDuplicateJob = errors.New("xworker: job already registered")
	ErrUnknownJob   = errors.New("xworker: unknown job")
	ErrLockNotHeld  = errors.New("xworker: lock not held at release")
	ErrEmptyRunID   = errors.New("xworker: run id is empty")
)
