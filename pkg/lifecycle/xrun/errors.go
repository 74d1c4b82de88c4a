package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而终止。
	ErrSignal = errors.New("xrun: received signal")
	// ErrNilFunc 服务或停止钩子为 nil。
	ErrNilFunc = errors.New("xrun: nil function")
)

// SignalError 记录触发终止的信号。errors.Is(err, ErrSignal) 为 true。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "xrun: received signal <nil>"
	}
	return fmt.Sprintf("xrun: received signal %s", e.Signal)
}

// Is 支持 errors.Is(err, ErrSignal)。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}

// Unwrap 返回 ErrSignal。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
