package index

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch 向量维度与索引维度不一致
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrInvalidSnapshot 快照内容不满足索引不变量
var ErrInvalidSnapshot = errors.New("invalid index snapshot")

// DimensionMismatchError 记录期望维度与实际维度
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Actual)
}

// Is 使 errors.Is(err, ErrDimensionMismatch) 成立
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
