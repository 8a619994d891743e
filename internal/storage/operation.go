package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/magabrotheeeer/vocal/internal/apperr"
)

// Op одноразовая операция: реализация и связанные аргументы.
//
// Операцию можно создать, передать и скомпоновать до выполнения,
// но выполнить только один раз. Повторный вызов Execute считается ошибкой программиста
// и приводит к панике с apperr.ErrDoubleExecution.
type Op[T any] struct {
	name     string
	impl     func(ctx context.Context, db DBTX) (T, error)
	executed atomic.Bool
	result   T
}

// NewOp создаёт операцию с именем name.
func NewOp[T any](name string, impl func(ctx context.Context, db DBTX) (T, error)) *Op[T] {
	return &Op[T]{name: name, impl: impl}
}

// Execute выполняет операцию над db и возвращает её результат.
func (o *Op[T]) Execute(ctx context.Context, db DBTX) (T, error) {
	var zero T
	if !o.executed.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: %s", apperr.ErrDoubleExecution, o.name))
	}

	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("%s: %w", o.name, ctx.Err())
	default:
	}

	res, err := o.impl(ctx, db)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", o.name, Translate(err))
	}
	o.result = res
	return res, nil
}

// Run выполняет операцию, сохраняя результат для Result. Реализует Runner.
func (o *Op[T]) Run(ctx context.Context, db DBTX) error {
	_, err := o.Execute(ctx, db)
	return err
}

// Result возвращает результат выполненной операции.
func (o *Op[T]) Result() T {
	return o.result
}

// Executed сообщает, была ли операция уже выполнена.
func (o *Op[T]) Executed() bool {
	return o.executed.Load()
}

func (o *Op[T]) String() string {
	return fmt.Sprintf("<operation %s>", o.name)
}
