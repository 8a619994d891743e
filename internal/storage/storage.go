// Package storage реализует шлюз к PostgreSQL: пул соединений, единицу работы
// (одна транзакция на область запроса) и одноразовые операции над ней.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX общий интерфейс транзакции и пула, над которым выполняются операции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Runner операция, которую можно выполнить в составе пакета.
type Runner interface {
	Run(ctx context.Context, db DBTX) error
}

// Storage инкапсулирует пул соединений с PostgreSQL.
type Storage struct {
	Pool *pgxpool.Pool
}

// New создаёт пул соединений и проверяет доступность базы.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	pool, err := pgxpool.New(ctx, storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.Pool.Close()
}

// Session выполняет fn в одной транзакции.
//
// Транзакция фиксируется, только если fn вернула nil и контекст не отменён.
// Ошибка, паника или отмена контекста приводят к откату.
func (s *Storage) Session(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	const op = "storage.Session"

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			// контекст запроса может быть уже отменён, откат выполняем независимо от него
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return nil
}

// Execute выполняет операции строго в переданном порядке в одной транзакции.
// Либо фиксируются все, либо ни одна.
func (s *Storage) Execute(ctx context.Context, ops ...Runner) error {
	return s.Session(ctx, func(ctx context.Context, tx DBTX) error {
		for _, o := range ops {
			if err := o.Run(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// Do выполняет одну операцию в отдельной транзакции и возвращает её результат.
func Do[T any](ctx context.Context, s *Storage, op *Op[T]) (T, error) {
	if err := s.Execute(ctx, op); err != nil {
		var zero T
		return zero, err
	}
	return op.Result(), nil
}
