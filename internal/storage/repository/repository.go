// Package repository содержит операции над PostgreSQL для профилей,
// способов связи, планов подписки, подписок, платёжных данных и статей.
//
// Каждая функция связывает аргументы и возвращает одноразовую операцию
// *storage.Op, которую выполняет вызывающий код в своей единице работы:
//
//	id, err := repository.CreateUserProfile(p).Execute(ctx, tx)
//
// Поиск, не нашедший строк, возвращает nil без ошибки.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/magabrotheeeer/vocal/internal/storage"
)

type scanner interface {
	Dest() []any
}

// collect сканирует все строки выборки в срез значений R.
func collect[R any, P interface {
	*R
	scanner
}](rows pgx.Rows) ([]R, error) {
	defer rows.Close()
	var out []R
	for rows.Next() {
		var r R
		if err := rows.Scan(P(&r).Dest()...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func query[R any, P interface {
	*R
	scanner
}](ctx context.Context, db storage.DBTX, sql string, args ...any) ([]R, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect[R, P](rows)
}
