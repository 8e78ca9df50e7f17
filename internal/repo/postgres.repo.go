package repo

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Zalo-MiniApp/checkout-sdk-server/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepo là biến thể SQL của order store, chọn bằng DATABASE_URL.
// Phần info của đơn hàng nằm trong một cột JSONB để giữ đúng shape trả về
// cho client.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Migrate chạy các migration nhúng sẵn lên database trỏ bởi dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepo) All(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, zalo_user_id, checkout_sdk_order_id, mini_app_id, linked_at, info FROM orders ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, zalo_user_id, checkout_sdk_order_id, mini_app_id, linked_at, info FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// giữ khóa bảng cho tới khi commit để COUNT và INSERT là một bước:
	// không có hai transaction nào cấp cùng một id
	if _, err := tx.ExecContext(ctx, "LOCK TABLE orders IN EXCLUSIVE MODE"); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		return err
	}
	order.ID = count + 1
	order.Info.ID = order.ID

	info, err := json.Marshal(order.Info)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, zalo_user_id, checkout_sdk_order_id, mini_app_id, linked_at, info) VALUES ($1, $2, $3, $4, $5, $6)",
		order.ID, order.ZaloUserID, order.CheckoutSdkOrderID, order.MiniAppID, order.LinkedAt, info); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepo) Update(ctx context.Context, order *domain.Order) error {
	info, err := json.Marshal(order.Info)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET zalo_user_id = $2, checkout_sdk_order_id = $3, mini_app_id = $4, linked_at = $5, info = $6 WHERE id = $1",
		order.ID, order.ZaloUserID, order.CheckoutSdkOrderID, order.MiniAppID, order.LinkedAt, info)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepo) SetPaymentStatusIfPending(ctx context.Context, id int, status domain.PaymentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET info = jsonb_set(info, '{paymentStatus}', to_jsonb($2::text)) WHERE id = $1 AND info->>'paymentStatus' = $3",
		id, string(status), string(domain.PaymentPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	// phân biệt đơn đã terminal với đơn không tồn tại
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n)
	return n, err
}

func (r *PostgresRepo) FindPendingLinked(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, zalo_user_id, checkout_sdk_order_id, mini_app_id, linked_at, info FROM orders WHERE checkout_sdk_order_id IS NOT NULL AND info->>'paymentStatus' = $1 ORDER BY id",
		string(domain.PaymentPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order      domain.Order
		sdkOrderID sql.NullInt64
		linkedAt   sql.NullTime
		info       []byte
	)
	if err := row.Scan(&order.ID, &order.ZaloUserID, &sdkOrderID, &order.MiniAppID, &linkedAt, &info); err != nil {
		return nil, err
	}
	if sdkOrderID.Valid {
		order.CheckoutSdkOrderID = &sdkOrderID.Int64
	}
	if linkedAt.Valid {
		order.LinkedAt = &linkedAt.Time
	}
	if err := json.Unmarshal(info, &order.Info); err != nil {
		return nil, fmt.Errorf("decode order %d info: %w", order.ID, err)
	}
	return &order, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
