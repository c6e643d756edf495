package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_foodcart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, user_id, store_id, user_name, user_image_url, order_time, total_price, status,
	payment_method, payment_status, delivery_date, deliver_to, food_items, vnpay_transaction_id, notes,
	cart_version, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "foodcart_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order, events ...domain.OrderEvent) error {
	itemsJSON, err := json.Marshal(order.FoodItems)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.StoreID,
		order.UserName,
		order.UserImageURL,
		order.OrderTime,
		order.TotalPrice,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.DeliveryDate,
		order.DeliverTo,
		itemsJSON,
		order.VNPayTransactionID,
		order.Notes,
		order.CartVersion,
		order.CreatedAt,
		order.UpdatedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	for _, event := range events {
		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, event domain.OrderEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_events (id, order_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Payload.OrderID, event.Type, payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrderForUser(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrOrderNotFound
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	return scanOrder(r.db.QueryRowContext(ctx, query, orderID, userID))
}

func (r *PostgresRepository) GetOrderForStore(ctx context.Context, orderID, storeID string) (*domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrOrderNotFound
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND store_id = $2`
	return scanOrder(r.db.QueryRowContext(ctx, query, orderID, storeID))
}

func (r *PostgresRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY order_time DESC, created_at DESC`
	return r.queryOrders(ctx, query, userID)
}

func (r *PostgresRepository) ListOrdersByStoreID(ctx context.Context, storeID string, filter domain.StoreOrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE store_id = $1`
	switch filter {
	case domain.StoreOrderFilterPending:
		query += ` AND status = 'PENDING'`
	case domain.StoreOrderFilterProcessing:
		query += ` AND status <> 'PENDING'`
	}
	query += ` ORDER BY order_time DESC, created_at DESC`
	return r.queryOrders(ctx, query, storeID)
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON []byte
	var deliveryDate sql.NullTime
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.StoreID,
		&order.UserName,
		&order.UserImageURL,
		&order.OrderTime,
		&order.TotalPrice,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&deliveryDate,
		&order.DeliverTo,
		&itemsJSON,
		&order.VNPayTransactionID,
		&order.Notes,
		&order.CartVersion,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if deliveryDate.Valid {
		order.DeliveryDate = &deliveryDate.Time
	}
	if err := json.Unmarshal(itemsJSON, &order.FoodItems); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	return &order, nil
}

func (r *PostgresRepository) UpdateStatusGuard(ctx context.Context, change StatusChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2, delivery_date = COALESCE($3, delivery_date)
		 WHERE id = $4 AND store_id = $5 AND status = $6`,
		change.To, change.At, change.DeliveryDate, change.OrderID, change.StoreID, change.From)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStatusMismatch
	}

	if err := insertEvent(ctx, tx, change.Event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status change: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, payload, created_at FROM order_events
		 WHERE published_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query order events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.OrderEvent, 0)
	for rows.Next() {
		var event domain.OrderEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.Type, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		if err := json.Unmarshal(payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal event payload: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkEventPublished(ctx context.Context, event *domain.OrderEvent) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_events SET published_at = NOW() WHERE id = $1`, event.ID)
	if err != nil {
		return fmt.Errorf("mark event %s published: %w", event.ID, err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
