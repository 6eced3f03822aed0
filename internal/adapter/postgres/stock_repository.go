package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var stockColumns = []string{
	"id", "name", "quantity", "unit", "cost_per_unit::text", "min_threshold",
	"supplier_name", "supplier_contact", "category", "created_at", "updated_at",
}

type stockRepository struct {
	db DB
}

func NewStockRepository(db DB) interfaces.StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, st *domain.Stock) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	query, args, err := psql.Insert("stocks").
		Columns("id", "name", "quantity", "unit", "cost_per_unit", "min_threshold",
			"supplier_name", "supplier_contact", "category", "created_at", "updated_at").
		Values(st.ID, st.Name, st.Quantity, st.Unit, st.CostPerUnit.String(), st.MinThreshold,
			st.Supplier.Name, st.Supplier.Contact, st.Category, st.CreatedAt, st.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build stock insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err, fmt.Sprintf("stock %q", st.Name))
	}
	return nil
}

func (r *stockRepository) FindByID(ctx context.Context, id string) (*domain.Stock, error) {
	query, args, err := psql.Select(stockColumns...).From("stocks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stock query: %w", err)
	}
	st, err := scanStock(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "stock "+id)
	}
	return st, nil
}

func (r *stockRepository) List(ctx context.Context) ([]*domain.Stock, error) {
	query, args, err := psql.Select(stockColumns...).From("stocks").OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stocks query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "stocks")
	}
	defer rows.Close()

	var stocks []*domain.Stock
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, st)
	}
	return stocks, mapError(rows.Err(), "stocks")
}

func (r *stockRepository) Update(ctx context.Context, st *domain.Stock) error {
	st.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update("stocks").
		Set("name", st.Name).
		Set("quantity", st.Quantity).
		Set("unit", st.Unit).
		Set("cost_per_unit", st.CostPerUnit.String()).
		Set("min_threshold", st.MinThreshold).
		Set("supplier_name", st.Supplier.Name).
		Set("supplier_contact", st.Supplier.Contact).
		Set("category", st.Category).
		Set("updated_at", st.UpdatedAt).
		Where(sq.Eq{"id": st.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build stock update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, fmt.Sprintf("stock %q", st.Name))
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("stock %s not found", st.ID)
	}
	return nil
}

func (r *stockRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stocks WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "stock "+id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("stock %s not found", id)
	}
	return nil
}

func (r *stockRepository) Adjust(ctx context.Context, id string, delta float64) (*domain.Stock, error) {
	return adjustStock(ctx, r.db, id, delta)
}

// adjustStock applies delta in a single UPDATE so concurrent passes never lose a decrement.
func adjustStock(ctx context.Context, q querier, id string, delta float64) (*domain.Stock, error) {
	query, args, err := psql.Update("stocks").
		Set("quantity", sq.Expr("quantity + ?", delta)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, quantity, unit, cost_per_unit::text, min_threshold, " +
			"supplier_name, supplier_contact, category, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stock adjust query: %w", err)
	}

	st, err := scanStock(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "stock "+id)
	}
	return st, nil
}

func scanStock(row Row) (*domain.Stock, error) {
	var (
		st   domain.Stock
		cost string
	)
	err := row.Scan(&st.ID, &st.Name, &st.Quantity, &st.Unit, &cost, &st.MinThreshold,
		&st.Supplier.Name, &st.Supplier.Contact, &st.Category, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if st.CostPerUnit, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("failed to parse cost of stock %s: %w", st.ID, err)
	}
	return &st, nil
}

type reductionStore struct {
	db DB
}

func NewReductionStore(db DB) interfaces.ReductionStore {
	return &reductionStore{db: db}
}

// ApplyReduction commits every decrement and order counter of a batch together.
// Missing stock rows and products are reported, not treated as failures.
func (r *reductionStore) ApplyReduction(ctx context.Context, batch interfaces.ReductionBatch) (*interfaces.ReductionResult, error) {
	var res *interfaces.ReductionResult

	err := inTx(ctx, r.db, func(tx Tx) error {
		res = &interfaces.ReductionResult{}
		latest := make(map[string]*domain.Stock)
		var order []string

		for _, d := range batch.Decrements {
			st, err := adjustStock(ctx, tx, d.StockID, -d.Amount)
			if domain.IsKind(err, domain.KindNotFound) {
				res.MissingStocks = append(res.MissingStocks, d.StockID)
				continue
			}
			if err != nil {
				return err
			}
			if _, ok := latest[st.ID]; !ok {
				order = append(order, st.ID)
			}
			latest[st.ID] = st
		}
		for _, id := range order {
			res.Updated = append(res.Updated, latest[id])
		}

		productIDs := make([]string, 0, len(batch.OrderCounts))
		for id := range batch.OrderCounts {
			productIDs = append(productIDs, id)
		}
		sort.Strings(productIDs)
		for _, id := range productIDs {
			err := incrementOrderCount(ctx, tx, id, batch.OrderCounts[id])
			if domain.IsKind(err, domain.KindNotFound) {
				res.MissingProducts = append(res.MissingProducts, id)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
