package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var productColumns = []string{
	"id", "name", "category", "price::text", "image", "rating_average",
	"rating_count", "order_count", "available", "created_at", "updated_at",
}

type productRepository struct {
	db DB
}

func NewProductRepository(db DB) interfaces.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return inTx(ctx, r.db, func(tx Tx) error {
		query, args, err := psql.Insert("products").
			Columns("id", "name", "category", "price", "image", "rating_average",
				"rating_count", "order_count", "available", "created_at", "updated_at").
			Values(p.ID, p.Name, string(p.Category), p.Price.String(), p.Image, p.Rating.Average,
				p.Rating.Count, p.OrderCount, p.Available, p.CreatedAt, p.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build product insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return mapError(err, fmt.Sprintf("product %q", p.Name))
		}
		return writeIngredients(ctx, tx, p)
	})
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	products, err := r.find(ctx, psql.Select(productColumns...).From("products").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.NotFound("product %s not found", id)
	}
	return products[0], nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, psql.Select(productColumns...).From("products").Where(sq.Eq{"id": ids}))
}

func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.find(ctx, psql.Select(productColumns...).From("products").OrderBy("order_count DESC", "name ASC"))
}

func (r *productRepository) ListUsingStock(ctx context.Context, stockID string) ([]*domain.Product, error) {
	builder := psql.Select(productColumns...).From("products").
		Where(sq.Expr("id IN (SELECT product_id FROM product_ingredients WHERE stock_id = ?)", stockID)).
		OrderBy("name ASC")
	return r.find(ctx, builder)
}

func (r *productRepository) find(ctx context.Context, builder sq.SelectBuilder) ([]*domain.Product, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build products query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "products")
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var (
			p        domain.Product
			category string
			price    string
		)
		if err := rows.Scan(&p.ID, &p.Name, &category, &price, &p.Image, &p.Rating.Average,
			&p.Rating.Count, &p.OrderCount, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Category = domain.Category(category)
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse price of product %s: %w", p.ID, err)
		}
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "products")
	}

	if err := r.loadIngredients(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) loadIngredients(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Product, len(products))
	ids := make([]string, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query, args, err := psql.Select("product_id", "stock_id", "quantity").
		From("product_ingredients").
		Where(sq.Eq{"product_id": ids}).
		OrderBy("product_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ingredients query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return mapError(err, "ingredients")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			ing       domain.Ingredient
		)
		if err := rows.Scan(&productID, &ing.StockID, &ing.Quantity); err != nil {
			return fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Ingredients = append(p.Ingredients, ing)
		}
	}
	return mapError(rows.Err(), "ingredients")
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	return inTx(ctx, r.db, func(tx Tx) error {
		query, args, err := psql.Update("products").
			Set("name", p.Name).
			Set("category", string(p.Category)).
			Set("price", p.Price.String()).
			Set("image", p.Image).
			Set("available", p.Available).
			Set("updated_at", p.UpdatedAt).
			Where(sq.Eq{"id": p.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build product update query: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return mapError(err, fmt.Sprintf("product %q", p.Name))
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFound("product %s not found", p.ID)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM product_ingredients WHERE product_id = $1`, p.ID); err != nil {
			return mapError(err, "ingredients")
		}
		return writeIngredients(ctx, tx, p)
	})
}

func writeIngredients(ctx context.Context, tx Tx, p *domain.Product) error {
	if len(p.Ingredients) == 0 {
		return nil
	}
	builder := psql.Insert("product_ingredients").Columns("product_id", "stock_id", "quantity", "position")
	for i, ing := range p.Ingredients {
		builder = builder.Values(p.ID, ing.StockID, ing.Quantity, i)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ingredients insert query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return mapError(err, "ingredients")
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "product "+id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product %s not found", id)
	}
	return nil
}

func (r *productRepository) UpdateRating(ctx context.Context, id string, prev, next domain.Rating) error {
	query, args, err := psql.Update("products").
		Set("rating_average", next.Average).
		Set("rating_count", next.Count).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "rating_count": prev.Count}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rating update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "product "+id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return domain.Conflict("rating of product %s changed concurrently", id)
}

func (r *productRepository) IncrementOrderCount(ctx context.Context, id string, by int) error {
	return incrementOrderCount(ctx, r.db, id, by)
}

func incrementOrderCount(ctx context.Context, q querier, id string, by int) error {
	tag, err := q.Exec(ctx, `UPDATE products SET order_count = order_count + $2 WHERE id = $1`, id, by)
	if err != nil {
		return mapError(err, "product "+id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product %s not found", id)
	}
	return nil
}
