package inventory

import (
	"context"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

// Service is the administrative face of the stock ledger.
type Service struct {
	stocks   interfaces.StockRepository
	products interfaces.ProductRepository
	guard    *access.Guard
	logger   logger.Logger
}

func NewService(stocks interfaces.StockRepository, products interfaces.ProductRepository, guard *access.Guard, logger logger.Logger) *Service {
	return &Service{
		stocks:   stocks,
		products: products,
		guard:    guard,
		logger:   logger,
	}
}

func (s *Service) ListStocks(ctx context.Context, p domain.Principal) ([]*domain.Stock, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.stocks.List(ctx)
}

func (s *Service) GetStock(ctx context.Context, p domain.Principal, id string) (*domain.Stock, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.stocks.FindByID(ctx, id)
}

func (s *Service) CreateStock(ctx context.Context, p domain.Principal, cmd interfaces.StockCommand) (*domain.Stock, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stock := &domain.Stock{CreatedAt: now}
	applyCommand(stock, cmd, now)
	if err := stock.Validate(); err != nil {
		return nil, err
	}

	if err := s.stocks.Create(ctx, stock); err != nil {
		return nil, err
	}

	s.logger.Info("stock_created", "Stock item created", "", map[string]interface{}{
		"stock_id": stock.ID,
		"name":     stock.Name,
	})
	return stock, nil
}

func (s *Service) UpdateStock(ctx context.Context, p domain.Principal, id string, cmd interfaces.StockCommand) (*domain.Stock, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}

	stock, err := s.stocks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCommand(stock, cmd, time.Now().UTC())
	if err := stock.Validate(); err != nil {
		return nil, err
	}
	if err := s.stocks.Update(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// DeleteStock refuses while any product recipe still uses the stock.
func (s *Service) DeleteStock(ctx context.Context, p domain.Principal, id string) error {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return err
	}

	users, err := s.products.ListUsingStock(ctx, id)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		names := make([]string, len(users))
		for i, prod := range users {
			names[i] = prod.Name
		}
		return domain.Validation("cannot delete stock used by %d products", len(users)).WithDetails(names...)
	}

	if err := s.stocks.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("stock_deleted", "Stock item deleted", "", map[string]interface{}{"stock_id": id})
	return nil
}

func (s *Service) Restock(ctx context.Context, p domain.Principal, id string, amount float64) (*domain.Stock, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.Validation("restock amount must be positive")
	}

	stock, err := s.stocks.Adjust(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock_restocked", "Stock replenished", "", map[string]interface{}{
		"stock_id": id,
		"amount":   amount,
		"quantity": stock.Quantity,
	})
	return stock, nil
}

func applyCommand(stock *domain.Stock, cmd interfaces.StockCommand, now time.Time) {
	stock.Name = cmd.Name
	stock.Quantity = cmd.Quantity
	stock.Unit = cmd.Unit
	stock.CostPerUnit = cmd.CostPerUnit
	stock.MinThreshold = cmd.MinThreshold
	stock.Supplier = cmd.Supplier
	stock.Category = cmd.Category
	stock.UpdatedAt = now
}
