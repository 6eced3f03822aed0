package catalog

import (
	"context"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

const (
	topOrderedLimit = 10
	// rateAttempts bounds retries when concurrent ratings race on the same product.
	rateAttempts = 3
)

// statuses whose orders count towards a customer's favourites
var countedStatuses = []domain.Status{
	domain.StatusDelivered,
	domain.StatusReady,
	domain.StatusOutForDelivery,
}

type Service struct {
	products interfaces.ProductRepository
	stocks   interfaces.StockRepository
	orders   interfaces.OrderRepository
	users    interfaces.UserRepository
	guard    *access.Guard
	logger   logger.Logger
}

func NewService(
	products interfaces.ProductRepository,
	stocks interfaces.StockRepository,
	orders interfaces.OrderRepository,
	users interfaces.UserRepository,
	guard *access.Guard,
	logger logger.Logger,
) *Service {
	return &Service{
		products: products,
		stocks:   stocks,
		orders:   orders,
		users:    users,
		guard:    guard,
		logger:   logger,
	}
}

// ListProducts returns the menu, most ordered first.
func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Principal, cmd interfaces.ProductCommand) (*domain.Product, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{CreatedAt: now}
	applyCommand(product, cmd, now)
	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product_created", "Product created", "", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Principal, id string, cmd interfaces.ProductCommand) (*domain.Product, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCommand(product, cmd, time.Now().UTC())
	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, p domain.Principal, id string) error {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

// RateProduct folds a customer rating into the product's running average.
func (s *Service) RateProduct(ctx context.Context, p domain.Principal, id string, rating float64) (*domain.Product, error) {
	if _, err := s.guard.Require(ctx, p); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := product.Rating.Rate(rating)
		if err != nil {
			return nil, err
		}

		err = s.products.UpdateRating(ctx, id, product.Rating, next)
		if err == nil {
			product.Rating = next
			return product, nil
		}
		if !domain.IsKind(err, domain.KindConflict) || attempt == rateAttempts {
			return nil, err
		}
	}
}

// TopOrdered lists the customer's ten most ordered products across orders
// that reached the kitchen or beyond.
func (s *Service) TopOrdered(ctx context.Context, p domain.Principal, customerID string) ([]interfaces.TopProduct, error) {
	caller, err := s.guard.RequireSelf(ctx, p, customerID)
	if err != nil {
		return nil, err
	}
	if caller.ID != customerID {
		if _, err := s.users.FindByID(ctx, customerID); err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.NotFound("customer %s not found", customerID)
			}
			return nil, err
		}
	}

	counts, err := s.orders.TopProducts(ctx, customerID, countedStatuses, topOrderedLimit)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []interfaces.TopProduct{}, nil
	}

	ids := make([]string, len(counts))
	for i, c := range counts {
		ids[i] = c.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Product, len(products))
	for _, prod := range products {
		byID[prod.ID] = prod
	}

	out := make([]interfaces.TopProduct, 0, len(counts))
	for _, c := range counts {
		prod, ok := byID[c.ProductID]
		if !ok {
			continue
		}
		out = append(out, interfaces.TopProduct{Product: prod, Quantity: c.Quantity})
	}
	return out, nil
}

// validate checks catalog rules and that every ingredient refers to known stock.
func (s *Service) validate(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	var missing []string
	for _, ing := range product.Ingredients {
		if _, err := s.stocks.FindByID(ctx, ing.StockID); err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				missing = append(missing, ing.StockID)
				continue
			}
			return err
		}
	}
	if len(missing) > 0 {
		return domain.Validation("unknown ingredient stock").WithDetails(missing...)
	}
	return nil
}

func applyCommand(product *domain.Product, cmd interfaces.ProductCommand, now time.Time) {
	product.Name = cmd.Name
	product.Category = domain.Category(cmd.Category)
	product.Price = cmd.Price
	product.Image = cmd.Image
	product.Available = cmd.Available
	product.Ingredients = cmd.Ingredients
	product.UpdatedAt = now
}
