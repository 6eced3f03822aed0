// Package memory keeps every repository in process memory. It backs the
// service tests and follows the same conditional-update rules as postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	orders   map[string]*domain.Order
	products map[string]*domain.Product
	stocks   map[string]*domain.Stock
	chats    map[string]*domain.Chat
	logs     []*domain.StatusLog
	logSeq   int64
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		orders:   make(map[string]*domain.Order),
		products: make(map[string]*domain.Product),
		stocks:   make(map[string]*domain.Stock),
		chats:    make(map[string]*domain.Chat),
	}
}

func (s *Store) Orders() interfaces.OrderRepository     { return &orderRepository{s: s} }
func (s *Store) Products() interfaces.ProductRepository { return &productRepository{s: s} }
func (s *Store) Stocks() interfaces.StockRepository     { return &stockRepository{s: s} }
func (s *Store) Users() interfaces.UserRepository       { return &userRepository{s: s} }
func (s *Store) Chats() interfaces.ChatRepository       { return &chatRepository{s: s} }
func (s *Store) Reductions() interfaces.ReductionStore  { return &reductionStore{s: s} }

// AddUser seeds the user directory.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *Store) logStatus(orderID string, status domain.Status, changedBy string) {
	s.logSeq++
	s.logs = append(s.logs, &domain.StatusLog{
		ID:        s.logSeq,
		OrderID:   orderID,
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: time.Now().UTC(),
	})
}

// --- orders ---

type orderRepository struct{ s *Store }

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.Number == order.Number {
			return domain.Conflict("order number %s already exists", order.Number)
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	r.s.orders[order.ID] = cloneOrder(order)
	r.s.logStatus(order.ID, order.Status, order.CustomerID)
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.NotFound("order %s not found", id)
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) List(ctx context.Context, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.s.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *orderRepository) ListAvailable(ctx context.Context) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Order
	for _, o := range r.s.orders {
		if o.Claimable() {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.orders)), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, changedBy string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return nil, domain.Conflict("order %s changed concurrently", id)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	if !to.IsAssigned() {
		o.DelivererID = nil
		o.ChatID = nil
	}
	r.s.logStatus(id, to, changedBy)
	return cloneOrder(o), nil
}

func (r *orderRepository) Claim(ctx context.Context, orderID, delivererID string, chat *domain.Chat) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order %s not found", orderID)
	}
	if err := o.Claim(delivererID, chat.ID); err != nil {
		return nil, err
	}
	c := *chat
	r.s.chats[c.ID] = &c
	r.s.logStatus(orderID, o.Status, delivererID)
	return cloneOrder(o), nil
}

func (r *orderRepository) Release(ctx context.Context, orderID, delivererID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order not found or not assigned to you")
	}
	if err := o.Release(delivererID); err != nil {
		return nil, err
	}
	r.s.logStatus(orderID, o.Status, delivererID)
	return cloneOrder(o), nil
}

func (r *orderRepository) MarkDelivered(ctx context.Context, orderID, delivererID string, at time.Time) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order not found or not assigned to you")
	}
	if err := o.MarkDelivered(delivererID, at); err != nil {
		return nil, err
	}
	r.s.logStatus(orderID, o.Status, delivererID)
	return cloneOrder(o), nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.StatusLog
	for _, l := range r.s.logs {
		if l.OrderID == orderID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *orderRepository) TopProducts(ctx context.Context, customerID string, statuses []domain.Status, limit int) ([]interfaces.ProductCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	allowed := make(map[domain.Status]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}
	totals := make(map[string]int)
	for _, o := range r.s.orders {
		if o.CustomerID != customerID || !allowed[o.Status] {
			continue
		}
		for _, item := range o.Items {
			totals[item.ProductID] += item.Quantity
		}
	}

	out := make([]interfaces.ProductCount, 0, len(totals))
	for id, q := range totals {
		out = append(out, interfaces.ProductCount{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity == out[j].Quantity {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Quantity > out[j].Quantity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- products ---

type productRepository struct{ s *Store }

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.products {
		if existing.Name == p.Name {
			return domain.Conflict("product %q already exists", p.Name)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.NotFound("product %s not found", id)
	}
	return cloneProduct(p), nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount == out[j].OrderCount {
			return out[i].Name < out[j].Name
		}
		return out[i].OrderCount > out[j].OrderCount
	})
	return out, nil
}

func (r *productRepository) ListUsingStock(ctx context.Context, stockID string) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Product
	for _, p := range r.s.products {
		for _, ing := range p.Ingredients {
			if ing.StockID == stockID {
				out = append(out, cloneProduct(p))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return domain.NotFound("product %s not found", p.ID)
	}
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return domain.NotFound("product %s not found", id)
	}
	delete(r.s.products, id)
	return nil
}

func (r *productRepository) UpdateRating(ctx context.Context, id string, prev, next domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return domain.NotFound("product %s not found", id)
	}
	if p.Rating.Count != prev.Count {
		return domain.Conflict("rating of product %s changed concurrently", id)
	}
	p.Rating = next
	return nil
}

func (r *productRepository) IncrementOrderCount(ctx context.Context, id string, by int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return domain.NotFound("product %s not found", id)
	}
	p.OrderCount += by
	return nil
}

// --- stocks ---

type stockRepository struct{ s *Store }

func (r *stockRepository) Create(ctx context.Context, st *domain.Stock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.stocks {
		if existing.Name == st.Name {
			return domain.Conflict("stock %q already exists", st.Name)
		}
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	cp := *st
	r.s.stocks[st.ID] = &cp
	return nil
}

func (r *stockRepository) FindByID(ctx context.Context, id string) (*domain.Stock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stocks[id]
	if !ok {
		return nil, domain.NotFound("stock %s not found", id)
	}
	cp := *st
	return &cp, nil
}

func (r *stockRepository) List(ctx context.Context) ([]*domain.Stock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Stock, 0, len(r.s.stocks))
	for _, st := range r.s.stocks {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stockRepository) Update(ctx context.Context, st *domain.Stock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.stocks[st.ID]; !ok {
		return domain.NotFound("stock %s not found", st.ID)
	}
	cp := *st
	r.s.stocks[st.ID] = &cp
	return nil
}

func (r *stockRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.stocks[id]; !ok {
		return domain.NotFound("stock %s not found", id)
	}
	delete(r.s.stocks, id)
	return nil
}

func (r *stockRepository) Adjust(ctx context.Context, id string, delta float64) (*domain.Stock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stocks[id]
	if !ok {
		return nil, domain.NotFound("stock %s not found", id)
	}
	st.Quantity += delta
	st.UpdatedAt = time.Now().UTC()
	cp := *st
	return &cp, nil
}

type reductionStore struct{ s *Store }

func (r *reductionStore) ApplyReduction(ctx context.Context, batch interfaces.ReductionBatch) (*interfaces.ReductionResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res := &interfaces.ReductionResult{}
	touched := make(map[string]bool)
	for _, d := range batch.Decrements {
		st, ok := r.s.stocks[d.StockID]
		if !ok {
			res.MissingStocks = append(res.MissingStocks, d.StockID)
			continue
		}
		st.Quantity -= d.Amount
		touched[d.StockID] = true
	}
	for id := range touched {
		cp := *r.s.stocks[id]
		res.Updated = append(res.Updated, &cp)
	}
	sort.Slice(res.Updated, func(i, j int) bool { return res.Updated[i].Name < res.Updated[j].Name })

	for id, by := range batch.OrderCounts {
		p, ok := r.s.products[id]
		if !ok {
			res.MissingProducts = append(res.MissingProducts, id)
			continue
		}
		p.OrderCount += by
	}
	sort.Strings(res.MissingProducts)
	return res, nil
}

// --- users & chats ---

type userRepository struct{ s *Store }

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NotFound("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

type chatRepository struct{ s *Store }

func (r *chatRepository) FindByID(ctx context.Context, id string) (*domain.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.chats[id]
	if !ok {
		return nil, domain.NotFound("chat %s not found", id)
	}
	cp := *c
	cp.Messages = append([]domain.ChatMessage(nil), c.Messages...)
	return &cp, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg domain.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.chats[chatID]
	if !ok {
		return domain.NotFound("chat %s not found", chatID)
	}
	c.Messages = append(c.Messages, msg)
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.DelivererID != nil {
		d := *o.DelivererID
		cp.DelivererID = &d
	}
	if o.ChatID != nil {
		c := *o.ChatID
		cp.ChatID = &c
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Ingredients = append([]domain.Ingredient(nil), p.Ingredients...)
	return &cp
}
