package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// MemStore is an in-memory repository.Factory and repository.Transactor.
// Transactions are serialized by one lock and roll back to a snapshot on error.
type MemStore struct {
	mu   sync.Mutex
	data *memData

	// InventoryErr, when set, fails every stock update.
	InventoryErr error
	// FailAppend, when set, fails history appends.
	FailAppend error
	// Now stamps created and updated times.
	Now func() time.Time
}

type memData struct {
	users    map[int64]*model.User
	variants map[int64]*model.Variant
	carts    map[int64]*model.Cart
	orders   map[int64]*model.Order
	payments map[string]*model.PaymentTransaction
	history  []model.StatusHistory
	seq      int64
}

// NewMemStore constructs an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: &memData{
			users:    map[int64]*model.User{},
			variants: map[int64]*model.Variant{},
			carts:    map[int64]*model.Cart{},
			orders:   map[int64]*model.Order{},
			payments: map[string]*model.PaymentTransaction{},
		},
		Now: time.Now,
	}
}

func (d *memData) next() int64 {
	d.seq++
	return d.seq
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[int64]*model.User, len(d.users)),
		variants: make(map[int64]*model.Variant, len(d.variants)),
		carts:    make(map[int64]*model.Cart, len(d.carts)),
		orders:   make(map[int64]*model.Order, len(d.orders)),
		payments: make(map[string]*model.PaymentTransaction, len(d.payments)),
		history:  append([]model.StatusHistory(nil), d.history...),
		seq:      d.seq,
	}
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.variants {
		vv := *v
		c.variants[k] = &vv
	}
	for k, v := range d.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.payments {
		p := *v
		c.payments[k] = &p
	}
	return c
}

func copyCart(c *model.Cart) *model.Cart {
	out := *c
	out.Items = append([]model.CartItem(nil), c.Items...)
	return &out
}

func copyOrder(o *model.Order) *model.Order {
	out := *o
	out.Items = append([]model.OrderItem(nil), o.Items...)
	return &out
}

// SeedUser stores a user and returns its id.
func (s *MemStore) SeedUser(email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.data.next()
	s.data.users[id] = &model.User{ID: id, Email: email, Name: email, PasswordHash: "hash", CreatedAt: s.Now()}
	return id
}

// SeedVariant stores a variant priced at price with stock units and returns its id.
func (s *MemStore) SeedVariant(name string, price string, promo string, stock int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.data.next()
	v := &model.Variant{
		ID:            id,
		ProductID:     id,
		SKU:           name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Product:       model.ProductSnapshot{Name: name, Artist: "artist", Condition: "mint"},
	}
	if promo != "" {
		p := decimal.RequireFromString(promo)
		v.PromotionalPrice = &p
	}
	s.data.variants[id] = v
	return id
}

// SetPrice changes the catalog price of a variant.
func (s *MemStore) SetPrice(variantID int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.variants[variantID].Price = decimal.RequireFromString(price)
	s.data.variants[variantID].PromotionalPrice = nil
}

// Stock returns the current stock of a variant.
func (s *MemStore) Stock(variantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.variants[variantID].StockQuantity
}

// CartsByStatus counts the user's carts with status.
func (s *MemStore) CartsByStatus(userID int64, status model.CartStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.data.carts {
		if c.UserID == userID && c.Status == status {
			n++
		}
	}
	return n
}

// CartStatus returns the status of a cart or empty string when it was deleted.
func (s *MemStore) CartStatus(cartID int64) model.CartStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.data.carts[cartID]; ok {
		return c.Status
	}
	return ""
}

// PaymentCount returns how many payment transactions the order has.
func (s *MemStore) PaymentCount(orderID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.data.payments {
		if p.OrderID == orderID {
			n++
		}
	}
	return n
}

// HistoryFor returns the order's history.
func (s *MemStore) HistoryFor(orderID int64) []model.StatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StatusHistory
	for _, h := range s.data.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

// Age moves the order's update time back by d.
func (s *MemStore) Age(orderID int64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.data.orders[orderID]; ok {
		o.UpdatedAt = o.UpdatedAt.Add(-d)
	}
}

// WithinTransaction runs fn atomically.
func (s *MemStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, fn)
}

// WithOrderLock runs fn atomically with the loaded order.
func (s *MemStore) WithOrderLock(ctx context.Context, orderID int64, fn func(ctx context.Context, tx repository.Tx, order *model.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, ok := s.data.orders[orderID]
		if !ok {
			return domainErrors.ErrOrderNotFound
		}
		return fn(ctx, tx, copyOrder(o))
	})
}

func (s *MemStore) run(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	if err := fn(ctx, memTx{memFactory{s: s, inTx: true}}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type memTx struct {
	memFactory
}

func (t memTx) Savepoint(ctx context.Context, fn func(repository.Tx) error) error {
	snapshot := t.s.data.clone()
	if err := fn(t); err != nil {
		t.s.data = snapshot
		return err
	}
	return nil
}

type memFactory struct {
	s    *MemStore
	inTx bool
}

func (f memFactory) lock() func() {
	if f.inTx {
		return func() {}
	}
	f.s.mu.Lock()
	return f.s.mu.Unlock
}

func (s *MemStore) Users() repository.UserRepository         { return memUsers{memFactory{s: s}} }
func (s *MemStore) Catalog() repository.CatalogRepository     { return memCatalog{memFactory{s: s}} }
func (s *MemStore) Carts() repository.CartRepository          { return memCarts{memFactory{s: s}} }
func (s *MemStore) Orders() repository.OrderRepository        { return memOrders{memFactory{s: s}} }
func (s *MemStore) Payments() repository.PaymentRepository    { return memPayments{memFactory{s: s}} }
func (s *MemStore) History() repository.HistoryRepository     { return memHistory{memFactory{s: s}} }
func (s *MemStore) Inventory() repository.InventoryRepository { return memInventory{memFactory{s: s}} }

func (f memFactory) Users() repository.UserRepository         { return memUsers{f} }
func (f memFactory) Catalog() repository.CatalogRepository     { return memCatalog{f} }
func (f memFactory) Carts() repository.CartRepository          { return memCarts{f} }
func (f memFactory) Orders() repository.OrderRepository        { return memOrders{f} }
func (f memFactory) Payments() repository.PaymentRepository    { return memPayments{f} }
func (f memFactory) History() repository.HistoryRepository     { return memHistory{f} }
func (f memFactory) Inventory() repository.InventoryRepository { return memInventory{f} }

type memUsers struct{ memFactory }

func (r memUsers) Create(ctx context.Context, email, name, passwordHash string) (*model.User, error) {
	defer r.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	id := r.s.data.next()
	u := &model.User{ID: id, Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: r.s.Now()}
	r.s.data.users[id] = u
	out := *u
	return &out, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer r.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

type memCatalog struct{ memFactory }

func (r memCatalog) GetVariant(ctx context.Context, id int64) (*model.Variant, error) {
	defer r.lock()()
	v, ok := r.s.data.variants[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *v
	return &out, nil
}

type memCarts struct{ memFactory }

// hydrate resolves line prices from the current catalog.
func (r memCarts) hydrate(c *model.Cart) *model.Cart {
	out := copyCart(c)
	for i := range out.Items {
		if v, ok := r.s.data.variants[out.Items[i].VariantID]; ok {
			out.Items[i].UnitPrice = v.Price
			out.Items[i].PromotionalPrice = v.PromotionalPrice
			out.Items[i].Product = v.Product
		}
	}
	return out
}

func (r memCarts) active(userID int64) *model.Cart {
	for _, c := range r.s.data.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c
		}
	}
	return nil
}

func (r memCarts) GetActive(ctx context.Context, userID int64) (*model.Cart, error) {
	defer r.lock()()
	c := r.active(userID)
	if c == nil {
		return nil, domainErrors.ErrNotFound
	}
	return r.hydrate(c), nil
}

func (r memCarts) GetByID(ctx context.Context, cartID int64) (*model.Cart, error) {
	defer r.lock()()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return r.hydrate(c), nil
}

func (r memCarts) CreateActive(ctx context.Context, userID int64) (*model.Cart, error) {
	defer r.lock()()
	if c := r.active(userID); c != nil {
		return r.hydrate(c), nil
	}
	now := r.s.Now()
	c := &model.Cart{ID: r.s.data.next(), UserID: userID, Status: model.CartStatusActive, CreatedAt: now, UpdatedAt: now}
	r.s.data.carts[c.ID] = c
	return r.hydrate(c), nil
}

func (r memCarts) AddItem(ctx context.Context, cartID, variantID int64, quantity int) error {
	defer r.lock()()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			c.Items[i].Quantity += quantity
			return nil
		}
	}
	c.Items = append(c.Items, model.CartItem{ID: r.s.data.next(), CartID: cartID, VariantID: variantID, Quantity: quantity})
	return nil
}

func (r memCarts) SetItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	defer r.lock()()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

func (r memCarts) RemoveItem(ctx context.Context, cartID, itemID int64) (int, error) {
	defer r.lock()()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
			return len(c.Items), nil
		}
	}
	return 0, domainErrors.ErrNotFound
}

func (r memCarts) Delete(ctx context.Context, cartID int64) error {
	defer r.lock()()
	delete(r.s.data.carts, cartID)
	for _, o := range r.s.data.orders {
		if o.CartID != nil && *o.CartID == cartID {
			o.CartID = nil
		}
	}
	return nil
}

func (r memCarts) MarkConverted(ctx context.Context, cartID int64) error {
	defer r.lock()()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	c.Status = model.CartStatusConverted
	c.UpdatedAt = r.s.Now()
	return nil
}

func (r memCarts) ArchiveConverted(ctx context.Context, userID, keep int64) error {
	defer r.lock()()
	for _, c := range r.s.data.carts {
		if c.UserID == userID && c.ID != keep && c.Status == model.CartStatusConverted {
			c.Status = model.CartStatusArchived
			c.UpdatedAt = r.s.Now()
		}
	}
	return nil
}

type memOrders struct{ memFactory }

func (r memOrders) Create(ctx context.Context, order *model.Order) error {
	defer r.lock()()
	now := r.s.Now()
	order.ID = r.s.data.next()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = r.s.data.next()
		order.Items[i].OrderID = order.ID
	}
	r.s.data.orders[order.ID] = copyOrder(order)
	return nil
}

func (r memOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	defer r.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r memOrders) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	defer r.lock()()
	var out []model.Order
	for _, o := range r.s.data.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memOrders) UpdatePayment(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus, paymentID *string) error {
	defer r.lock()()
	o, ok := r.s.data.orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	o.Status = status
	o.PaymentStatus = paymentStatus
	if paymentID != nil {
		id := *paymentID
		o.PaymentID = &id
	} else {
		o.PaymentID = nil
	}
	o.UpdatedAt = r.s.Now()
	return nil
}

func (r memOrders) SelectForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error) {
	defer r.lock()()
	cutoff := r.s.Now().Add(-idle)
	var out []model.Order
	for _, o := range r.s.data.orders {
		if o.PaymentID == nil || o.PaymentStatus.IsTerminal() || o.UpdatedAt.After(cutoff) {
			continue
		}
		if p, ok := r.s.data.payments[*o.PaymentID]; ok && p.Status.IsTerminal() {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPayments struct{ memFactory }

func (r memPayments) GetByPaymentID(ctx context.Context, paymentID string) (*model.PaymentTransaction, error) {
	defer r.lock()()
	p, ok := r.s.data.payments[paymentID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r memPayments) Upsert(ctx context.Context, txn *model.PaymentTransaction) error {
	defer r.lock()()
	now := r.s.Now()
	if existing, ok := r.s.data.payments[txn.PaymentID]; ok {
		txn.ID = existing.ID
		txn.CreatedAt = existing.CreatedAt
	} else {
		txn.ID = r.s.data.next()
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	stored := *txn
	r.s.data.payments[txn.PaymentID] = &stored
	return nil
}

func (r memPayments) ListByOrder(ctx context.Context, orderID int64) ([]model.PaymentTransaction, error) {
	defer r.lock()()
	var out []model.PaymentTransaction
	for _, p := range r.s.data.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memHistory struct{ memFactory }

func (r memHistory) Append(ctx context.Context, entry *model.StatusHistory) error {
	defer r.lock()()
	if r.s.FailAppend != nil {
		return r.s.FailAppend
	}
	entry.ID = r.s.data.next()
	entry.CreatedAt = r.s.Now()
	r.s.data.history = append(r.s.data.history, *entry)
	return nil
}

func (r memHistory) ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistory, error) {
	defer r.lock()()
	var out []model.StatusHistory
	for _, h := range r.s.data.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memInventory struct{ memFactory }

func (r memInventory) Decrement(ctx context.Context, variantID int64, qty int) (int, int, error) {
	defer r.lock()()
	if r.s.InventoryErr != nil {
		return 0, 0, r.s.InventoryErr
	}
	v, ok := r.s.data.variants[variantID]
	if !ok {
		return 0, 0, domainErrors.ErrNotFound
	}
	before := v.StockQuantity
	v.StockQuantity -= qty
	if v.StockQuantity < 0 {
		v.StockQuantity = 0
	}
	return before, v.StockQuantity, nil
}

func (r memInventory) Increment(ctx context.Context, variantID int64, qty int) (int, error) {
	defer r.lock()()
	if r.s.InventoryErr != nil {
		return 0, r.s.InventoryErr
	}
	v, ok := r.s.data.variants[variantID]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	v.StockQuantity += qty
	return v.StockQuantity, nil
}

var (
	_ repository.Factory    = (*MemStore)(nil)
	_ repository.Transactor = (*MemStore)(nil)
	_ repository.Tx         = memTx{}
)
