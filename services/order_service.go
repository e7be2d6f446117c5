package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/lifecycle"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/numbering"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"gorm.io/gorm"
)

// CreateOrderInput holds the fields accepted when an order is taken in
type CreateOrderInput struct {
	// OrderNo is allocated from the daily sequence when empty.
	OrderNo             string
	BagNo               string
	ClientName          string
	ClientCategory      models.ClientCategory
	UrgencyLevel        models.UrgencyLevel
	DesignNo            string
	Description         string
	Quantity            int
	StoneType           string
	StoneSize           string
	StoneQuality        string
	SpecialInstructions string
	OrderDate           *time.Time
	DeliveryDate        *time.Time
	ImageURLs           []string
	DocumentURLs        []string
}

// OrderService coordinates the lifecycle engine with order storage.
type OrderService struct {
	orders    *store.OrderStore
	sequences *store.SequenceCounter
	engine    *lifecycle.Engine
	now       func() time.Time
}

var orderServiceInstance *OrderService

// NewOrderService wires an order service onto db
func NewOrderService(db *gorm.DB, policy lifecycle.Policy) *OrderService {
	return &OrderService{
		orders:    store.NewOrderStore(db),
		sequences: store.NewSequenceCounter(db),
		engine:    lifecycle.NewEngine(policy, store.NewMasterDataStore(db)),
		now:       time.Now,
	}
}

// InitOrderService creates the shared order service instance
func InitOrderService(db *gorm.DB, policy lifecycle.Policy) *OrderService {
	orderServiceInstance = NewOrderService(db, policy)
	return orderServiceInstance
}

// GetOrderService returns the shared order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService replaces the shared instance (primarily for testing)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

// WithClock replaces the time source used for order dates and history timestamps
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	s.engine.WithClock(now)
	return s
}

// Policy returns the transition policy in force
func (s *OrderService) Policy() lifecycle.Policy {
	return s.engine.Policy()
}

// NextOrderNumber previews the number the next order will get today. The number is
// not reserved.
func (s *OrderService) NextOrderNumber(ctx context.Context) (string, error) {
	today := s.now()
	seq, err := s.sequences.PeekSequence(ctx, numbering.PrefixOrder, today)
	if err != nil {
		return "", fmt.Errorf("reading order sequence: %w", err)
	}
	return numbering.Format(numbering.PrefixOrder, today, seq)
}

// CreateOrder registers a new order in RECEIVED at the head office and records the
// creation entry in its history.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput, actor string) (*models.Order, error) {
	if in.ClientCategory == "" {
		in.ClientCategory = models.ClientRetail
	}
	if in.UrgencyLevel == "" {
		in.UrgencyLevel = models.UrgencyNormal
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}

	name, qty := in.ClientName, in.Quantity
	details := lifecycle.OrderDetails{
		ClientName:     &name,
		ClientCategory: &in.ClientCategory,
		UrgencyLevel:   &in.UrgencyLevel,
		Quantity:       &qty,
	}
	if err := lifecycle.ValidateDetails(details); err != nil {
		return nil, err
	}

	orderNo, err := s.resolveOrderNo(ctx, strings.TrimSpace(in.OrderNo))
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNo:             orderNo,
		BagNo:               optionalString(in.BagNo),
		ClientName:          strings.TrimSpace(in.ClientName),
		ClientCategory:      in.ClientCategory,
		UrgencyLevel:        in.UrgencyLevel,
		DesignNo:            optionalString(in.DesignNo),
		Description:         in.Description,
		Quantity:            in.Quantity,
		StoneType:           optionalString(in.StoneType),
		StoneSize:           optionalString(in.StoneSize),
		StoneQuality:        optionalString(in.StoneQuality),
		SpecialInstructions: optionalString(in.SpecialInstructions),
		DeliveryDate:        in.DeliveryDate,
		ImageURLs:           in.ImageURLs,
		DocumentURLs:        in.DocumentURLs,
	}
	if in.OrderDate != nil {
		order.OrderDate = *in.OrderDate
	}

	initial := s.engine.Initialize(order, actor)
	if err := s.orders.Create(ctx, order, initial); err != nil {
		return nil, err
	}

	log.Printf("Order %s created for %s", order.OrderNo, order.ClientName)
	return order, nil
}

// resolveOrderNo checks a caller supplied number or allocates the next free one. A
// sequence value may collide with a number entered by hand, so allocation skips
// numbers already taken.
func (s *OrderService) resolveOrderNo(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		if len(requested) > 32 {
			return "", apperrors.Invalid("order_no", "must be at most 32 characters")
		}
		exists, err := s.orders.OrderNoExists(ctx, requested)
		if err != nil {
			return "", fmt.Errorf("checking order number: %w", err)
		}
		if exists {
			return "", apperrors.Invalid("order_no", "%s is already in use", requested)
		}
		return requested, nil
	}

	today := s.now()
	for {
		orderNo, err := numbering.Generate(ctx, s.sequences, numbering.PrefixOrder, today)
		if err != nil {
			return "", err
		}
		exists, err := s.orders.OrderNoExists(ctx, orderNo)
		if err != nil {
			return "", fmt.Errorf("checking order number: %w", err)
		}
		if !exists {
			return orderNo, nil
		}
	}
}

// GetOrder loads an order with its history, newest first
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.LoadWithHistory(ctx, id)
}

// History returns the status history of an order, newest first
func (s *OrderService) History(ctx context.Context, id uint) ([]models.OrderStatusHistory, error) {
	return s.orders.History(ctx, id)
}

// ListOrders returns one page of orders and the total count
func (s *OrderService) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(ctx, filter)
}

// Dashboard summarizes the order book as of now
func (s *OrderService) Dashboard(ctx context.Context) (*store.DashboardStats, error) {
	return s.orders.Dashboard(ctx, s.now())
}

// AvailableTransitions lists the statuses an order can move to next
func (s *OrderService) AvailableTransitions(ctx context.Context, id uint) ([]models.OrderStatus, error) {
	order, err := s.orders.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.NextStatuses(s.engine.Policy(), order.CurrentStatus, order.HeldFromStatus), nil
}

// UpdateStatus applies a transition and persists it with its history record. When
// the caller did not pin the expected status, a lost version race is retried once
// against a fresh read.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, req lifecycle.TransitionRequest) (*models.Order, *models.OrderStatusHistory, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.orders.Load(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		version := order.Version
		previous := order.CurrentStatus

		record, err := s.engine.Apply(ctx, order, req)
		if err != nil {
			return nil, nil, err
		}

		err = s.orders.SaveTransition(ctx, order, record, version)
		if err == nil {
			log.Printf("Order %s moved %s -> %s at %s", order.OrderNo, previous, order.CurrentStatus, order.CurrentLocation)
			updated, err := s.orders.Load(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			return updated, record, nil
		}
		if !apperrors.IsConcurrentModification(err) || req.ExpectedStatus != nil {
			return nil, nil, err
		}
		lastErr = err
		log.Printf("Order %s changed while updating status, retrying", order.OrderNo)
	}
	return nil, nil, lastErr
}

// UpdateOrderDetails edits descriptive fields. expectedVersion, when non-zero, must
// match the stored version.
func (s *OrderService) UpdateOrderDetails(ctx context.Context, id uint, details lifecycle.OrderDetails, expectedVersion uint) (*models.Order, error) {
	order, err := s.orders.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != order.Version {
		return nil, &apperrors.ConcurrentModificationError{
			Entity:   "order",
			ID:       id,
			Expected: fmt.Sprintf("version %d", expectedVersion),
			Actual:   fmt.Sprintf("version %d", order.Version),
		}
	}

	version := order.Version
	if err := lifecycle.ApplyDetails(order, details); err != nil {
		return nil, err
	}
	if err := s.orders.SaveDetails(ctx, order, version); err != nil {
		return nil, err
	}
	return s.orders.Load(ctx, id)
}

// AddAttachment appends a stored attachment key to the image or document list.
func (s *OrderService) AddAttachment(ctx context.Context, id uint, kind AttachmentKind, key string) (*models.Order, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.orders.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		var details lifecycle.OrderDetails
		switch kind {
		case AttachmentDocument:
			details.DocumentURLs = append(append([]string{}, order.DocumentURLs...), key)
		default:
			details.ImageURLs = append(append([]string{}, order.ImageURLs...), key)
		}

		version := order.Version
		if err := lifecycle.ApplyDetails(order, details); err != nil {
			return nil, err
		}
		err = s.orders.SaveDetails(ctx, order, version)
		if err == nil {
			return order, nil
		}
		if !apperrors.IsConcurrentModification(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// DeleteOrder removes an order and its history permanently
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Order %d deleted", id)
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
