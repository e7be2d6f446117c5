package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	Status         models.OrderStatus
	Location       models.Location
	ClientCategory models.ClientCategory
	UrgencyLevel   models.UrgencyLevel
	KarigarID      uint
	// Search matches order number, bag number, client name and design number.
	Search string
	Page
}

// StatusCount is one row of the per-status dashboard breakdown
type StatusCount struct {
	Status     models.OrderStatus `json:"status"`
	Count      int64              `json:"count"`
	Percentage float64            `json:"percentage"`
}

// DashboardStats summarizes the order book
type DashboardStats struct {
	TotalOrders     int64         `json:"total_orders"`
	ActiveOrders    int64         `json:"active_orders"`
	DeliveredOrders int64         `json:"delivered_orders"`
	CancelledOrders int64         `json:"cancelled_orders"`
	OnHoldOrders    int64         `json:"on_hold_orders"`
	UrgentOrders    int64         `json:"urgent_orders"`
	DelayedOrders   int64         `json:"delayed_orders"`
	ByStatus        []StatusCount `json:"by_status"`
}

// OrderStore persists orders and their status history.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates an order store backed by db
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create inserts order together with its creation history record.
func (s *OrderStore) Create(ctx context.Context, order *models.Order, initial *models.OrderStatusHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.Version == 0 {
			order.Version = 1
		}
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Invalid("order_no", "%s is already in use", order.OrderNo)
			}
			return fmt.Errorf("inserting order: %w", err)
		}

		initial.OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(initial).Error; err != nil {
			return fmt.Errorf("inserting creation history: %w", err)
		}
		return nil
	})
}

// Load fetches an order with its current karigar and process.
func (s *OrderStore) Load(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("CurrentKarigar").
		Preload("CurrentProcess").
		First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// LoadWithHistory fetches an order and its history, newest first.
func (s *OrderStore) LoadWithHistory(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("CurrentKarigar").
		Preload("CurrentProcess").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("status_date DESC, id DESC")
		}).
		Preload("StatusHistory.Karigar").
		Preload("StatusHistory.Process").
		First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// SaveTransition writes the lifecycle fields of order and appends record in one
// transaction. It fails with a ConcurrentModificationError when the stored version is
// no longer expectedVersion. On success order.Version is advanced.
func (s *OrderStore) SaveTransition(ctx context.Context, order *models.Order, record *models.OrderStatusHistory, expectedVersion uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"current_status":       order.CurrentStatus,
			"current_location":     order.CurrentLocation,
			"current_karigar_id":   order.CurrentKarigarID,
			"current_process_id":   order.CurrentProcessID,
			"held_from_status":     order.HeldFromStatus,
			"progress_percentage":  order.ProgressPercentage,
			"estimated_completion": order.EstimatedCompletion,
		}
		if err := s.updateVersioned(tx, order, updates, expectedVersion); err != nil {
			return err
		}

		record.OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
			return fmt.Errorf("appending history: %w", err)
		}
		return nil
	})
}

// SaveDetails writes the descriptive fields of order. Lifecycle fields and history
// are never touched.
func (s *OrderStore) SaveDetails(ctx context.Context, order *models.Order, expectedVersion uint) error {
	updates := map[string]any{
		"bag_no":               order.BagNo,
		"client_name":          order.ClientName,
		"client_category":      order.ClientCategory,
		"urgency_level":        order.UrgencyLevel,
		"design_no":            order.DesignNo,
		"description":          order.Description,
		"quantity":             order.Quantity,
		"stone_type":           order.StoneType,
		"stone_size":           order.StoneSize,
		"stone_quality":        order.StoneQuality,
		"special_instructions": order.SpecialInstructions,
		"delivery_date":        order.DeliveryDate,
		"image_urls":           order.ImageURLs,
		"document_urls":        order.DocumentURLs,
	}
	return s.updateVersioned(s.db.WithContext(ctx), order, updates, expectedVersion)
}

func (s *OrderStore) updateVersioned(tx *gorm.DB, order *models.Order, updates map[string]any, expectedVersion uint) error {
	updates["version"] = expectedVersion + 1
	updates["updated_at"] = time.Now()

	result := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating order %d: %w", order.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperrors.ConcurrentModificationError{
			Entity:   "order",
			ID:       order.ID,
			Expected: fmt.Sprintf("version %d", expectedVersion),
			Actual:   "a newer version",
		}
	}
	order.Version = expectedVersion + 1
	return nil
}

// History returns the status records of an order, newest first.
func (s *OrderStore) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &apperrors.NotFoundError{Entity: "order", ID: orderID}
	}

	var history []models.OrderStatusHistory
	err := s.db.WithContext(ctx).
		Preload("Karigar").
		Preload("Process").
		Where("order_id = ?", orderID).
		Order("status_date DESC, id DESC").
		Find(&history).Error
	return history, err
}

// List returns one page of orders matching f, newest first, and the total match count.
func (s *OrderStore) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("current_status = ?", f.Status)
	}
	if f.Location != "" {
		q = q.Where("current_location = ?", f.Location)
	}
	if f.ClientCategory != "" {
		q = q.Where("client_category = ?", f.ClientCategory)
	}
	if f.UrgencyLevel != "" {
		q = q.Where("urgency_level = ?", f.UrgencyLevel)
	}
	if f.KarigarID != 0 {
		q = q.Where("current_karigar_id = ?", f.KarigarID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(order_no) LIKE ? OR LOWER(bag_no) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(design_no) LIKE ?",
			like, like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := f.Page.apply(q).
		Preload("CurrentKarigar").
		Preload("CurrentProcess").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, total, err
}

// Dashboard counts orders by lifecycle group. Orders past their delivery date that are
// not yet delivered or cancelled count as delayed.
func (s *OrderStore) Dashboard(ctx context.Context, now time.Time) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	terminal := []models.OrderStatus{models.StatusDelivered, models.StatusCancelled}
	stats := &DashboardStats{}

	var rows []StatusCount
	if err := db.Model(&models.Order{}).
		Select("current_status AS status, COUNT(*) AS count").
		Group("current_status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
		stats.TotalOrders += r.Count
	}
	stats.DeliveredOrders = counts[models.StatusDelivered]
	stats.CancelledOrders = counts[models.StatusCancelled]
	stats.OnHoldOrders = counts[models.StatusOnHold]
	stats.ActiveOrders = stats.TotalOrders - stats.DeliveredOrders - stats.CancelledOrders

	for _, status := range models.AllOrderStatuses() {
		count, ok := counts[status]
		if !ok {
			continue
		}
		stats.ByStatus = append(stats.ByStatus, StatusCount{
			Status:     status,
			Count:      count,
			Percentage: float64(count) * 100 / float64(stats.TotalOrders),
		})
	}

	if err := db.Model(&models.Order{}).
		Where("urgency_level IN ?", []models.UrgencyLevel{models.UrgencyUrgent, models.UrgencyRush}).
		Where("current_status NOT IN ?", terminal).
		Count(&stats.UrgentOrders).Error; err != nil {
		return nil, fmt.Errorf("counting urgent orders: %w", err)
	}

	if err := db.Model(&models.Order{}).
		Where("delivery_date IS NOT NULL AND delivery_date < ?", now).
		Where("current_status NOT IN ?", terminal).
		Count(&stats.DelayedOrders).Error; err != nil {
		return nil, fmt.Errorf("counting delayed orders: %w", err)
	}

	return stats, nil
}

// Delete hard-deletes an order and its history. This is an administrative override;
// normal cancellation goes through the CANCELLED status.
func (s *OrderStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return fmt.Errorf("deleting history of order %d: %w", id, err)
		}
		result := tx.Delete(&models.Order{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting order %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return &apperrors.NotFoundError{Entity: "order", ID: id}
		}
		return nil
	})
}

// OrderNoExists reports whether an order already uses orderNo
func (s *OrderStore) OrderNoExists(ctx context.Context, orderNo string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).Where("order_no = ?", orderNo).Count(&count).Error
	return count > 0, err
}
