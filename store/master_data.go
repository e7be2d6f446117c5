package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"gorm.io/gorm"
)

// MasterDataStore persists karigars, processes and designs.
type MasterDataStore struct {
	db *gorm.DB
}

// NewMasterDataStore creates a master data store backed by db
func NewMasterDataStore(db *gorm.DB) *MasterDataStore {
	return &MasterDataStore{db: db}
}

// IsActiveContractor reports whether karigar id exists and is active
func (s *MasterDataStore) IsActiveContractor(ctx context.Context, id uint) (bool, error) {
	return s.isActive(ctx, &models.Karigar{}, id)
}

// IsActiveProcess reports whether process id exists and is active
func (s *MasterDataStore) IsActiveProcess(ctx context.Context, id uint) (bool, error) {
	return s.isActive(ctx, &models.Process{}, id)
}

func (s *MasterDataStore) isActive(ctx context.Context, model any, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(model).Where("id = ? AND active = ?", id, true).Count(&count).Error
	return count > 0, err
}

// ListKarigars returns karigars sorted by name, optionally only the active ones
func (s *MasterDataStore) ListKarigars(ctx context.Context, activeOnly bool) ([]models.Karigar, error) {
	var karigars []models.Karigar
	err := activeScope(s.db.WithContext(ctx), activeOnly).Order("name ASC").Find(&karigars).Error
	return karigars, err
}

// GetKarigar fetches one karigar
func (s *MasterDataStore) GetKarigar(ctx context.Context, id uint) (*models.Karigar, error) {
	var karigar models.Karigar
	if err := s.db.WithContext(ctx).First(&karigar, id).Error; err != nil {
		return nil, notFound(err, "karigar", id)
	}
	return &karigar, nil
}

// CreateKarigar inserts a karigar; codes are unique
func (s *MasterDataStore) CreateKarigar(ctx context.Context, karigar *models.Karigar) error {
	return s.create(ctx, karigar, "code", karigar.Code)
}

// ListProcesses returns processes sorted by name
func (s *MasterDataStore) ListProcesses(ctx context.Context, activeOnly bool) ([]models.Process, error) {
	var processes []models.Process
	err := activeScope(s.db.WithContext(ctx), activeOnly).Order("name ASC").Find(&processes).Error
	return processes, err
}

// CreateProcess inserts a process; names are unique
func (s *MasterDataStore) CreateProcess(ctx context.Context, process *models.Process) error {
	return s.create(ctx, process, "name", process.Name)
}

// ListDesigns returns designs sorted by code
func (s *MasterDataStore) ListDesigns(ctx context.Context, activeOnly bool) ([]models.Design, error) {
	var designs []models.Design
	err := activeScope(s.db.WithContext(ctx), activeOnly).Order("code ASC").Find(&designs).Error
	return designs, err
}

// CreateDesign inserts a design; codes are unique
func (s *MasterDataStore) CreateDesign(ctx context.Context, design *models.Design) error {
	return s.create(ctx, design, "code", design.Code)
}

// DesignExists reports whether design id exists
func (s *MasterDataStore) DesignExists(ctx context.Context, id uint) (bool, error) {
	var design models.Design
	err := s.db.WithContext(ctx).Select("id").First(&design, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *MasterDataStore) create(ctx context.Context, record any, uniqueField, value string) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.Invalid(uniqueField, "%q is already in use", value)
		}
		return fmt.Errorf("inserting %T: %w", record, err)
	}
	return nil
}

func activeScope(db *gorm.DB, activeOnly bool) *gorm.DB {
	if activeOnly {
		return db.Where("active = ?", true)
	}
	return db
}
