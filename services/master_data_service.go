package services

import (
	"context"
	"log"
	"strings"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/store"
	"gorm.io/gorm"
)

// MasterDataService maintains the karigars, processes and designs that orders and
// issues refer to.
type MasterDataService struct {
	store *store.MasterDataStore
}

var masterDataServiceInstance *MasterDataService

// NewMasterDataService wires a master data service onto db
func NewMasterDataService(db *gorm.DB) *MasterDataService {
	return &MasterDataService{store: store.NewMasterDataStore(db)}
}

// InitMasterDataService creates the shared master data service instance
func InitMasterDataService(db *gorm.DB) *MasterDataService {
	masterDataServiceInstance = NewMasterDataService(db)
	return masterDataServiceInstance
}

// GetMasterDataService returns the shared master data service instance
func GetMasterDataService() *MasterDataService {
	return masterDataServiceInstance
}

// SetMasterDataService replaces the shared instance (primarily for testing)
func SetMasterDataService(service *MasterDataService) {
	masterDataServiceInstance = service
}

// ListKarigars returns karigars by name
func (s *MasterDataService) ListKarigars(ctx context.Context, activeOnly bool) ([]models.Karigar, error) {
	return s.store.ListKarigars(ctx, activeOnly)
}

// GetKarigar fetches one karigar
func (s *MasterDataService) GetKarigar(ctx context.Context, id uint) (*models.Karigar, error) {
	return s.store.GetKarigar(ctx, id)
}

// CreateKarigar registers a karigar. Code and name are required.
func (s *MasterDataService) CreateKarigar(ctx context.Context, karigar *models.Karigar) error {
	karigar.Code = strings.TrimSpace(karigar.Code)
	karigar.Name = strings.TrimSpace(karigar.Name)
	if karigar.Code == "" {
		return apperrors.Invalid("code", "is required")
	}
	if karigar.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	if err := s.store.CreateKarigar(ctx, karigar); err != nil {
		return err
	}
	log.Printf("Karigar %s (%s) registered", karigar.Code, karigar.Name)
	return nil
}

// ListProcesses returns processes by name
func (s *MasterDataService) ListProcesses(ctx context.Context, activeOnly bool) ([]models.Process, error) {
	return s.store.ListProcesses(ctx, activeOnly)
}

// CreateProcess registers a manufacturing process
func (s *MasterDataService) CreateProcess(ctx context.Context, process *models.Process) error {
	process.Name = strings.TrimSpace(process.Name)
	if process.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	return s.store.CreateProcess(ctx, process)
}

// ListDesigns returns designs by code
func (s *MasterDataService) ListDesigns(ctx context.Context, activeOnly bool) ([]models.Design, error) {
	return s.store.ListDesigns(ctx, activeOnly)
}

// CreateDesign registers a catalogue design
func (s *MasterDataService) CreateDesign(ctx context.Context, design *models.Design) error {
	design.Code = strings.TrimSpace(design.Code)
	design.Name = strings.TrimSpace(design.Name)
	if design.Code == "" {
		return apperrors.Invalid("code", "is required")
	}
	if design.Name == "" {
		return apperrors.Invalid("name", "is required")
	}
	return s.store.CreateDesign(ctx, design)
}
