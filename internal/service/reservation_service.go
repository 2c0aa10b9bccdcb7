package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/repository"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type reservationRepository interface {
	CreateWithCapacity(ctx context.Context, reservation *models.Reservation) error
	CancelWithRelease(ctx context.Context, id, actorID string, reason *string) error
	Complete(ctx context.Context, id, actorID string) error
	FindDetailByID(ctx context.Context, id string) (*models.ReservationDetail, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error)
}

type slotFinder interface {
	FindByDateTime(ctx context.Context, date, timeOfDay string) (*models.TimeSlot, error)
}

type blockedDateChecker interface {
	FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error)
}

type slotGenerator interface {
	GenerateForDate(ctx context.Context, date string) (int, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BookingValidationResult is the verdict of the external booking-number
// check.
type BookingValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// BookingValidator consults the external service that vets booking numbers
// before a reservation is accepted.
type BookingValidator interface {
	Validate(ctx context.Context, bookingNumber string) (*BookingValidationResult, error)
}

// CreateReservationRequest is the transporter payload for booking a slot.
type CreateReservationRequest struct {
	Date             string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string   `json:"time" validate:"required,datetime=15:04"`
	SlotsRequested   int      `json:"slots_requested" validate:"required,min=1"`
	ContainerNumbers []string `json:"container_numbers" validate:"required,min=1,dive,required"`
	TransporterName  string   `json:"transporter_name" validate:"required"`
	TruckPlate       string   `json:"truck_plate" validate:"required"`
	BookingNumber    string   `json:"booking_number" validate:"required"`
	Notes            *string  `json:"notes,omitempty"`
}

// CancelReservationRequest carries the optional cancellation reason.
type CancelReservationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ReservationService drives the reservation lifecycle: creation against the
// capacity ledger, the one-directional transitions out of ACTIVE, and the
// derived expiry status.
type ReservationService struct {
	reservations reservationRepository
	slots        slotFinder
	blocks       blockedDateChecker
	generator    slotGenerator
	booking      BookingValidator
	audit        auditRecorder
	cache        availabilityCache
	expiryGrace  time.Duration
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReservationService constructs ReservationService.
func NewReservationService(reservations reservationRepository, slots slotFinder, blocks blockedDateChecker, generator slotGenerator, booking BookingValidator, audit auditRecorder, cache availabilityCache, expiryGrace time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiryGrace <= 0 {
		expiryGrace = 2 * time.Hour
	}
	return &ReservationService{
		reservations: reservations,
		slots:        slots,
		blocks:       blocks,
		generator:    generator,
		booking:      booking,
		audit:        audit,
		cache:        cache,
		expiryGrace:  expiryGrace,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Create books slots_requested units of the slot at (date, time). The
// capacity debit and the reservation insert share one transaction, so a
// concurrent request for the last unit loses with CAPACITY_EXCEEDED.
func (s *ReservationService) Create(ctx context.Context, claims *models.JWTClaims, req CreateReservationRequest) (*models.ReservationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if len(req.ContainerNumbers) != req.SlotsRequested {
		return nil, appErrors.Clone(appErrors.ErrValidation, "container count must match requested slots")
	}
	seen := make(map[string]struct{}, len(req.ContainerNumbers))
	for _, container := range req.ContainerNumbers {
		if _, dup := seen[container]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate container number "+container)
		}
		seen[container] = struct{}{}
	}

	blocked, err := s.blocks.FindActiveBlockedDate(ctx, req.Date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked date")
	}
	if blocked != nil {
		return nil, appErrors.Clone(appErrors.ErrDateBlocked, "date is blocked: "+blocked.Reason)
	}

	if s.booking != nil {
		verdict, err := s.booking.Validate(ctx, req.BookingNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "booking validation unavailable")
		}
		if !verdict.Valid {
			return nil, appErrors.Clone(appErrors.ErrValidation, verdict.Message)
		}
	}

	slot, err := s.findOrMaterializeSlot(ctx, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		TimeSlotID:       slot.ID,
		UserID:           claims.UserID,
		TransporterName:  req.TransporterName,
		TruckPlate:       req.TruckPlate,
		BookingNumber:    req.BookingNumber,
		ContainerNumbers: req.ContainerNumbers,
		SlotsReserved:    req.SlotsRequested,
		Notes:            req.Notes,
	}
	if err := s.reservations.CreateWithCapacity(ctx, reservation); err != nil {
		if appErrors.Is(err, appErrors.ErrCapacityExceeded) {
			s.metrics.RecordCapacityDenied()
			return nil, err
		}
		if appErrors.Is(err, appErrors.ErrSlotInactive) || appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("slot_id", slot.ID),
		zap.Int("slots", reservation.SlotsReserved))

	s.metrics.RecordReservation("created")
	s.invalidateAvailability(ctx, req.Date)
	return s.loadDetail(ctx, reservation.ID)
}

// Cancel transitions an ACTIVE reservation to CANCELLED, crediting its
// capacity back. Allowed for the owning user or an admin.
func (s *ReservationService) Cancel(ctx context.Context, claims *models.JWTClaims, id string, req CancelReservationRequest) (*models.ReservationDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() && detail.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another user")
	}
	if detail.EffectiveStatus(time.Now(), s.expiryGrace) != models.ReservationActive {
		return nil, appErrors.ErrNotActive
	}

	if err := s.reservations.CancelWithRelease(ctx, id, claims.UserID, req.Reason); err != nil {
		if appErrors.Is(err, appErrors.ErrNotActive) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
	}

	s.metrics.RecordReservation("cancelled")
	s.invalidateAvailability(ctx, detail.SlotDate)
	s.recordAudit(ctx, claims, models.AuditActionReservationCancel, id, req.Reason)
	return s.loadDetail(ctx, id)
}

// Complete transitions an ACTIVE reservation to COMPLETED. Capacity stays
// consumed; the truck showed up.
func (s *ReservationService) Complete(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReservationDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.EffectiveStatus(time.Now(), s.expiryGrace) != models.ReservationActive {
		return nil, appErrors.ErrNotActive
	}

	if err := s.reservations.Complete(ctx, id, claims.UserID); err != nil {
		if appErrors.Is(err, appErrors.ErrNotActive) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete reservation")
	}

	s.metrics.RecordReservation("completed")
	s.recordAudit(ctx, claims, models.AuditActionReservationDone, id, nil)
	return s.loadDetail(ctx, id)
}

// Get returns one reservation; owners see their own, admins see all.
func (s *ReservationService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReservationDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() && detail.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another user")
	}
	return detail, nil
}

// List returns reservations with derived expiry applied. Non-admin callers
// are pinned to their own reservations.
func (s *ReservationService) List(ctx context.Context, claims *models.JWTClaims, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error) {
	if !claims.IsAdmin() {
		filter.UserID = claims.UserID
	}
	reservations, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	now := time.Now()
	for i := range reservations {
		reservations[i].Status = reservations[i].EffectiveStatus(now, s.expiryGrace)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return reservations, pagination, nil
}

// findOrMaterializeSlot looks up the slot row for (date, time), lazily
// generating the date's rows on first touch.
func (s *ReservationService) findOrMaterializeSlot(ctx context.Context, date, timeOfDay string) (*models.TimeSlot, error) {
	slot, err := s.slots.FindByDateTime(ctx, date, timeOfDay)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}

	if s.generator != nil {
		if _, genErr := s.generator.GenerateForDate(ctx, date); genErr != nil && !appErrors.Is(genErr, appErrors.ErrAlreadyExists) {
			return nil, genErr
		}
		slot, err = s.slots.FindByDateTime(ctx, date, timeOfDay)
		if err == nil {
			return slot, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no slot at requested time")
}

func (s *ReservationService) loadDetail(ctx context.Context, id string) (*models.ReservationDetail, error) {
	detail, err := s.reservations.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	detail.Status = detail.EffectiveStatus(time.Now(), s.expiryGrace)
	return detail, nil
}

// invalidateAvailability drops the cached availability for a date after its
// capacity changed.
func (s *ReservationService) invalidateAvailability(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.AvailabilityKey(date)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("date", date), zap.Error(err))
	}
}

func (s *ReservationService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, reservationID string, reason *string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"reason": reason})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "reservations",
		ResourceID: &reservationID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
