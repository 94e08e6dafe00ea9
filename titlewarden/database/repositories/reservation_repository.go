package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/uptrace/bun"
)

// ErrReservationExists is returned by Create when another claimant
// already holds the (title, slot) pair. Callers re-read the row to
// distinguish an idempotent retry from a genuine collision.
var ErrReservationExists = errors.New("reservation already exists for this slot")

type ReservationRepository interface {
	// Create inserts a booked reservation. The unique constraint on
	// (title_name, slot_at) serializes concurrent attempts; a conflicting
	// insert reports ErrReservationExists and writes nothing.
	Create(ctx context.Context, reservation *models.Reservation) error
	GetBySlot(ctx context.Context, titleName string, slotAt time.Time) (*models.Reservation, error)
	Delete(ctx context.Context, titleName string, slotAt time.Time) (bool, error)
	// DueBooked returns still-booked reservations whose slot has started.
	DueBooked(ctx context.Context, now time.Time) ([]*models.Reservation, error)
	MarkConsumed(ctx context.Context, id int64, status models.ReservationStatus) error
	// Window range-scans booked reservations with slot_at in [from, to).
	Window(ctx context.Context, from, to time.Time) ([]*models.Reservation, error)
}

type reservationRepository struct {
	db *bun.DB
}

func NewReservationRepository(db *bun.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	reservation.SlotAt = reservation.SlotAt.UTC()
	reservation.Status = models.ReservationStatusBooked
	reservation.CreatedAt = time.Now().UTC()

	result, err := r.db.NewInsert().
		Model(reservation).
		On("CONFLICT (title_name, slot_at) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrReservationExists
	}
	return nil
}

func (r *reservationRepository) GetBySlot(ctx context.Context, titleName string, slotAt time.Time) (*models.Reservation, error) {
	reservation := new(models.Reservation)
	err := r.db.NewSelect().
		Model(reservation).
		Where("title_name = ?", titleName).
		Where("slot_at = ?", slotAt.UTC()).
		Scan(ctx)
	return scanOne(reservation, err)
}

func (r *reservationRepository) Delete(ctx context.Context, titleName string, slotAt time.Time) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.Reservation)(nil)).
		Where("title_name = ?", titleName).
		Where("slot_at = ?", slotAt.UTC()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *reservationRepository) DueBooked(ctx context.Context, now time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.NewSelect().
		Model(&reservations).
		Where("status = ?", models.ReservationStatusBooked).
		Where("slot_at <= ?", now.UTC()).
		Order("slot_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reservations: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) MarkConsumed(ctx context.Context, id int64, status models.ReservationStatus) error {
	_, err := r.db.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Where("status = ?", models.ReservationStatusBooked).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark reservation %d consumed: %w", id, err)
	}
	return nil
}

func (r *reservationRepository) Window(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.NewSelect().
		Model(&reservations).
		Where("status = ?", models.ReservationStatusBooked).
		Where("slot_at >= ?", from.UTC()).
		Where("slot_at < ?", to.UTC()).
		Order("slot_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservation window: %w", err)
	}
	return reservations, nil
}
