package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/lib/pq"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, name, address, latitude, longitude, total_spaces, available_spaces, hourly_rate, status, owner_id, created_at, updated_at`

func scanLotRow(scan func(dest ...interface{}) error, lot *domain.ParkingLot) error {
	err := scan(
		&lot.ID, &lot.Name, &lot.Address, &lot.Latitude, &lot.Longitude,
		&lot.TotalSpaces, &lot.AvailableSpaces, &lot.HourlyRate, &lot.Status,
		&lot.OwnerID, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		return err
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	// Bãi mới chưa có chỗ nào bị chiếm nên available_spaces = total_spaces.
	query := `INSERT INTO parking_lots (name, address, latitude, longitude, total_spaces, available_spaces, hourly_rate, status, owner_id, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, available_spaces, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.TotalSpaces,
		lot.HourlyRate, lot.Status, lot.OwnerID,
	).Scan(&lot.ID, &lot.AvailableSpaces, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
			}
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	err := scanLotRow(r.db.QueryRowContext(ctx, query, id).Scan, lot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var lot domain.ParkingLot
		if err := scanLotRow(rows.Scan, &lot); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	// available_spaces không được sửa trực tiếp qua Update; chỉ các thao tác
	// inventory (reserve/occupy/vacate, tạo/hủy reservation) được đụng vào nó.
	query := `UPDATE parking_lots
	           SET name = $1, address = $2, latitude = $3, longitude = $4, total_spaces = $5,
	               available_spaces = LEAST(available_spaces, $5), hourly_rate = $6, status = $7, owner_id = $8,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $9
	           RETURNING available_spaces, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.TotalSpaces,
		lot.HourlyRate, lot.Status, lot.OwnerID, lot.ID,
	).Scan(&lot.AvailableSpaces, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
			}
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM parking_lots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
