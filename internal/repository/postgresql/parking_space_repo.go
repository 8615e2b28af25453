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
	"gopkg.in/guregu/null.v4"
)

type pgParkingSpaceRepository struct {
	db *sql.DB
}

func NewPgParkingSpaceRepository(db *sql.DB) repository.ParkingSpaceRepository {
	return &pgParkingSpaceRepository{db: db}
}

const spaceColumns = `id, lot_id, space_number, status, current_user_id, created_at, updated_at`

func scanSpaceRow(scan func(dest ...interface{}) error, space *domain.ParkingSpace) error {
	err := scan(
		&space.ID, &space.LotID, &space.SpaceNumber, &space.Status,
		&space.CurrentUserID, &space.CreatedAt, &space.UpdatedAt,
	)
	if err != nil {
		return err
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSpaceRepository) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `INSERT INTO parking_spaces (lot_id, space_number, status, created_at, updated_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, space.LotID, space.SpaceNumber, space.Status).
		Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại trong bãi %d", repository.ErrDuplicateEntry, space.SpaceNumber, space.LotID)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return nil, fmt.Errorf("%w: bãi đỗ xe %d không tồn tại", repository.ErrNotFound, space.LotID)
			}
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Create: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE id = $1`
	err := scanSpaceRow(r.db.QueryRowContext(ctx, query, id).Scan, space)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByID: %w", err)
	}
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE lot_id = $1 ORDER BY space_number`
	return r.querySpaces(ctx, query, lotID)
}

func (r *pgParkingSpaceRepository) FindAvailableByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE lot_id = $1 AND status = 'available' ORDER BY space_number`
	return r.querySpaces(ctx, query, lotID)
}

func (r *pgParkingSpaceRepository) querySpaces(ctx context.Context, query string, args ...interface{}) ([]domain.ParkingSpace, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository (query): %w", err)
	}
	defer rows.Close()

	var spaces []domain.ParkingSpace
	for rows.Next() {
		var space domain.ParkingSpace
		if err := scanSpaceRow(rows.Scan, &space); err != nil {
			return nil, fmt.Errorf("ParkingSpaceRepository (scanning row): %w", err)
		}
		spaces = append(spaces, space)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository (rows error): %w", err)
	}
	return spaces, nil
}

func (r *pgParkingSpaceRepository) Update(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `UPDATE parking_spaces
	           SET lot_id = $1, space_number = $2, status = $3, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $4
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, space.LotID, space.SpaceNumber, space.Status, space.ID).
		Scan(&space.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại trong bãi %d", repository.ErrDuplicateEntry, space.SpaceNumber, space.LotID)
			}
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Update: %w", err)
	}
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM parking_spaces WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// lockSpace đọc và khóa hàng chỗ đỗ (FOR UPDATE) trong transaction đang mở,
// để hai request đồng thời trên cùng chỗ đỗ được tuần tự hóa ở tầng database.
func lockSpace(ctx context.Context, tx *sql.Tx, spaceID int) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE id = $1 FOR UPDATE`
	err := scanSpaceRow(tx.QueryRowContext(ctx, query, spaceID).Scan, space)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lockSpace: %w", err)
	}
	return space, nil
}

func setSpaceState(ctx context.Context, tx *sql.Tx, spaceID int, status domain.SpaceStatus, userID null.Int) error {
	query := `UPDATE parking_spaces
	           SET status = $1, current_user_id = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, status, userID, spaceID); err != nil {
		return fmt.Errorf("setSpaceState: %w", err)
	}
	return nil
}

// adjustLotCounter cộng/trừ available_spaces của bãi, kẹp trong [0, total_spaces].
func adjustLotCounter(ctx context.Context, tx *sql.Tx, lotID int, delta int) error {
	query := `UPDATE parking_lots
	           SET available_spaces = LEAST(total_spaces, GREATEST(0, available_spaces + $1)),
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, delta, lotID); err != nil {
		return fmt.Errorf("adjustLotCounter: %w", err)
	}
	return nil
}

func (r *pgParkingSpaceRepository) Reserve(ctx context.Context, spaceID int, userID int) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		space, err := lockSpace(ctx, tx, spaceID)
		if err != nil {
			return err
		}
		if space.Status != domain.SpaceAvailable {
			return fmt.Errorf("%w: chỗ đỗ %d đang ở trạng thái '%s'", repository.ErrInvalidState, spaceID, space.Status)
		}
		if err := setSpaceState(ctx, tx, spaceID, domain.SpaceReserved, null.IntFrom(int64(userID))); err != nil {
			return err
		}
		return adjustLotCounter(ctx, tx, space.LotID, -1)
	})
}

func (r *pgParkingSpaceRepository) Occupy(ctx context.Context, spaceID int, userID int) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		space, err := lockSpace(ctx, tx, spaceID)
		if err != nil {
			return err
		}
		if space.Status == domain.SpaceOccupied {
			return fmt.Errorf("%w: chỗ đỗ %d đã có xe", repository.ErrInvalidState, spaceID)
		}
		if err := setSpaceState(ctx, tx, spaceID, domain.SpaceOccupied, null.IntFrom(int64(userID))); err != nil {
			return err
		}
		// Chỗ đang reserved đã bị trừ counter từ trước, không trừ lần nữa.
		if space.Status == domain.SpaceAvailable {
			return adjustLotCounter(ctx, tx, space.LotID, -1)
		}
		return nil
	})
}

func (r *pgParkingSpaceRepository) Vacate(ctx context.Context, spaceID int) error {
	return runInTx(ctx, r.db, func(tx *sql.Tx) error {
		space, err := lockSpace(ctx, tx, spaceID)
		if err != nil {
			return err
		}
		if !space.Status.Unavailable() {
			return fmt.Errorf("%w: chỗ đỗ %d đang trống", repository.ErrInvalidState, spaceID)
		}
		if err := setSpaceState(ctx, tx, spaceID, domain.SpaceAvailable, null.Int{}); err != nil {
			return err
		}
		return adjustLotCounter(ctx, tx, space.LotID, +1)
	})
}
