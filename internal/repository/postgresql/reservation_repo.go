package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `r.id, r.lot_id, r.space_id, r.user_id, r.vehicle_plate, r.notes,
	r.start_time, r.end_time, r.status, l.hourly_rate, r.cancelled_at, r.completed_at, r.created_at, r.updated_at`

const reservationFrom = ` FROM reservations r
	JOIN parking_lots l ON l.id = r.lot_id
	JOIN parking_spaces s ON s.id = r.space_id`

func scanReservationRow(scan func(dest ...interface{}) error, res *domain.Reservation) error {
	err := scan(
		&res.ID, &res.LotID, &res.SpaceID, &res.UserID, &res.VehiclePlate, &res.Notes,
		&res.StartTime, &res.EndTime, &res.Status, &res.HourlyRate,
		&res.CancelledAt, &res.CompletedAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return err
	}
	res.StartTime = res.StartTime.In(time.UTC)
	res.EndTime = res.EndTime.In(time.UTC)
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return nil
}

// CreateWithInventory chèn reservation và cập nhật inventory trong một
// transaction: khóa hàng chỗ đỗ, kiểm tra trùng khung giờ, chuyển chỗ đỗ sang
// reserved và trừ counter của bãi. Hai request đồng thời giành cùng một chỗ
// thì chỉ một request thắng, request kia nhận ErrNoSpaceAvailable.
func (r *pgReservationRepository) CreateWithInventory(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		var space *domain.ParkingSpace
		var err error

		if res.SpaceID != 0 {
			space, err = lockSpace(ctx, tx, res.SpaceID)
			if err != nil {
				return err
			}
			if space.LotID != res.LotID {
				return fmt.Errorf("%w: chỗ đỗ %d không thuộc bãi %d", repository.ErrNotFound, res.SpaceID, res.LotID)
			}
			if space.Status != domain.SpaceAvailable {
				return fmt.Errorf("%w: chỗ đỗ %d đang ở trạng thái '%s'", repository.ErrNoSpaceAvailable, res.SpaceID, space.Status)
			}
		} else {
			// Không chỉ định chỗ: lấy chỗ trống đầu tiên theo space_number.
			// SKIP LOCKED để hai request đồng thời không chờ nhau trên cùng hàng.
			space = &domain.ParkingSpace{}
			query := `SELECT ` + spaceColumns + ` FROM parking_spaces
			           WHERE lot_id = $1 AND status = 'available'
			           ORDER BY space_number ASC LIMIT 1
			           FOR UPDATE SKIP LOCKED`
			err = scanSpaceRow(tx.QueryRowContext(ctx, query, res.LotID).Scan, space)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("%w: bãi %d không còn chỗ trống", repository.ErrNoSpaceAvailable, res.LotID)
				}
				return fmt.Errorf("ReservationRepository.CreateWithInventory (tìm chỗ trống): %w", err)
			}
			res.SpaceID = space.ID
		}

		// Trùng khung giờ: khoảng mới giao với một reservation pending/active
		// bất kỳ trên cùng chỗ đỗ (newStart < end AND newEnd > start).
		var overlaps bool
		overlapQuery := `SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE space_id = $1 AND status IN ('pending', 'active')
			  AND start_time < $3 AND end_time > $2)`
		if err := tx.QueryRowContext(ctx, overlapQuery, res.SpaceID, res.StartTime, res.EndTime).Scan(&overlaps); err != nil {
			return fmt.Errorf("ReservationRepository.CreateWithInventory (kiểm tra trùng giờ): %w", err)
		}
		if overlaps {
			return fmt.Errorf("%w: chỗ đỗ %d trong khoảng %s - %s",
				repository.ErrOverlappingReservation, res.SpaceID,
				res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339))
		}

		insertQuery := `INSERT INTO reservations (lot_id, space_id, user_id, vehicle_plate, notes, start_time, end_time, status, created_at, updated_at)
		           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		           RETURNING id, created_at, updated_at`
		err = tx.QueryRowContext(ctx, insertQuery,
			res.LotID, res.SpaceID, res.UserID, res.VehiclePlate, res.Notes,
			res.StartTime, res.EndTime, res.Status,
		).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			return fmt.Errorf("ReservationRepository.CreateWithInventory (insert): %w", err)
		}

		if err := setSpaceState(ctx, tx, res.SpaceID, domain.SpaceReserved, null.IntFrom(int64(res.UserID))); err != nil {
			return err
		}
		return adjustLotCounter(ctx, tx, res.LotID, -1)
	})
	if err != nil {
		return nil, err
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

// lockReservation đọc và khóa một reservation (kèm hourly_rate của bãi).
// userID = 0 bỏ qua kiểm tra chủ sở hữu (dùng cho scanner).
func lockReservation(ctx context.Context, tx *sql.Tx, id int, userID int) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + reservationFrom + ` WHERE r.id = $1`
	args := []interface{}{id}
	if userID != 0 {
		query += ` AND r.user_id = $2`
		args = append(args, userID)
	}
	query += ` FOR UPDATE OF r`
	err := scanReservationRow(tx.QueryRowContext(ctx, query, args...).Scan, res)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lockReservation: %w", err)
	}
	return res, nil
}

// releaseSpaceIfHeld trả chỗ đỗ của reservation về available nếu nó vẫn đang
// reserved/occupied, và cộng lại counter của bãi.
func releaseSpaceIfHeld(ctx context.Context, tx *sql.Tx, res *domain.Reservation) error {
	space, err := lockSpace(ctx, tx, res.SpaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil // Chỗ đỗ đã bị xóa, không còn gì để trả
		}
		return err
	}
	if !space.Status.Unavailable() {
		return nil
	}
	if err := setSpaceState(ctx, tx, space.ID, domain.SpaceAvailable, null.Int{}); err != nil {
		return err
	}
	return adjustLotCounter(ctx, tx, space.LotID, +1)
}

func (r *pgReservationRepository) CancelWithInventory(ctx context.Context, id int, userID int) (*domain.Reservation, error) {
	var result *domain.Reservation
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if !res.Status.CanTransitionTo(domain.ReservationCancelled) {
			return fmt.Errorf("%w: không thể hủy reservation đang ở trạng thái '%s'", repository.ErrInvalidState, res.Status)
		}

		now := time.Now().UTC()
		query := `UPDATE reservations
		           SET status = 'cancelled', cancelled_at = $1, updated_at = CURRENT_TIMESTAMP
		           WHERE id = $2
		           RETURNING updated_at`
		if err := tx.QueryRowContext(ctx, query, now, id).Scan(&res.UpdatedAt); err != nil {
			return fmt.Errorf("ReservationRepository.CancelWithInventory: %w", err)
		}
		res.Status = domain.ReservationCancelled
		res.CancelledAt = null.TimeFrom(now)

		if err := releaseSpaceIfHeld(ctx, tx, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgReservationRepository) ExpireWithInventory(ctx context.Context, id int) (*domain.Reservation, error) {
	var result *domain.Reservation
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, id, 0)
		if err != nil {
			return err
		}
		// Chỉ reservation còn active mới hết hạn được; bản ghi đã bị hủy hoặc
		// hoàn thành giữa hai lần quét thì bỏ qua.
		if res.Status != domain.ReservationActive {
			return fmt.Errorf("%w: reservation %d đang ở trạng thái '%s'", repository.ErrInvalidState, id, res.Status)
		}

		query := `UPDATE reservations
		           SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		           WHERE id = $1
		           RETURNING updated_at`
		if err := tx.QueryRowContext(ctx, query, id).Scan(&res.UpdatedAt); err != nil {
			return fmt.Errorf("ReservationRepository.ExpireWithInventory: %w", err)
		}
		res.Status = domain.ReservationExpired

		if err := releaseSpaceIfHeld(ctx, tx, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgReservationRepository) UpdateStatus(ctx context.Context, id int, userID int, status domain.ReservationStatus) (*domain.Reservation, error) {
	var result *domain.Reservation
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if res.Status == status {
			result = res // Không đổi gì, trả nguyên trạng
			return nil
		}
		if !res.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: không thể chuyển từ '%s' sang '%s'", repository.ErrInvalidState, res.Status, status)
		}

		now := time.Now().UTC()
		var cancelledAt, completedAt null.Time
		cancelledAt = res.CancelledAt
		completedAt = res.CompletedAt
		switch status {
		case domain.ReservationCancelled:
			cancelledAt = null.TimeFrom(now)
		case domain.ReservationCompleted:
			completedAt = null.TimeFrom(now)
		}

		query := `UPDATE reservations
		           SET status = $1, cancelled_at = $2, completed_at = $3, updated_at = CURRENT_TIMESTAMP
		           WHERE id = $4
		           RETURNING updated_at`
		if err := tx.QueryRowContext(ctx, query, status, cancelledAt, completedAt, id).Scan(&res.UpdatedAt); err != nil {
			return fmt.Errorf("ReservationRepository.UpdateStatus: %w", err)
		}
		res.Status = status
		res.CancelledAt = cancelledAt
		res.CompletedAt = completedAt

		// cancelled/expired trả chỗ đỗ về available; completed thì không —
		// chỗ đỗ chỉ được giải phóng qua thao tác vacate riêng.
		if status == domain.ReservationCancelled || status == domain.ReservationExpired {
			if err := releaseSpaceIfHeld(ctx, tx, res); err != nil {
				return err
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + reservationFrom + ` WHERE r.id = $1`
	err := scanReservationRow(r.db.QueryRowContext(ctx, query, id).Scan, res)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindByIDAndUser(ctx context.Context, id int, userID int) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + reservationFrom + ` WHERE r.id = $1 AND r.user_id = $2`
	err := scanReservationRow(r.db.QueryRowContext(ctx, query, id, userID).Scan, res)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByIDAndUser: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) Find(ctx context.Context, filter domain.ReservationFilterDTO) (*domain.PaginatedReservations, error) {
	filter.Normalize()

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		conds = append(conds, "r.user_id = "+arg(*filter.UserID))
	}
	if filter.Status != "" {
		conds = append(conds, "r.status = "+arg(filter.Status))
	}
	if filter.LotID != nil {
		conds = append(conds, "r.lot_id = "+arg(*filter.LotID))
	}
	if filter.SpaceID != nil {
		conds = append(conds, "r.space_id = "+arg(*filter.SpaceID))
	}
	if filter.VehiclePlate != "" {
		conds = append(conds, "r.vehicle_plate ILIKE "+arg("%"+filter.VehiclePlate+"%"))
	}
	if filter.StartDate != "" {
		if d, err := time.Parse("2006-01-02", filter.StartDate); err == nil {
			conds = append(conds, "r.start_time::date >= "+arg(d))
		}
	}
	if filter.EndDate != "" {
		if d, err := time.Parse("2006-01-02", filter.EndDate); err == nil {
			conds = append(conds, "r.end_time::date <= "+arg(d))
		}
	}
	switch filter.StatusFilter {
	case "active", "completed", "cancelled":
		conds = append(conds, "r.status = "+arg(filter.StatusFilter))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(r.vehicle_plate ILIKE %s OR r.notes ILIKE %s OR l.name ILIKE %s OR s.space_number ILIKE %s)", p, p, p, p))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	countQuery := `SELECT COUNT(*)` + reservationFrom + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (count): %w", err)
	}

	query := `SELECT ` + reservationColumns + reservationFrom + where +
		` ORDER BY ` + filter.SortClause() +
		` LIMIT ` + arg(filter.PageSize) + ` OFFSET ` + arg((filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	defer rows.Close()

	results := []domain.Reservation{}
	for rows.Next() {
		var res domain.Reservation
		if err := scanReservationRow(rows.Scan, &res); err != nil {
			return nil, fmt.Errorf("ReservationRepository.Find (scanning row): %w", err)
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (rows error): %w", err)
	}

	return &domain.PaginatedReservations{
		Count:    count,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Results:  results,
	}, nil
}

func (r *pgReservationRepository) FindByUserAndStatus(ctx context.Context, userID int, status domain.ReservationStatus, after *time.Time) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + ` WHERE r.user_id = $1 AND r.status = $2`
	args := []interface{}{userID, status}
	if after != nil {
		// active: còn hiệu lực (end_time > now); pending: chưa bắt đầu (start_time > now)
		if status == domain.ReservationActive {
			query += ` AND r.end_time > $3`
		} else {
			query += ` AND r.start_time > $3`
		}
		args = append(args, *after)
	}
	query += ` ORDER BY r.created_at DESC`
	return r.queryReservations(ctx, query, args...)
}

func (r *pgReservationRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom +
		` WHERE r.status = 'active' AND r.end_time < $1 ORDER BY r.end_time`
	return r.queryReservations(ctx, query, now)
}

func (r *pgReservationRepository) FindUpcomingPending(ctx context.Context, now time.Time, window time.Duration) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom +
		` WHERE r.status = 'pending' AND r.start_time > $1 AND r.start_time <= $2 ORDER BY r.start_time`
	return r.queryReservations(ctx, query, now, now.Add(window))
}

func (r *pgReservationRepository) queryReservations(ctx context.Context, query string, args ...interface{}) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository (query): %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := scanReservationRow(rows.Scan, &res); err != nil {
			return nil, fmt.Errorf("ReservationRepository (scanning row): %w", err)
		}
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository (rows error): %w", err)
	}
	return reservations, nil
}
