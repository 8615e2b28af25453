package domain

import (
	"testing"
	"time"
)

func TestReservationTotalCost(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	res := Reservation{
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		HourlyRate: 10.0,
	}

	if got := res.Duration(); got != 2.0 {
		t.Errorf("Duration() = %v, muốn 2.0", got)
	}
	if got := res.TotalCost(); got != 20.0 {
		t.Errorf("TotalCost() = %v, muốn 20.0", got)
	}
}

func TestReservationTotalCostZeroTimes(t *testing.T) {
	res := Reservation{HourlyRate: 10.0}
	if got := res.TotalCost(); got != 0 {
		t.Errorf("TotalCost() với thời gian rỗng = %v, muốn 0", got)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ReservationStatus
		to      ReservationStatus
		allowed bool
	}{
		{ReservationPending, ReservationActive, true},
		{ReservationPending, ReservationCancelled, true},
		{ReservationPending, ReservationExpired, true},
		{ReservationPending, ReservationCompleted, false},
		{ReservationActive, ReservationCompleted, true},
		{ReservationActive, ReservationCancelled, true},
		{ReservationActive, ReservationExpired, true},
		{ReservationActive, ReservationPending, false},
		{ReservationCompleted, ReservationActive, false},
		{ReservationCancelled, ReservationPending, false},
		{ReservationExpired, ReservationActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, muốn %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []ReservationStatus{ReservationCompleted, ReservationCancelled, ReservationExpired} {
		if !s.Terminal() {
			t.Errorf("%s phải là trạng thái cuối", s)
		}
	}
	for _, s := range []ReservationStatus{ReservationPending, ReservationActive} {
		if s.Terminal() {
			t.Errorf("%s không phải trạng thái cuối", s)
		}
	}
}

func TestFilterSortClauseWhitelist(t *testing.T) {
	f := ReservationFilterDTO{SortBy: "-start_time"}
	if got := f.SortClause(); got != "r.start_time DESC" {
		t.Errorf("SortClause() = %q", got)
	}

	// Giá trị lạ phải rơi về mặc định, không được lọt vào SQL
	f = ReservationFilterDTO{SortBy: "id; DROP TABLE reservations"}
	if got := f.SortClause(); got != "r.created_at DESC" {
		t.Errorf("SortClause() với input lạ = %q, muốn mặc định", got)
	}
}

func TestFilterNormalize(t *testing.T) {
	f := ReservationFilterDTO{Page: 0, PageSize: 0}
	f.Normalize()
	if f.Page != 1 || f.PageSize != DefaultPageSize {
		t.Errorf("Normalize() = page %d size %d", f.Page, f.PageSize)
	}

	f = ReservationFilterDTO{Page: 3, PageSize: 1000}
	f.Normalize()
	if f.PageSize != MaxPageSize {
		t.Errorf("Normalize() phải kẹp page_size về %d, được %d", MaxPageSize, f.PageSize)
	}
}

func TestLotOccupancyRate(t *testing.T) {
	lot := ParkingLot{TotalSpaces: 10, AvailableSpaces: 3}
	if got := lot.OccupancyRate(); got != 70.0 {
		t.Errorf("OccupancyRate() = %v, muốn 70", got)
	}

	empty := ParkingLot{}
	if got := empty.OccupancyRate(); got != 0 {
		t.Errorf("OccupancyRate() bãi rỗng = %v, muốn 0", got)
	}
}
