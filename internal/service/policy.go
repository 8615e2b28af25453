package service

import "parking_reservation/internal/domain"

// Action là một thao tác cần kiểm tra quyền, tách khỏi tầng HTTP
// để policy test được độc lập.
type Action string

const (
	ActionLotRead         Action = "lot:read"
	ActionLotWrite        Action = "lot:write"
	ActionSpaceRead       Action = "space:read"
	ActionSpaceWrite      Action = "space:write"
	ActionSpaceTransition Action = "space:transition" // reserve/occupy/vacate

	ActionReservationCreate     Action = "reservation:create"
	ActionReservationRead       Action = "reservation:read"
	ActionReservationTransition Action = "reservation:transition" // cancel/complete/đổi trạng thái
	ActionReservationListAll    Action = "reservation:list_all"

	ActionReportView       Action = "report:view"
	ActionNotificationRead Action = "notification:read"
)

// Allow là policy tập trung duy nhất: (vai trò, thao tác, có sở hữu resource
// hay không) -> cho phép/từ chối. Mọi kiểm tra quyền rải rác theo route đều
// phải đi qua đây.
func Allow(role domain.UserRole, action Action, owns bool) bool {
	if role == domain.RoleAdmin {
		return true
	}
	if role != domain.RoleUser {
		return false
	}
	switch action {
	case ActionLotRead, ActionSpaceRead:
		return true
	case ActionSpaceTransition:
		// User thường được reserve/occupy/vacate cho chính mình
		return true
	case ActionReservationCreate:
		return true
	case ActionReservationRead, ActionReservationTransition, ActionNotificationRead:
		return owns
	default:
		// lot:write, space:write, report:view, reservation:list_all chỉ dành cho admin
		return false
	}
}
