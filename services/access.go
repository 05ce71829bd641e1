package services

import (
	"fmt"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/types"
)

// Action names a booking operation that needs an authorization decision.
type Action int

const (
	ActionCreateBooking Action = iota + 1
	ActionViewBooking
	ActionListAllBookings
	ActionAssignWorker
	ActionUnassignWorker
	ActionMarkDone
	ActionApprove
	ActionCancel
	ActionOverrideStatus
	ActionWorkerUpdateStatus
	ActionDeleteBooking
	ActionSubmitFeedback
	ActionViewFeedback
	ActionDownloadReceipt
	ActionListCandidates
)

var actionNames = map[Action]string{
	ActionCreateBooking:      "create booking",
	ActionViewBooking:        "view booking",
	ActionListAllBookings:    "list all bookings",
	ActionAssignWorker:       "assign worker",
	ActionUnassignWorker:     "unassign worker",
	ActionMarkDone:           "mark booking as done",
	ActionApprove:            "approve booking",
	ActionCancel:             "cancel booking",
	ActionOverrideStatus:     "override booking status",
	ActionWorkerUpdateStatus: "update booking status",
	ActionDeleteBooking:      "delete booking",
	ActionSubmitFeedback:     "submit feedback",
	ActionViewFeedback:       "view feedback",
	ActionDownloadReceipt:    "download receipt",
	ActionListCandidates:     "list eligible workers",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Authorize decides whether p may perform action on booking. booking may be nil
// for actions that do not target one record.
func Authorize(p types.Principal, action Action, booking *models.Booking) error {
	var allowed bool
	switch p.Kind {
	case types.KindAdmin:
		allowed = adminMay(action)
	case types.KindCustomer:
		allowed = customerMay(p, action, booking)
	case types.KindWorker:
		allowed = workerMay(p, action, booking)
	default:
		allowed = false
	}
	if !allowed {
		return apperror.Forbidden("Not allowed to %s", action)
	}
	return nil
}

func adminMay(action Action) bool {
	switch action {
	case ActionCreateBooking, ActionApprove, ActionWorkerUpdateStatus:
		return false
	default:
		return true
	}
}

func customerMay(p types.Principal, action Action, booking *models.Booking) bool {
	owner := booking != nil && booking.CustomerID == p.ID
	switch action {
	case ActionCreateBooking:
		return true
	case ActionViewBooking, ActionApprove, ActionCancel, ActionDeleteBooking,
		ActionSubmitFeedback, ActionViewFeedback, ActionDownloadReceipt:
		return owner
	case ActionListAllBookings, ActionAssignWorker, ActionUnassignWorker, ActionMarkDone,
		ActionOverrideStatus, ActionWorkerUpdateStatus, ActionListCandidates:
		return false
	default:
		return false
	}
}

func workerMay(p types.Principal, action Action, booking *models.Booking) bool {
	assigned := booking != nil && booking.IsAssignedTo(p.ID)
	switch action {
	case ActionViewBooking, ActionMarkDone, ActionWorkerUpdateStatus, ActionViewFeedback:
		return assigned
	case ActionCreateBooking, ActionListAllBookings, ActionAssignWorker, ActionUnassignWorker,
		ActionApprove, ActionCancel, ActionOverrideStatus, ActionDeleteBooking,
		ActionSubmitFeedback, ActionDownloadReceipt, ActionListCandidates:
		return false
	default:
		return false
	}
}
