package redis

import "fmt"

const ns = "seatline:v1"

func KeyScheduleAvailability(scheduleID int64) string {
	return fmt.Sprintf("%s:schedule:%d:availability", ns, scheduleID)
}

func KeyScheduleDetail(scheduleID int64) string {
	return fmt.Sprintf("%s:schedule:%d:detail", ns, scheduleID)
}

func KeyRoomSeats(roomID int64) string {
	return fmt.Sprintf("%s:room:%d:seats", ns, roomID)
}

func KeySubject(subjectID int64) string {
	return fmt.Sprintf("%s:subject:%d", ns, subjectID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

// KeyIdemClaim scopes a client idempotency key to one holder and schedule so
// two holders reusing a key never see each other's result.
func KeyIdemClaim(scheduleID int64, holderID, idemKey string) string {
	return fmt.Sprintf("%s:idem:claims:%d:%s:%s", ns, scheduleID, holderID, idemKey)
}

func ChannelSchedulesChanged() string {
	return ns + ":schedules:changed"
}
