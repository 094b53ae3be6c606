package model

import "time"

const (
	NotifTypeChoreReminder    = "chore_reminder"
	NotifTypeRoutineCompleted = "routine_completed"
)

type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
