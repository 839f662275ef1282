package services

import "aftercollage_app_go/models"

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a toast shown to whoever triggered an operation
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message}
}

func Failure(message string) Notification {
	return Notification{Level: LevelError, Message: message}
}

// User-facing messages
const (
	MsgSubmitFailed       = "Something went wrong. Please try again."
	MsgSubmitBusy         = "Your submission is already being sent."
	MsgAccessDenied       = "Access denied. Admin privileges required."
	MsgStatusUpdated      = "Status updated"
	MsgStatusUpdateFailed = "Failed to update status"
	MsgNoData             = "No data to export"
	MsgSignedOut          = "Signed out successfully"
	MsgLoadFailed         = "Failed to load submissions"
	MsgVerificationFailed = "Please complete the verification challenge"
	MsgInvalidLogin       = "Invalid email or password"
	MsgInvalidRequest     = "Invalid request"
)

// SuccessMessage is shown after a submission of kind is stored
func SuccessMessage(kind models.Kind) string {
	switch kind {
	case models.KindEarlyAccess:
		return "You're on the list! We'll notify you when early access opens."
	case models.KindPartner:
		return "Thank you for your interest! We will get back to you soon."
	default:
		return "Message sent successfully! We will get back to you soon."
	}
}
