// Package notify simulates the e-mails sent when meetings are created and joined. Nothing is delivered: messages are
// rendered and logged after a delay that stands in for the mail provider's latency.
package notify

import (
	"context"

	"studygroup/internal/models"
)

// Result is the outcome of a single notification. Notifiers report failure here instead of returning an error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var (
	sent   = Result{Success: true, Message: "Notification sent successfully"}
	failed = Result{Success: false, Message: "Failed to send notification"}
)

// Notifier tells participants about changes to their meetings.
type Notifier interface {
	// NotifyJoined is sent to a participant after they joined. The meeting includes them.
	NotifyJoined(ctx context.Context, meeting *models.Meeting, email string, name string) Result
	// NotifyCreated is sent to the creator of a new meeting.
	NotifyCreated(ctx context.Context, meeting *models.Meeting, email string, name string) Result
}

// AccountMailer sends the e-mails the identity provider relies on.
type AccountMailer interface {
	SendVerificationEmail(ctx context.Context, email string, link string) Result
	SendPasswordResetEmail(ctx context.Context, email string, link string) Result
}
