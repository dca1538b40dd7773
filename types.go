package authflow

import (
	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/route"
	"github.com/gotg/authflow/session"
)

// Notification is a user-facing message raised by a flow.
type Notification = notify.Notification

// NotificationKind is success, error or info.
type NotificationKind = notify.Kind

// NotificationSink receives notifications asynchronously, in emit order.
type NotificationSink = notify.Sink

// NotificationSinkFunc adapts a function to NotificationSink.
type NotificationSinkFunc = notify.SinkFunc

const (
	NotificationSuccess = notify.KindSuccess
	NotificationError   = notify.KindError
	NotificationInfo    = notify.KindInfo
)

// NewChannelSink returns a sink that buffers notifications in a channel.
func NewChannelSink(buffer int) *notify.ChannelSink { return notify.NewChannelSink(buffer) }

// Phase is the controller's in-flight operation.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseSigningIn
	PhaseSigningUp
	PhaseResending
	PhaseSigningOut
)

func (p Phase) String() string {
	switch p {
	case PhaseSigningIn:
		return "signing_in"
	case PhaseSigningUp:
		return "signing_up"
	case PhaseResending:
		return "resending"
	case PhaseSigningOut:
		return "signing_out"
	default:
		return "idle"
	}
}

// Snapshot is a consistent read of the controller state.
type Snapshot struct {
	State            route.AuthState
	Phase            Phase
	PendingEmail     string
	IsResending      bool
	Session          *session.Session
	LastError        *AuthError
	LastNotification *Notification
}
