package domain

import (
	"fmt"
	"time"
)

// EventType is the notification kind understood by the backend (0 to 5).
type EventType int

// UnknownEventType marks a notification whose type could not be determined.
const UnknownEventType EventType = -1

const (
	Follow EventType = iota
	Unfollow
	PrivateChatRequest
	VotedPost
	RemovedFollower
	CommentedPost
)

func (e EventType) String() string {
	switch e {
	case Follow:
		return "follow"
	case Unfollow:
		return "unfollow"
	case PrivateChatRequest:
		return "private_chat_request"
	case VotedPost:
		return "voted_post"
	case RemovedFollower:
		return "removed_follower"
	case CommentedPost:
		return "commented_post"
	default:
		return fmt.Sprintf("event_type(%d)", int(e))
	}
}

func (e EventType) Valid() bool {
	return e >= Follow && e <= CommentedPost
}

// DerivedKind is the classification obtained from the notification text.
// The empty value means the text matched no known pattern.
type DerivedKind string

const (
	KindUnknown            DerivedKind = ""
	KindFollow             DerivedKind = "follow"
	KindUnfollow           DerivedKind = "unfollow"
	KindPrivateChatRequest DerivedKind = "private_chat_request"
	KindVotedPost          DerivedKind = "voted_post"
	KindRemovedFollower    DerivedKind = "removed_follower"
	KindCommentedPost      DerivedKind = "commented_post"
)

var kindByEventType = map[EventType]DerivedKind{
	Follow:             KindFollow,
	Unfollow:           KindUnfollow,
	PrivateChatRequest: KindPrivateChatRequest,
	VotedPost:          KindVotedPost,
	RemovedFollower:    KindRemovedFollower,
	CommentedPost:      KindCommentedPost,
}

// EventType returns the backend event type matching a classified kind.
func (k DerivedKind) EventType() (EventType, bool) {
	for eventType, kind := range kindByEventType {
		if kind == k {
			return eventType, true
		}
	}
	return 0, false
}

// Payload keys carried by notifications.
const (
	PayloadRoomID = "room_id"
	PayloadPostID = "post_id"
	PayloadUserID = "user_id"
	PayloadActor  = "actor"
)

// Notification is immutable once received.
type Notification struct {
	ID           string
	EventType    EventType
	SourceUserID string
	ReceivedAt   time.Time
	DerivedKind  DerivedKind
	Message      string
	Payload      map[string]any
}

// NotificationKey identifies a notification across restores.
type NotificationKey struct {
	SourceUserID string
	EventType    EventType
	ReceivedAt   int64
}

func (n Notification) Key() NotificationKey {
	return NotificationKey{
		SourceUserID: n.SourceUserID,
		EventType:    n.EventType,
		ReceivedAt:   n.ReceivedAt.UnixNano(),
	}
}

// PayloadString returns a string payload entry, if any.
func (n Notification) PayloadString(key string) (string, bool) {
	v, ok := n.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
