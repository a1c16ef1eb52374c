package event

type RoomPayload struct {
	Room string `json:"room"`
}

type SetNotificationPayload struct {
	EventType      int            `json:"event_type" validate:"gte=0,lte=5"`
	UserID         string         `json:"user_id" validate:"required"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

type SendMessagePayload struct {
	Room    string `json:"room" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type PrivateChatInvitePayload struct {
	Room          string `json:"room" validate:"required"`
	InvitedUserID string `json:"invited_user_id" validate:"required"`
	PrivateRoomID string `json:"private_room_id" validate:"required"`
}
