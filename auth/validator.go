package auth

import (
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// requiredData lists the additional_data keys each event type must carry.
var requiredData = map[domain.EventType]string{
	domain.PrivateChatRequest: domain.PayloadRoomID,
	domain.CommentedPost:      domain.PayloadPostID,
}

// ValidateSetNotification checks an outbound set:notification before it is emitted.
func ValidateSetNotification(payload event.SetNotificationPayload) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidNotification, err)
	}

	key, ok := requiredData[domain.EventType(payload.EventType)]
	if !ok {
		return nil
	}
	value, _ := payload.AdditionalData[key].(string)
	if value == "" {
		return fmt.Errorf("%w: %s requires additional_data.%s",
			errors.ErrInvalidNotification, domain.EventType(payload.EventType), key)
	}
	return nil
}

// ValidateOutbound checks any outbound payload carrying validate tags.
func ValidateOutbound(payload any) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid outbound payload: %w", err)
	}
	return nil
}
