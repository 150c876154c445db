package board

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fentz26/fleetboard/internal/models"
	"github.com/fentz26/fleetboard/internal/record"
)

// Post appends a new message from one role to another and returns it.
func (b *Board) Post(fromRole, toRole, body string) (models.Message, error) {
	if err := checkRole(fromRole); err != nil {
		return models.Message{}, err
	}
	if err := checkRole(toRole); err != nil {
		return models.Message{}, err
	}
	if body == "" {
		return models.Message{}, fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}

	msg := models.Message{
		ID:        newID(),
		FromRole:  fromRole,
		ToRole:    toRole,
		Body:      body,
		CreatedAt: b.now().UTC(),
	}
	if err := record.Write(b.messagesDir, msg.ID, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Messages returns messages addressed to role, oldest first, optionally
// restricted to unread ones. Listing never marks anything read; MarkRead is
// a separate explicit step so an unread message cannot be lost to a
// listing-only call.
func (b *Board) Messages(role string, unreadOnly bool) ([]models.Message, error) {
	if err := checkRole(role); err != nil {
		return nil, err
	}

	all, err := record.List[models.Message](b.messagesDir, func(path string, err error) {
		b.log.Warnf("board: skipping corrupt message record %s: %v", path, err)
	})
	if err != nil {
		return nil, err
	}

	var msgs []models.Message
	for _, m := range all {
		if m.ToRole != role {
			continue
		}
		if unreadOnly && m.Read {
			continue
		}
		msgs = append(msgs, m)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

// MarkRead sets the read flag on a message.
func (b *Board) MarkRead(msgID string) (models.Message, error) {
	msg, err := record.Read[models.Message](b.messagesDir, msgID)
	if errors.Is(err, record.ErrNotFound) {
		return models.Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}
	if err != nil {
		return models.Message{}, err
	}
	if msg.Read {
		return msg, nil
	}
	msg.Read = true
	if err := record.Write(b.messagesDir, msg.ID, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func checkRole(role string) error {
	if !roleNameRE.MatchString(role) {
		return fmt.Errorf("%w: %q (must match %s)", ErrInvalidRole, role, roleNameRE.String())
	}
	return nil
}
