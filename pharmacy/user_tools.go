package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pherr "github.com/sweetpotato0/pharmacy-assistant/errors"
	"github.com/sweetpotato0/pharmacy-assistant/store"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

// profileArgs keeps user_id a pointer so an explicit zero is distinguishable
// from an absent identifier.
type profileArgs struct {
	UserID *int64 `json:"user_id"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// GetUserProfile identifies a customer by id, phone, email or name, tried
// in that order. The first identifier present decides the lookup; a miss on
// it fails rather than falling through to weaker identifiers.
func (t *Tools) GetUserProfile(ctx context.Context, args map[string]any) tool.Result {
	var a profileArgs
	if err := tool.DecodeArgs(args, &a); err != nil {
		return invalidArgs("get_user_profile", err)
	}
	var userID int64
	if a.UserID != nil {
		userID = *a.UserID
	}
	phone := strings.TrimSpace(a.Phone)
	email := strings.TrimSpace(a.Email)
	name := strings.TrimSpace(a.Name)
	t.logger.Info("get_user_profile",
		"user_id", userID, "phone", phone, "email", email, "name", name)

	var (
		user *store.User
		err  error
	)
	switch {
	case a.UserID != nil && userID != 0:
		user, err = t.store.UserByID(ctx, userID)
		if errors.Is(err, pherr.ErrNotFound) {
			return tool.Fail(tool.CodeNotFound,
				fmt.Sprintf("User with ID %d not found", userID))
		}
	case phone != "":
		user, err = t.store.UserByPhone(ctx, phone)
		if errors.Is(err, pherr.ErrNotFound) {
			return tool.Fail(tool.CodeNotFound,
				fmt.Sprintf("No user found with phone number matching '%s'", phone))
		}
	case email != "":
		user, err = t.store.UserByEmail(ctx, email)
		if errors.Is(err, pherr.ErrNotFound) {
			return tool.Fail(tool.CodeNotFound,
				fmt.Sprintf("No user found with email matching '%s'", email))
		}
	case name != "":
		user, err = t.store.UserByName(ctx, name)
		if errors.Is(err, pherr.ErrNotFound) {
			return tool.Fail(tool.CodeNotFound,
				fmt.Sprintf("No user found with name matching '%s'", name))
		}
	default:
		return tool.Fail(tool.CodeInvalidInput,
			"Please provide at least one of: user_id, phone number, or email")
	}
	if err != nil {
		return t.internal("get_user_profile", err)
	}

	return tool.OK(map[string]any{
		"id":      user.ID,
		"name":    user.Name,
		"name_he": user.HebrewName,
		"phone":   user.Phone,
		"email":   user.Email,
	})
}
