package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	RoleKeyPrefix    = "role:%d"
	ProfileKeyPrefix = "profile:%d"
	TicketKeyPrefix  = "ticket:%d"
)

const (
	UserTTL    = 5 * time.Minute
	RoleTTL    = 1 * time.Minute
	ProfileTTL = 10 * time.Minute
	TicketTTL  = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func RoleKey(userID uint) string {
	return fmt.Sprintf(RoleKeyPrefix, userID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func TicketKey(ticketID uint) string {
	return fmt.Sprintf(TicketKeyPrefix, ticketID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, ProfileKey(userID))
}

// InvalidateRole drops the cached trust tier after a role change so the
// next authorization check reads the database row.
func InvalidateRole(ctx context.Context, userID uint) {
	Invalidate(ctx, RoleKey(userID))
}

func InvalidateTicket(ctx context.Context, ticketID uint) {
	Invalidate(ctx, TicketKey(ticketID))
}
