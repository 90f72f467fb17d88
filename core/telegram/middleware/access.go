package middleware

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions lists who may run admin-only handlers. With no admins configured
// the check is off.
type AdminOptions struct {
	AdminID int64
	// Admins extends AdminID with further user IDs.
	Admins   []int64
	OnReject tele.HandlerFunc
}

func (o AdminOptions) enabled() bool {
	return o.AdminID != 0 || len(o.Admins) > 0
}

// IsAdmin reports whether userID is one of the configured admins.
func (o AdminOptions) IsAdmin(userID int64) bool {
	return userID != 0 && (userID == o.AdminID || slices.Contains(o.Admins, userID))
}

// AdminOnlyMiddleware passes only admin senders to next. Others get OnReject, if set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if !opts.enabled() {
			return next
		}
		return func(c tele.Context) error {
			var id int64
			if u := c.Sender(); u != nil {
				id = u.ID
			}
			switch {
			case opts.IsAdmin(id):
				return next(c)
			case opts.OnReject != nil:
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
