package console

import (
	"context"
	"errors"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/backend"
	"github.com/rogerio-castellano/cellar-console/internal/models"
	"github.com/rogerio-castellano/cellar-console/internal/session"
	"go.uber.org/zap"
)

// AccessDeniedRedirectDelay is how long the access denied page stays up before login.
const AccessDeniedRedirectDelay = 2 * time.Second

type AccountRow struct {
	models.Account
	// CanDelete is false for the account the session is using.
	CanDelete bool
}

// UsersView is what the user admin page shows.
type UsersView struct {
	Accounts []AccountRow
	Message  string
	Failed   bool
	// Denied is set on 403; the page redirects to login after RedirectAfter.
	Denied        bool
	RedirectAfter time.Duration
	// Target is the row a pending delete refers to.
	Target       *AccountRow
	Notice       string
	NoticeFailed bool
}

func (v UsersView) find(id int) *AccountRow {
	for i := range v.Accounts {
		if v.Accounts[i].ID == id {
			return &v.Accounts[i]
		}
	}
	return nil
}

type UserAdmin struct {
	accounts AccountBackend
	sess     *session.Session
	logger   *zap.Logger
}

func NewUserAdmin(accounts AccountBackend, sess *session.Session, logger *zap.Logger) *UserAdmin {
	return &UserAdmin{accounts: accounts, sess: sess, logger: logger}
}

func (u *UserAdmin) List(ctx context.Context) (UsersView, error) {
	if err := requireAuth(u.sess); err != nil {
		return UsersView{}, err
	}

	accounts, err := u.accounts.ListUsers(ctx, u.sess.Credentials())
	if err != nil {
		if xerr := expireOnUnauthorized(ctx, u.sess, err); xerr != nil {
			return UsersView{}, xerr
		}

		var forbidden *backend.ForbiddenError
		if errors.As(err, &forbidden) {
			u.logger.Info("user list forbidden", zap.String("user", u.sess.Username()))
			return UsersView{Message: MsgAccessDenied, Failed: true, Denied: true, RedirectAfter: AccessDeniedRedirectDelay}, nil
		}

		u.logger.Warn("failed to load users", zap.Error(err))
		return UsersView{Message: "Error loading users: " + backend.Message(err), Failed: true}, nil
	}

	me := u.sess.Username()
	rows := make([]AccountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = AccountRow{Account: a, CanDelete: a.Username != me}
	}

	view := UsersView{Accounts: rows}
	if len(rows) == 0 {
		view.Message = MsgNoUsers
	}
	return view, nil
}

// Delete removes account id once confirmed. The session's own account is never deleted.
// On failure the returned view keeps the list as it was before the attempt.
func (u *UserAdmin) Delete(ctx context.Context, id int, confirmed bool) (UsersView, error) {
	view, err := u.List(ctx)
	if err != nil || view.Denied || view.Failed {
		return view, err
	}

	target := view.find(id)
	if target == nil {
		view.Notice, view.NoticeFailed = MsgUserNotFound, true
		return view, nil
	}
	view.Target = target

	if !target.CanDelete {
		view.Notice, view.NoticeFailed = MsgSelfDeletion, true
		return view, ErrSelfDeletion
	}
	if !confirmed {
		return view, ErrConfirmationRequired
	}

	if err := u.accounts.DeleteUser(ctx, u.sess.Credentials(), id); err != nil {
		if xerr := expireOnUnauthorized(ctx, u.sess, err); xerr != nil {
			return UsersView{}, xerr
		}

		var forbidden *backend.ForbiddenError
		if errors.As(err, &forbidden) {
			view.Notice = MsgDeleteForbidden
		} else {
			view.Notice = "Error deleting user: " + backend.Message(err)
		}
		view.NoticeFailed = true
		view.Target = nil
		u.logger.Warn("failed to delete user", zap.Int("id", id), zap.Error(err))
		return view, nil
	}

	u.logger.Info("user deleted", zap.Int("id", id), zap.String("by", u.sess.Username()))
	refreshed, err := u.List(ctx)
	if err != nil {
		return refreshed, err
	}
	refreshed.Notice = MsgUserDeleted
	return refreshed, nil
}
