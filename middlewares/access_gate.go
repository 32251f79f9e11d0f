package middlewares

import (
	"log/slog"
	"regexp"

	"crm/utils"
)

const ROLE_ADMIN = "admin"

var companyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// AccessGate decides whether a session may run an event against a company.
// It is checked before any store is touched.
type AccessGate struct {
	logger *slog.Logger
}

func NewAccessGate(logger *slog.Logger) *AccessGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessGate{logger: logger.With("component", "access_gate")}
}

func (g *AccessGate) Authorize(session *Session, companyID string, mutating bool) error {
	if session == nil {
		return utils.ErrMissingSession
	}

	if mutating && session.Role != ROLE_ADMIN {
		g.logger.Warn("admin role required",
			slog.String("user_id", session.UserID),
			slog.String("role", session.Role),
		)
		return utils.ErrAdminRequired
	}

	if !companyIDPattern.MatchString(companyID) {
		return utils.ErrInvalidCompanyID
	}

	if companyID != session.CompanyID {
		g.logger.Warn("company access denied",
			slog.String("user_id", session.UserID),
			slog.String("session_company", session.CompanyID),
			slog.String("requested_company", companyID),
		)
		return utils.ErrCompanyMismatch
	}

	return nil
}
