/*
handlers.go - HTTP API handlers for the credits engine

PURPOSE:
  Exposes one user's credits, rewards, unlocks and notifications over
  REST. Handlers parse the request, run the domain call inside the user's
  session and serialise the result.

ENDPOINTS:
  Credits:
    GET    /api/me/credits                   Balance summary
    GET    /api/me/transactions?limit=N      History, newest first
    POST   /api/me/spend                     Generic debit

  Rewards:
    POST   /api/me/daily-login               Daily login check
    POST   /api/me/actions/{action}          Record a rewarded action

  Unlocks:
    GET    /api/catalog                      Unlockable items
    GET    /api/me/unlocks                   Owned items per kind
    POST   /api/me/unlocks/{item}            Buy an item at catalog price

  Notifications:
    GET    /api/me/notifications             List + unread count
    POST   /api/me/notifications/{id}/read   Mark one read
    POST   /api/me/notifications/read-all    Mark all read
    DELETE /api/me/notifications/{id}        Delete one
    DELETE /api/me/notifications             Clear all

  Session:
    POST   /api/me/logout                    Close the user's session

REQUEST FLOW:
  1. RequireUser puts the X-User-ID header into the context
  2. Handler parses path/body
  3. Sessions.Do runs the domain call under the user's session lock
  4. Result or error is written as JSON

ERROR HANDLING:
  - 400: Invalid input, unknown action
  - 401: Missing identity
  - 404: Unknown notification
  - 409: Item already unlocked
  - 422: Insufficient credits
  - 500: Storage or corrupt state. The in-memory change may have been
         applied; the body says which.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/notifications"
	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/session"
	"github.com/catbutler/credits-engine/unlocks"
)

// UserHeader carries the authenticated user id from the upstream proxy.
const UserHeader = "X-User-ID"

// DefaultTransactionLimit caps GET /transactions without ?limit.
const DefaultTransactionLimit = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions *session.Manager
	Catalog  *unlocks.Catalog
	Logger   *log.Entry
}

// NewHandler creates a handler over a session manager.
func NewHandler(sessions *session.Manager, catalog *unlocks.Catalog) *Handler {
	if catalog == nil {
		catalog = unlocks.DefaultCatalog()
	}
	return &Handler{
		Sessions: sessions,
		Catalog:  catalog,
		Logger:   log.WithField("component", "api"),
	}
}

type ctxKey struct{}

// RequireUser rejects requests without an X-User-ID header.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(UserHeader)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header", credits.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func userID(r *http.Request) string {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	return uid
}

// do runs fn in the caller's session and writes the error, if any.
// Returns false when the response has already been written.
func (h *Handler) do(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) bool {
	err := h.Sessions.Do(userID(r), fn)
	if err == nil {
		return true
	}
	h.writeDomainError(w, r, err)
	return false
}

// =============================================================================
// CREDITS
// =============================================================================

// GetCredits returns the balance summary.
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	var dto CreditsDTO
	ok := h.do(w, r, func(s *session.Session) error {
		sum := s.Ledger.Summary()
		dto = CreditsDTO{
			Balance:          sum.Balance,
			TotalEarned:      sum.TotalEarned,
			TotalSpent:       sum.TotalSpent,
			TransactionCount: sum.TransactionCount,
			SpendRatio:       sum.SpendRatio.StringFixed(2),
			Streak:           s.Rewards.Streak(),
			Achievements:     s.Rewards.Unlocked(),
		}
		if dto.Achievements == nil {
			dto.Achievements = []string{}
		}
		return nil
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

// GetTransactions returns the newest transactions.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := DefaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	var dto TransactionsDTO
	ok := h.do(w, r, func(s *session.Session) error {
		dto = TransactionsDTO{
			Balance:      s.Ledger.Balance(),
			Transactions: s.Ledger.RecentTransactions(limit),
		}
		return nil
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

// Spend debits an arbitrary amount.
func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var balance int
	ok := h.do(w, r, func(s *session.Session) error {
		var err error
		balance, err = s.Spend(req.Amount, req.Description)
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, BalanceDTO{Balance: balance})
	}
}

// =============================================================================
// REWARDS
// =============================================================================

// DailyLogin runs the daily-login check. Sessions already run it on open,
// so this mostly matters for sessions that live across midnight.
func (h *Handler) DailyLogin(w http.ResponseWriter, r *http.Request) {
	var dto DailyLoginDTO
	ok := h.do(w, r, func(s *session.Session) error {
		granted, err := s.Rewards.CheckDailyLogin()
		dto = DailyLoginDTO{Granted: granted, Balance: s.Ledger.Balance(), Streak: s.Rewards.Streak()}
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

// RecordAction grants the reward for one action.
func (h *Handler) RecordAction(w http.ResponseWriter, r *http.Request) {
	action, err := rewards.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown action", err)
		return
	}

	var dto ActionDTO
	ok := h.do(w, r, func(s *session.Session) error {
		out, err := s.Rewards.Record(action)
		dto = ActionDTO{Outcome: out, Balance: s.Ledger.Balance()}
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

// =============================================================================
// UNLOCKS
// =============================================================================

// GetCatalog lists every unlockable item.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Items())
}

// ListUnlocks returns owned item ids per kind.
func (h *Handler) ListUnlocks(w http.ResponseWriter, r *http.Request) {
	dto := UnlocksDTO{}
	ok := h.do(w, r, func(s *session.Session) error {
		for _, k := range unlocks.Kinds {
			dto[string(k)] = s.Unlocks.Unlocked(k)
		}
		return nil
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

// UnlockItem buys an item at its catalog price.
func (h *Handler) UnlockItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "item")
	if _, known := h.Catalog.Lookup(id); !known {
		writeError(w, http.StatusNotFound, "Unknown item", nil)
		return
	}

	var balance int
	ok := h.do(w, r, func(s *session.Session) error {
		err := s.Unlocks.UnlockItem(id)
		balance = s.Ledger.Balance()
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, UnlockDTO{ItemID: id, Balance: balance})
	}
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	var dto NotificationsDTO
	ok := h.do(w, r, func(s *session.Session) error {
		dto = NotificationsDTO{
			UnreadCount:   s.Notifications.UnreadCount(),
			Notifications: s.Notifications.List(),
		}
		return nil
	})
	if ok {
		writeJSON(w, http.StatusOK, dto)
	}
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.notificationOp(w, r, func(c *notifications.Center) error { return c.MarkRead(id) })
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	h.notificationOp(w, r, (*notifications.Center).MarkAllRead)
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.notificationOp(w, r, func(c *notifications.Center) error { return c.Delete(id) })
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.notificationOp(w, r, (*notifications.Center).ClearAll)
}

// notificationOp runs op and responds with the unread count.
func (h *Handler) notificationOp(w http.ResponseWriter, r *http.Request, op func(*notifications.Center) error) {
	var unread int
	ok := h.do(w, r, func(s *session.Session) error {
		err := op(s.Notifications)
		unread = s.Notifications.UnreadCount()
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, map[string]int{"unreadCount": unread})
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Logout closes the caller's session. Durable state is kept.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	closed := h.Sessions.Logout(userID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient credits", err)
	case errors.Is(err, credits.ErrAlreadyUnlocked):
		writeError(w, http.StatusConflict, "Already unlocked", err)
	case errors.Is(err, credits.ErrInvalidAmount),
		errors.Is(err, credits.ErrInvalidType),
		errors.Is(err, rewards.ErrUnknownAction),
		errors.Is(err, session.ErrDescriptionRequired):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, notifications.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "Notification not found", err)
	case errors.Is(err, credits.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated", err)
	case credits.IsStorageError(err):
		h.Logger.WithError(err).WithField("user_id", userID(r)).Error("Storage write failed")
		writeError(w, http.StatusInternalServerError, "Change applied but not saved", err)
	default:
		h.Logger.WithError(err).WithField("user_id", userID(r)).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
