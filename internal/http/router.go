package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/config"
	"resitrack/backend/internal/domain/account"
	"resitrack/backend/internal/domain/facility"
	"resitrack/backend/internal/domain/invitation"
	"resitrack/backend/internal/domain/maintenance"
	"resitrack/backend/internal/httpjson"
	"resitrack/backend/internal/identity"
	"resitrack/backend/internal/logging"
	"resitrack/backend/internal/middleware"
	"resitrack/backend/internal/notify"
	"resitrack/backend/internal/utils"
)

type RouterDeps struct {
	Cfg            config.Config
	Logger         *zap.Logger
	Identity       identity.Provider
	Sessions       middleware.SessionResolver
	AccountRepo    *account.Repo
	FacilityRepo   *facility.Repo
	FacilitySvc    *facility.Service
	MaintenanceSvc *maintenance.Service
	InvitationSvc  *invitation.Service
	Tokens         *notify.Tokens
	Inbox          *notify.Inbox
}

func NewRouter(d RouterDeps) http.Handler {
	logger := logging.OrNop(d.Logger)
	loc := d.Cfg.Location()
	fail := func(w http.ResponseWriter, r *http.Request, err error) {
		status, msg := mapError(err)
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		if status >= 500 {
			logging.FromContext(r.Context(), logger).Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Error(err),
			)
		}
		httpjson.Error(w, status, msg)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.Cfg.AllowedOrigins, logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})

	r.Post("/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := httpjson.Read(w, r, &in); err != nil {
			fail(w, r, err)
			return
		}
		creds, err := d.Identity.SignIn(r.Context(), utils.NormalizeEmail(in.Email), in.Password)
		if err != nil {
			fail(w, r, err)
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]any{
			"uid":          creds.UID,
			"email":        creds.Email,
			"idToken":      creds.IDToken,
			"refreshToken": creds.RefreshToken,
			"expiresIn":    int64(creds.ExpiresIn / time.Second),
		})
	})

	r.Post("/v1/invitations/redeem", func(w http.ResponseWriter, r *http.Request) {
		var in invitation.RedeemInput
		if err := httpjson.Read(w, r, &in); err != nil {
			fail(w, r, err)
			return
		}
		acct, err := d.InvitationSvc.Redeem(r.Context(), in)
		if err != nil {
			fail(w, r, err)
			return
		}
		httpjson.Write(w, http.StatusCreated, acct)
	})

	// Protected routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.Sessions, logger))

		pr.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			sess := session(r)
			out := map[string]any{
				"uid":   sess.UID,
				"email": sess.Email,
				"role":  sess.Role,
			}
			acct, err := d.AccountRepo.Get(r.Context(), sess.UID)
			switch {
			case err == nil:
				out["account"] = acct
			case !account.IsErrAccountNotFound(err):
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Post("/v1/auth/signout", func(w http.ResponseWriter, r *http.Request) {
			if err := d.Identity.SignOut(r.Context(), session(r).UID); err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, map[string]any{"success": true})
		})

		pr.Put("/v1/me/push-token", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Token string `json:"token"`
			}
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			if err := d.Tokens.Register(r.Context(), session(r), in.Token); err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, map[string]any{"success": true})
		})

		pr.Get("/v1/me/notifications", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			out, err := d.Inbox.List(r.Context(), session(r).UID, q.Get("unreadOnly") == "true", limit)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Put("/v1/me/notifications/read", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				NotificationID string `json:"notificationId,omitempty"`
				MarkAll        bool   `json:"markAll,omitempty"`
			}
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			if in.NotificationID == "" && !in.MarkAll {
				fail(w, r, fmt.Errorf("%w: notificationId or markAll is required", apperr.ErrValidation))
				return
			}
			if in.MarkAll {
				in.NotificationID = ""
			}
			n, err := d.Inbox.MarkRead(r.Context(), session(r).UID, in.NotificationID)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, map[string]any{"success": true, "updated": n})
		})

		// ===== Facilities =====
		pr.Get("/v1/me/bookings", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.FacilityRepo.UserBookings(r.Context(), session(r).UID)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Get("/v1/facilities/{facilityId}/bookings/{date}", func(w http.ResponseWriter, r *http.Request) {
			facilityID := chi.URLParam(r, "facilityId")
			date := chi.URLParam(r, "date")
			if _, err := utils.ParseDate(date, time.UTC); err != nil {
				fail(w, r, facility.ErrInvalidDate)
				return
			}
			if _, err := d.FacilityRepo.Get(r.Context(), facilityID); err != nil {
				fail(w, r, err)
				return
			}
			out, err := d.FacilityRepo.Booking(r.Context(), facilityID, date)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Post("/v1/facilities/{facilityId}/bookings", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Date   string `json:"date"`
				SlotID string `json:"slotId"`
			}
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			out, err := d.FacilitySvc.ReserveByID(r.Context(), session(r), chi.URLParam(r, "facilityId"), in.Date, in.SlotID)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusCreated, out)
		})

		// ===== Maintenance =====
		pr.Get("/v1/maintenance/cycles", func(w http.ResponseWriter, r *http.Request) {
			cycles, err := d.MaintenanceSvc.Cycles(r.Context(), session(r))
			if err != nil {
				fail(w, r, err)
				return
			}
			out := make([]map[string]any, 0, len(cycles))
			for _, c := range cycles {
				out = append(out, cycleResponse(c, loc))
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Post("/v1/maintenance/cycles", func(w http.ResponseWriter, r *http.Request) {
			var in maintenance.CreateCycleInput
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			out, err := d.MaintenanceSvc.CreateFromInput(r.Context(), session(r), in)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusCreated, cycleResponse(*out, loc))
		})

		pr.Get("/v1/maintenance/cycles/{cycleId}/payments", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.MaintenanceSvc.Payments(r.Context(), session(r), chi.URLParam(r, "cycleId"))
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Get("/v1/maintenance/payments/{paymentId}", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.MaintenanceSvc.Payment(r.Context(), session(r), chi.URLParam(r, "paymentId"))
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Put("/v1/maintenance/payments/{paymentId}/status", func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Status maintenance.PaymentStatus `json:"status"`
			}
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			out, err := d.MaintenanceSvc.SetPaymentStatus(r.Context(), session(r), chi.URLParam(r, "paymentId"), in.Status)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		// ===== Invitations =====
		pr.Post("/v1/invitations", func(w http.ResponseWriter, r *http.Request) {
			var in invitation.IssueInput
			if err := httpjson.Read(w, r, &in); err != nil {
				fail(w, r, err)
				return
			}
			out, err := d.InvitationSvc.Issue(r.Context(), session(r), in)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusCreated, out)
		})

		pr.Get("/v1/invitations", func(w http.ResponseWriter, r *http.Request) {
			status := invitation.Status(strings.TrimSpace(r.URL.Query().Get("status")))
			out, err := d.InvitationSvc.Invitations(r.Context(), session(r), status)
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})

		pr.Get("/v1/invitations/{invitationId}", func(w http.ResponseWriter, r *http.Request) {
			out, err := d.InvitationSvc.Invitation(r.Context(), session(r), chi.URLParam(r, "invitationId"))
			if err != nil {
				fail(w, r, err)
				return
			}
			httpjson.Write(w, http.StatusOK, out)
		})
	})

	return r
}

func session(r *http.Request) authctx.Session {
	sess, _ := authctx.FromContext(r.Context())
	return sess
}

// cycleResponse renders the amount as a fixed two-decimal string and the due
// date as the calendar day it was entered as in loc.
func cycleResponse(c maintenance.Cycle, loc *time.Location) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"title":     c.Title,
		"amountDue": c.AmountDue.StringFixed(2),
		"dueDate":   c.DueDate.In(loc).Format(utils.DateLayout),
		"year":      c.Year,
		"month":     c.Month,
	}
}

func mapError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case apperr.IsErrValidation(err):
		return 400, err.Error()
	case apperr.IsErrUnauthenticated(err):
		return 401, err.Error()
	case apperr.IsErrUnauthorized(err):
		return 403, err.Error()
	case apperr.IsErrNotFound(err):
		return 404, err.Error()
	case apperr.IsErrResourceTaken(err):
		return 409, err.Error()
	case apperr.IsErrConflict(err):
		return 503, "too much contention, retry shortly"
	case apperr.IsErrExternal(err):
		return 502, "upstream service failed"
	default:
		return 500, "internal error"
	}
}
