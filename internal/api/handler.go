package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
)

// Ledger is the engine surface the HTTP layer drives.
type Ledger interface {
	CreateEvent(ctx context.Context, caller string, in models.EventInput) (uint64, error)
	CloseEvent(ctx context.Context, caller string, eventID uint64) error
	PurchaseTicket(ctx context.Context, caller string, eventID uint64) (uint64, error)
	ValidateTicket(ctx context.Context, caller string, ticketID uint64) error
	RefundTicket(ctx context.Context, caller string, ticketID uint64) error
	UpdatePlatformFee(ctx context.Context, caller string, fee uint64) error
	UpdateMinTicketPrice(ctx context.Context, caller string, price uint64) error
	CalculatePlatformFee(ctx context.Context, amount uint64) (uint64, error)
	GetEvent(ctx context.Context, id uint64) (*models.Event, error)
	GetTicket(ctx context.Context, id uint64) (*models.Ticket, error)
	GetUserTickets(ctx context.Context, owner string) (*models.UserTickets, error)
	GetOrganizerRevenue(ctx context.Context, organizer string) (*models.OrganizerRecord, error)
	GetPolicy(ctx context.Context) (*models.PolicyView, error)
	EventStats(ctx context.Context, eventID uint64) (*models.EventStats, error)
	TicketQR(ctx context.Context, caller string, ticketID uint64) ([]byte, error)
	CheckInByQR(ctx context.Context, caller, payload string) (*models.Ticket, error)
	CurrentHeight(ctx context.Context) (uint64, error)
}

type Handler struct {
	Ledger Ledger
	Logger *logger.Logger
}

func NewHandler(l Ledger, log *logger.Logger) *Handler {
	return &Handler{Ledger: l, Logger: log}
}

// NewRouter mounts /health publicly and every /api route behind authn.
func NewRouter(h *Handler, authn func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		h.RegisterRoutes(r)
	})
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Get("/{eventId}", h.GetEvent)
			r.Post("/{eventId}/close", h.CloseEvent)
			r.Get("/{eventId}/stats", h.GetEventStats)
			r.Post("/{eventId}/tickets", h.PurchaseTicket)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/checkin", h.CheckinTicket)
			r.Get("/{ticketId}", h.GetTicket)
			r.Post("/{ticketId}/validate", h.ValidateTicket)
			r.Post("/{ticketId}/refund", h.RefundTicket)
			r.Get("/{ticketId}/qr", h.GetTicketQR)
		})

		r.Get("/users/{principal}/tickets", h.GetUserTickets)
		r.Get("/organizers/{principal}", h.GetOrganizer)

		r.Route("/policy", func(r chi.Router) {
			r.Get("/", h.GetPolicy)
			r.Get("/fee", h.CalculateFee)
			r.Put("/fee", h.UpdateFee)
			r.Put("/min-price", h.UpdateMinPrice)
		})
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	height, err := h.Ledger.CurrentHeight(r.Context())
	if err != nil {
		sendJSONResponse(w, http.StatusServiceUnavailable, ErrorResponse("ledger unavailable", err.Error()))
		return
	}
	writeOK(w, http.StatusOK, "ok", map[string]uint64{"height": height})
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
