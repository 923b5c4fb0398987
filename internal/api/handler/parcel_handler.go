package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/api/metrics"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

// ParcelHandler handles HTTP requests for parcel booking and tracking.
type ParcelHandler struct {
	service  ports.ParcelService
	presence ports.AgentPresence
	logger   zerolog.Logger
}

func NewParcelHandler(service ports.ParcelService, presence ports.AgentPresence, logger zerolog.Logger) *ParcelHandler {
	return &ParcelHandler{service: service, presence: presence, logger: logger}
}

// Book handles POST /api/v1/parcels/bookAParcel. The authenticated caller
// becomes the parcel's customer.
func (h *ParcelHandler) Book(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req bookParcelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	parcel, err := h.service.Book(c.Request().Context(), userID, ports.BookParcelInput{
		SenderInfo:     toAddressInput(req.SenderInfo),
		ReceiverInfo:   toAddressInput(req.ReceiverInfo),
		Details: ports.ParcelDetailsInput{
			Type:                req.ParcelDetails.Type,
			Weight:              req.ParcelDetails.Weight,
			Description:         req.ParcelDetails.Description,
			SpecialInstructions: req.ParcelDetails.SpecialInstructions,
		},
		Payment: ports.PaymentInput{
			Method:    req.Payment.Method,
			CODAmount: req.Payment.CODAmount,
		},
		PickupSchedule: req.PickupSchedule,
	})
	if err != nil {
		return err
	}

	metrics.ParcelsBookedTotal.WithLabelValues(string(parcel.Details.Type)).Inc()
	return c.JSON(http.StatusCreated, bookParcelResponse{
		Message:    "Parcel booked successfully",
		TrackingID: parcel.TrackingID,
		Parcel:     parcel,
	})
}

// Track handles GET /api/v1/parcels/:trackingId. Tracking is public: anyone
// holding a tracking id may view the parcel's current state.
func (h *ParcelHandler) Track(c echo.Context) error {
	parcel, err := h.service.Track(c.Request().Context(), c.Param("trackingId"))
	if err != nil {
		return err
	}

	online := false
	if parcel.AssignedAgent != "" {
		online, err = h.presence.IsOnline(c.Request().Context(), parcel.AssignedAgent)
		if err != nil {
			h.logger.Warn().Err(err).Str("agent_id", parcel.AssignedAgent).Msg("presence check failed")
			online = false
		}
	}

	return c.JSON(http.StatusOK, trackParcelResponse{Parcel: parcel, AgentOnline: online})
}

// Assign handles PATCH /api/v1/parcels/:id/assign. Admin only (enforced by
// route middleware); the assignee must hold the agent role.
func (h *ParcelHandler) Assign(c echo.Context) error {
	var req assignAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	parcel, err := h.service.Assign(c.Request().Context(), c.Param("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, parcel)
}

func toAddressInput(in addressRequest) ports.AddressInput {
	out := ports.AddressInput{
		Name:       in.Name,
		Phone:      in.Phone,
		Address1:   in.Address1,
		Address2:   in.Address2,
		City:       in.City,
		PostalCode: in.PostalCode,
	}
	if in.Location != nil {
		out.Location = &ports.LocationInput{Lat: in.Location.Lat, Lng: in.Location.Lng}
	}
	return out
}
