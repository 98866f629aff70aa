package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListUserTickets(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// ListAllTickets GET /api/tickets/tutor-view.
func (h *TicketsHandler) ListAllTickets(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListAllTickets(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	// An unreadable body counts as missing fields.
	var req dto.CreateTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			req = dto.CreateTicketRequest{}
		}
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), userID, service.TicketCreateInput{
		Product:     req.Product,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	body := c.Body()
	ticket, err := h.service.UpdateTicket(c.UserContext(), userID, c.Params("id"), func() (domain.TicketPatch, error) {
		return dto.ParseTicketPatch(body)
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

func requesterID(c *fiber.Ctx) (string, error) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return "", apperrors.NewUnauthorized("Not authorized")
	}
	return userID, nil
}
