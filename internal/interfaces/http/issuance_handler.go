package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/issuance"
)

// IssuanceHandler bon de sortie: borrador, confirmación, cancelación y PDF.
type IssuanceHandler struct {
	uc *issuance.UseCase
}

// NewIssuanceHandler construye el handler.
func NewIssuanceHandler(uc *issuance.UseCase) *IssuanceHandler {
	return &IssuanceHandler{uc: uc}
}

// Create godoc
// @Summary      Crear bon de sortie (borrador)
// @Tags         issuances
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateIssuanceRequest  true  "Bon de sortie"
// @Success      201   {object}  dto.IssuanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/issuances [post]
func (h *IssuanceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateIssuanceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateDraft(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Obtener bon de sortie
// @Tags         issuances
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del bon"
// @Success      200  {object}  dto.IssuanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/issuances/{id} [get]
func (h *IssuanceHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.GetIssuance(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// Confirm godoc
// @Summary      Confirmar bon de sortie
// @Description  Asigna lotes FIFO a todas las líneas en una transacción. Si alguna línea no alcanza, nada cambia.
// @Tags         issuances
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del bon"
// @Success      200  {object}  dto.IssuanceResult
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.InsufficientStockDetail
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/issuances/{id}/confirm [post]
func (h *IssuanceHandler) Confirm(c *fiber.Ctx) error {
	out, err := h.uc.ConfirmIssuance(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar bon en borrador
// @Tags         issuances
// @Security     Bearer
// @Param        id   path  string  true  "ID del bon"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/issuances/{id}/cancel [post]
func (h *IssuanceHandler) Cancel(c *fiber.Ctx) error {
	if err := h.uc.CancelIssuanceDraft(c.UserContext(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PDF godoc
// @Summary      Descargar bon de sortie en PDF
// @Tags         issuances
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del bon"
// @Success      200  {file}    file
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/issuances/{id}/pdf [get]
func (h *IssuanceHandler) PDF(c *fiber.Ctx) error {
	data, filename, err := h.uc.DownloadSlipPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
