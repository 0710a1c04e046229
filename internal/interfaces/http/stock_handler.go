package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
)

// StockHandler expone el ledger de stock: recepciones, salidas, ajustes y consultas.
type StockHandler struct {
	ledger  *stock.Ledger
	reorder *stock.ReorderReportUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *stock.Ledger, reorder *stock.ReorderReportUseCase) *StockHandler {
	return &StockHandler{ledger: ledger, reorder: reorder}
}

// Receive godoc
// @Summary      Recibir un lote
// @Description  Crea el lote, registra el movimiento IN y aumenta el stock del producto en una transacción.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveStockRequest  true  "Lote recibido"
// @Success      201   {object}  dto.LotSummary
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/receipts [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	cmd := stock.ReceiveCommand{
		ProductID:        in.ProductID,
		PurchaseOrderRef: in.PurchaseOrderRef,
		LotNumber:        in.LotNumber,
		Quantity:         in.Quantity,
		UnitPrice:        in.UnitPrice,
		UserID:           GetUserID(c),
	}
	if in.ReceivedAt != nil {
		cmd.ReceivedAt = *in.ReceivedAt
	}
	out, err := h.ledger.ReceiveStock(c.UserContext(), cmd)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ReceivePurchaseOrder godoc
// @Summary      Recibir una orden de compra validada
// @Description  Un lote y un movimiento IN por línea; la orden pasa a DELIVERED.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true   "ID de la orden"
// @Param        body  body  dto.ReceivePurchaseOrderRequest  false  "Fecha de recepción"
// @Success      201   {array}   dto.LotSummary
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/purchase-orders/{id}/receive [post]
func (h *StockHandler) ReceivePurchaseOrder(c *fiber.Ctx) error {
	var in dto.ReceivePurchaseOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	var receivedAt time.Time
	if in.ReceivedAt != nil {
		receivedAt = *in.ReceivedAt
	}
	out, err := h.ledger.ReceivePurchaseOrder(c.UserContext(), c.Params("id"), receivedAt, GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Allocate godoc
// @Summary      Salida FIFO directa
// @Description  Consume los lotes abiertos más antiguos primero. Todo o nada.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AllocateRequest  true  "Salida"
// @Success      201   {object}  dto.AllocationResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockDetail
// @Router       /api/stock/allocations [post]
func (h *StockHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.Allocate(c.UserContext(), stock.AllocationRequest{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Reference: in.Reference,
		Reason:    in.Reason,
		UserID:    GetUserID(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Adjust godoc
// @Summary      Ajuste de stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "Ajuste"
// @Success      201   {object}  dto.AllocationResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.Adjust(c.UserContext(), stock.AdjustCommand{
		ProductID: in.ProductID,
		LotID:     in.LotID,
		Direction: in.Direction,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		Reference: in.Reference,
		UserID:    GetUserID(c),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CloseLot godoc
// @Summary      Cerrar un lote agotado
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotSummary
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/lots/{id}/close [post]
func (h *StockHandler) CloseLot(c *fiber.Ctx) error {
	out, err := h.ledger.CloseLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// GetStock godoc
// @Summary      Stock actual y señal de reposición
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id} [get]
func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	out, err := h.ledger.GetStockLevel(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Historial de movimientos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id    path   string  true   "ID del producto"
// @Param        from  query  string  false  "Desde (RFC3339)"
// @Param        to    query  string  false  "Hasta (RFC3339)"
// @Success      200   {array}   dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	movs, err := h.ledger.GetMovementHistory(c.UserContext(), c.Params("id"), from, to)
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, stock.MovementToDTO(m))
	}
	return c.JSON(out)
}

// Lots godoc
// @Summary      Lotes del producto en orden FIFO
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.LotListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/lots [get]
func (h *StockHandler) Lots(c *fiber.Ctx) error {
	out, err := h.ledger.ListLots(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Conciliar stock con el ledger
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ReconcileReport
// @Router       /api/stock/products/{id}/reconcile [get]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	out, err := h.ledger.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// ReorderReport godoc
// @Summary      Productos bajo el umbral de reposición
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ReorderSuggestionDTO
// @Router       /api/stock/reorder-report [get]
func (h *StockHandler) ReorderReport(c *fiber.Ctx) error {
	out, err := h.reorder.Generate(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

// queryTime lee un parámetro RFC3339 opcional.
func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
