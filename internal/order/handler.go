package order

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"karigar-backend/internal/audit"
	"karigar-backend/internal/auth"
	"karigar-backend/internal/database"
	"karigar-backend/internal/ledger"
	"karigar-backend/internal/models"
)

type DiamondEntryInput struct {
	Shape     string          `json:"shape"`
	SizeMM    string          `json:"size_mm"`
	SieveSize string          `json:"sieve_size"`
	Pieces    int             `json:"pieces"`
	Weight    decimal.Decimal `json:"weight"` // carats
}

type CreateOrderRequest struct {
	PartyID      uint             `json:"party_id"`
	KarigarID    uint             `json:"karigar_id"`
	IssueDate    *string          `json:"issue_date"`    // "2006-01-02", defaults to today
	DeliveryDate string           `json:"delivery_date"` // "2006-01-02"
	Quantity     int              `json:"quantity"`
	Weight       decimal.Decimal  `json:"weight"` // approx gold weight, grams
	PartyOrderNo string           `json:"party_order_no"`
	ItemCategory string           `json:"item_category"`
	Purity       string           `json:"purity"`
	Size         string           `json:"size"`
	ScrewType    string           `json:"screw_type"`
	GoldColor    string           `json:"gold_color"`
	IsRateBooked bool             `json:"is_rate_booked"`
	BookedRate   *decimal.Decimal `json:"booked_rate"`
	HasChain     bool             `json:"has_chain"`
	ChainLength  string           `json:"chain_length"`
	CadFileURL   string           `json:"cad_file_url"`
	Remarks      string           `json:"remarks"`

	ImageURLs      []string            `json:"image_urls"`
	DiamondEntries []DiamondEntryInput `json:"diamond_entries"`
}

type UpdateOrderRequest = CreateOrderRequest

type UsedDiamondInput struct {
	Shape       string          `json:"shape"`
	SizeMM      string          `json:"size_mm"`
	UsedPieces  int             `json:"used_pieces"`
	FinalWeight decimal.Decimal `json:"final_weight"` // carats
}

type CompleteOrderRequest struct {
	UsedWeight         decimal.Decimal    `json:"used_weight"`
	Wastage            decimal.Decimal    `json:"wastage"`
	FinalMelting       decimal.Decimal    `json:"final_melting"`
	FinalColor         string             `json:"final_color"`
	FinalProductWeight decimal.Decimal    `json:"final_product_weight"`
	Remarks            string             `json:"remarks"`
	DiamondEntries     []UsedDiamondInput `json:"diamond_entries"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func parseOrderID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid order ID")
	}
	return id, nil
}

func getUserInfo(c *fiber.Ctx) (uint, string, error) {
	userID, ok := c.Locals(auth.CtxUserIDKey).(uint)
	if !ok {
		return 0, "", fiber.NewError(fiber.StatusForbidden, "Could not read user")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", fiber.NewError(fiber.StatusInternalServerError, "User not found")
	}

	return userID, user.Email, nil
}

// Only the admin or the karigar the order is assigned to may act on it.
func authorizeOrderAccess(c *fiber.Ctx, order *models.Order) error {
	role, err := auth.Role(c)
	if err != nil {
		return err
	}
	if role == models.RoleAdmin {
		return nil
	}
	karigarID := auth.KarigarID(c)
	if karigarID == nil || *karigarID != order.KarigarID {
		return fiber.NewError(fiber.StatusForbidden, "Not assigned to this order")
	}
	return nil
}

func sumDiamonds(entries []DiamondEntryInput) (int, decimal.Decimal) {
	pcs := 0
	wt := decimal.Zero
	for _, e := range entries {
		pcs += e.Pieces
		wt = wt.Add(e.Weight)
	}
	return pcs, wt
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// -------------------------------------------------
// POST /api/orders
// -------------------------------------------------
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.PartyID == 0 || body.KarigarID == 0 || body.DeliveryDate == "" ||
			body.ItemCategory == "" || body.Purity == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id, karigar_id, delivery_date, item_category and purity are required")
		}

		deliveryDate, err := parseDate(body.DeliveryDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "delivery_date must be 'YYYY-MM-DD'")
		}

		issueDate := time.Now()
		if body.IssueDate != nil && *body.IssueDate != "" {
			issueDate, err = parseDate(*body.IssueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "issue_date must be 'YYYY-MM-DD'")
			}
		}

		var party models.Party
		if err := database.DB.First(&party, "id = ?", body.PartyID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Party not found")
		}
		var karigar models.Karigar
		if err := database.DB.First(&karigar, "id = ?", body.KarigarID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Karigar not found")
		}

		images := make([]models.OrderImage, 0, len(body.ImageURLs))
		for _, url := range body.ImageURLs {
			images = append(images, models.OrderImage{ImageURL: url})
		}

		diamonds := make([]models.DiamondEntry, 0, len(body.DiamondEntries))
		issuedDiamonds := make([]models.IssuedDiamond, 0, len(body.DiamondEntries))
		for _, e := range body.DiamondEntries {
			diamonds = append(diamonds, models.DiamondEntry{
				Shape: e.Shape, SizeMM: e.SizeMM, SieveSize: e.SieveSize,
				Pieces: e.Pieces, Weight: e.Weight,
			})
			issuedDiamonds = append(issuedDiamonds, models.IssuedDiamond{
				Shape: e.Shape, SizeMM: e.SizeMM, SieveSize: e.SieveSize,
				Pieces: e.Pieces, Weight: e.Weight,
			})
		}

		order := models.Order{
			PartyID:      body.PartyID,
			KarigarID:    body.KarigarID,
			Status:       models.StatusIssued,
			IssueDate:    issueDate,
			DeliveryDate: deliveryDate,
			Quantity:     body.Quantity,
			Weight:       body.Weight,
			PartyOrderNo: body.PartyOrderNo,
			ItemCategory: body.ItemCategory,
			Purity:       body.Purity,
			Size:         body.Size,
			ScrewType:    body.ScrewType,
			GoldColor:    body.GoldColor,
			IsRateBooked: body.IsRateBooked,
			BookedRate:   body.BookedRate,
			HasChain:     body.HasChain,
			ChainLength:  body.ChainLength,
			CadFileURL:   body.CadFileURL,
			Remarks:      body.Remarks,

			Images:         images,
			DiamondEntries: diamonds,
			// Snapshot of what physically left the safe, frozen at creation
			MaterialIssued: &models.MaterialIssued{
				Purity:    body.Purity,
				GoldColor: body.GoldColor,
				Melting:   decimal.Zero,
				Weight:    body.Weight,
				Diamonds:  issuedDiamonds,
			},
		}

		diaPcs, diaWt := sumDiamonds(body.DiamondEntries)

		// Order graph and ledger increment commit or fail together.
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			return ledger.RecordIssue(tx, body.KarigarID, body.Weight, diaPcs, diaWt)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create order")
		}

		if userID, userEmail, err := getUserInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserEmail:   userEmail,
				EntityType:  "order",
				EntityID:    order.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Order #%d for %s issued to %s (%sg)", order.ID, party.Name, karigar.Name, order.Weight.String()),
				After:       order,
			})
		}

		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// -------------------------------------------------
// GET /api/orders?status=ISSUED&karigar_id=1&party_id=2
// -------------------------------------------------
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.
			Preload("Party").
			Preload("Karigar").
			Preload("DiamondEntries")

		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}
		if kidStr := c.Query("karigar_id"); kidStr != "" {
			var kid uint
			if _, err := fmt.Sscan(kidStr, &kid); err == nil && kid > 0 {
				dbq = dbq.Where("karigar_id = ?", kid)
			}
		}
		if pidStr := c.Query("party_id"); pidStr != "" {
			var pid uint
			if _, err := fmt.Sscan(pidStr, &pid); err == nil && pid > 0 {
				dbq = dbq.Where("party_id = ?", pid)
			}
		}

		var orders []models.Order
		if err := dbq.Order("created_at DESC").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list orders")
		}

		return c.JSON(orders)
	}
}

// -------------------------------------------------
// GET /api/orders/:id
// -------------------------------------------------
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseOrderID(c)
		if err != nil {
			return err
		}

		var order models.Order
		if err := database.DB.
			Preload("Party").
			Preload("Karigar").
			Preload("Images").
			Preload("DiamondEntries").
			Preload("MaterialIssued.Diamonds").
			Preload("MaterialUsed.Diamonds").
			First(&order, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if err := authorizeOrderAccess(c, &order); err != nil {
			return err
		}

		return c.JSON(order)
	}
}

// -------------------------------------------------
// PUT /api/orders/:id/edit
// -------------------------------------------------
// Image and diamond children are dropped and recreated from the request.
// The ledger is left alone on purpose: the next ledger view resyncs it from
// the edited order anyway, and patching increments here would just be a
// second arithmetic to keep correct.
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseOrderID(c)
		if err != nil {
			return err
		}

		var body UpdateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.PartyID == 0 || body.KarigarID == 0 || body.DeliveryDate == "" ||
			body.ItemCategory == "" || body.Purity == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id, karigar_id, delivery_date, item_category and purity are required")
		}

		deliveryDate, err := parseDate(body.DeliveryDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "delivery_date must be 'YYYY-MM-DD'")
		}

		issueDate := time.Now()
		if body.IssueDate != nil && *body.IssueDate != "" {
			issueDate, err = parseDate(*body.IssueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "issue_date must be 'YYYY-MM-DD'")
			}
		}

		var order models.Order
		if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		before := order

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderImage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", orderID).Delete(&models.DiamondEntry{}).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"party_id":       body.PartyID,
				"karigar_id":     body.KarigarID,
				"issue_date":     issueDate,
				"delivery_date":  deliveryDate,
				"quantity":       body.Quantity,
				"weight":         body.Weight,
				"party_order_no": body.PartyOrderNo,
				"item_category":  body.ItemCategory,
				"purity":         body.Purity,
				"size":           body.Size,
				"screw_type":     body.ScrewType,
				"gold_color":     body.GoldColor,
				"is_rate_booked": body.IsRateBooked,
				"booked_rate":    body.BookedRate,
				"has_chain":      body.HasChain,
				"chain_length":   body.ChainLength,
				"cad_file_url":   body.CadFileURL,
				"remarks":        body.Remarks,
			}
			if err := tx.Model(&order).Updates(updates).Error; err != nil {
				return err
			}

			for _, url := range body.ImageURLs {
				if err := tx.Create(&models.OrderImage{OrderID: orderID, ImageURL: url}).Error; err != nil {
					return err
				}
			}
			for _, e := range body.DiamondEntries {
				entry := models.DiamondEntry{
					OrderID: orderID,
					Shape:   e.Shape, SizeMM: e.SizeMM, SieveSize: e.SieveSize,
					Pieces: e.Pieces, Weight: e.Weight,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update order")
		}

		var updated models.Order
		if err := database.DB.
			Preload("Party").
			Preload("Karigar").
			Preload("Images").
			Preload("DiamondEntries").
			First(&updated, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reload order")
		}

		if userID, userEmail, err := getUserInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserEmail:   userEmail,
				EntityType:  "order",
				EntityID:    orderID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Order #%d edited", orderID),
				Before:      before,
				After:       updated,
			})
		}

		return c.JSON(updated)
	}
}

// -------------------------------------------------
// PATCH /api/orders/:id/status
// -------------------------------------------------
func UpdateOrderStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseOrderID(c)
		if err != nil {
			return err
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		switch body.Status {
		case models.StatusIssued, models.StatusReceived, models.StatusCompleted:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Invalid status (ISSUED|RECEIVED|COMPLETED)")
		}

		var order models.Order
		if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if err := authorizeOrderAccess(c, &order); err != nil {
			return err
		}

		if err := database.DB.Model(&order).Update("status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update status")
		}

		return c.JSON(fiber.Map{"id": order.ID, "status": body.Status})
	}
}

// -------------------------------------------------
// POST /api/orders/:id/complete
// -------------------------------------------------
func CompleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseOrderID(c)
		if err != nil {
			return err
		}

		var body CompleteOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.UsedWeight.LessThanOrEqual(decimal.Zero) {
			return fiber.NewError(fiber.StatusBadRequest, "used_weight must be greater than 0")
		}
		if body.Wastage.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "wastage cannot be negative")
		}
		if body.FinalColor == "" {
			return fiber.NewError(fiber.StatusBadRequest, "final_color is required")
		}

		var order models.Order
		if err := database.DB.Preload("MaterialUsed").First(&order, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if err := authorizeOrderAccess(c, &order); err != nil {
			return err
		}

		if order.Status == models.StatusCompleted || order.MaterialUsed != nil {
			return fiber.NewError(fiber.StatusConflict, "Order is already completed")
		}

		usedDiamonds := make([]models.UsedDiamond, 0, len(body.DiamondEntries))
		diaPcs := 0
		diaWt := decimal.Zero
		for _, d := range body.DiamondEntries {
			usedDiamonds = append(usedDiamonds, models.UsedDiamond{
				Shape: d.Shape, SizeMM: d.SizeMM,
				UsedPieces: d.UsedPieces, FinalWeight: d.FinalWeight,
			})
			diaPcs += d.UsedPieces
			diaWt = diaWt.Add(d.FinalWeight)
		}

		used := models.MaterialUsed{
			OrderID:            orderID,
			UsedWeight:         body.UsedWeight,
			Wastage:            body.Wastage,
			FinalMelting:       body.FinalMelting,
			FinalColor:         body.FinalColor,
			FinalProductWeight: body.FinalProductWeight,
			Remarks:            body.Remarks,
			Diamonds:           usedDiamonds,
		}

		now := time.Now()
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&used).Error; err != nil {
				return err
			}
			if err := tx.Model(&order).Updates(map[string]interface{}{
				"status":               models.StatusCompleted,
				"actual_delivery_date": now,
			}).Error; err != nil {
				return err
			}
			return ledger.RecordUsage(tx, order.KarigarID, body.UsedWeight, body.Wastage, diaPcs, diaWt)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not complete order")
		}

		if userID, userEmail, err := getUserInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserEmail:   userEmail,
				EntityType:  "material_used",
				EntityID:    used.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Order #%d completed: %sg used, %sg wastage", orderID, body.UsedWeight.String(), body.Wastage.String()),
				After:       used,
			})
		}

		return c.JSON(fiber.Map{"success": true, "material_used": used})
	}
}

// -------------------------------------------------
// DELETE /api/orders/:id
// -------------------------------------------------
// Children go with the order via the cascade constraints. The ledger is then
// fully resynced rather than decremented: subtracting increments on top of a
// possibly already drifted cache would compound the error.
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseOrderID(c)
		if err != nil {
			return err
		}

		var order models.Order
		if err := database.DB.First(&order, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		karigarID := order.KarigarID

		if err := database.DB.Delete(&models.Order{}, "id = ?", orderID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete order")
		}

		if _, err := ledger.Resync(database.DB, karigarID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Order deleted but ledger resync failed")
		}

		if userID, userEmail, err := getUserInfo(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserEmail:   userEmail,
				EntityType:  "order",
				EntityID:    orderID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Order #%d deleted", orderID),
				Before:      order,
			})
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// -------------------------------------------------
// GET /api/me/orders
// -------------------------------------------------
// The manufacturer's work list, soonest delivery first.
func MyOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		karigarID := auth.KarigarID(c)
		if karigarID == nil {
			return fiber.NewError(fiber.StatusForbidden, "No karigar bound to this account")
		}

		var orders []models.Order
		if err := database.DB.
			Preload("Party").
			Preload("DiamondEntries").
			Where("karigar_id = ?", *karigarID).
			Order("delivery_date ASC").
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list orders")
		}

		return c.JSON(orders)
	}
}
