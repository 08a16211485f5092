package party

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"karigar-backend/internal/audit"
	"karigar-backend/internal/auth"
	"karigar-backend/internal/database"
	"karigar-backend/internal/models"
)

type PartyRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	GST     string `json:"gst"`
	Notes   string `json:"notes"`
}

type PartyResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	GST       string `json:"gst"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

func toResponse(p *models.Party) PartyResponse {
	return PartyResponse{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Address:   p.Address,
		GST:       p.GST,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parsePartyID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid party ID")
	}
	return id, nil
}

func writeAudit(c *fiber.Ctx, action models.AuditAction, p *models.Party, before any, desc string) {
	userID, ok := c.Locals(auth.CtxUserIDKey).(uint)
	if !ok {
		return
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return
	}
	_ = audit.WriteLog(audit.LogOptions{
		UserID:      userID,
		UserEmail:   user.Email,
		EntityType:  "party",
		EntityID:    p.ID,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       p,
	})
}

// POST /api/parties
func CreatePartyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PartyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		party := models.Party{
			Name:    body.Name,
			Phone:   body.Phone,
			Address: body.Address,
			GST:     body.GST,
			Notes:   body.Notes,
		}

		if err := database.DB.Create(&party).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create party")
		}

		writeAudit(c, models.AuditActionCreate, &party, nil, fmt.Sprintf("Party %q created", party.Name))

		return c.Status(fiber.StatusCreated).JSON(toResponse(&party))
	}
}

// GET /api/parties
func ListPartiesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var parties []models.Party
		if err := database.DB.Order("created_at DESC").Find(&parties).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list parties")
		}

		resp := make([]PartyResponse, 0, len(parties))
		for i := range parties {
			resp = append(resp, toResponse(&parties[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/parties/:id
func GetPartyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parsePartyID(c)
		if err != nil {
			return err
		}

		var party models.Party
		if err := database.DB.First(&party, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Party not found")
		}
		return c.JSON(toResponse(&party))
	}
}

// PUT /api/parties/:id
func UpdatePartyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parsePartyID(c)
		if err != nil {
			return err
		}

		var body PartyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		var party models.Party
		if err := database.DB.First(&party, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Party not found")
		}
		before := party

		updates := map[string]interface{}{
			"name":    body.Name,
			"phone":   body.Phone,
			"address": body.Address,
			"gst":     body.GST,
			"notes":   body.Notes,
		}
		if err := database.DB.Model(&party).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update party")
		}
		if err := database.DB.First(&party, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reload party")
		}

		writeAudit(c, models.AuditActionUpdate, &party, before, fmt.Sprintf("Party %q updated", party.Name))

		return c.JSON(toResponse(&party))
	}
}

// DELETE /api/parties/:id
func DeletePartyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parsePartyID(c)
		if err != nil {
			return err
		}

		var party models.Party
		if err := database.DB.First(&party, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Party not found")
		}

		// Refuse while orders still reference the party
		var orderCount int64
		database.DB.Model(&models.Order{}).Where("party_id = ?", id).Count(&orderCount)
		if orderCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Party has orders, delete them first")
		}

		if err := database.DB.Delete(&party).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete party")
		}

		writeAudit(c, models.AuditActionDelete, &party, party, fmt.Sprintf("Party %q deleted", party.Name))

		return c.JSON(fiber.Map{"success": true})
	}
}
