package karigar

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"karigar-backend/internal/audit"
	"karigar-backend/internal/auth"
	"karigar-backend/internal/database"
	"karigar-backend/internal/models"
)

type CreateKarigarRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	Specialization string `json:"specialization"`
	Notes          string `json:"notes"`
	// Optional: provision a manufacturer login bound to this karigar
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateKarigarRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	Specialization string `json:"specialization"`
	Notes          string `json:"notes"`
}

type KarigarResponse struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	Specialization string `json:"specialization"`
	Notes          string `json:"notes"`
	CreatedAt      string `json:"created_at"`
}

func toResponse(k *models.Karigar) KarigarResponse {
	return KarigarResponse{
		ID:             k.ID,
		Name:           k.Name,
		Phone:          k.Phone,
		Location:       k.Location,
		Specialization: k.Specialization,
		Notes:          k.Notes,
		CreatedAt:      k.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parseKarigarID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid karigar ID")
	}
	return id, nil
}

func writeAudit(c *fiber.Ctx, action models.AuditAction, k *models.Karigar, before any, desc string) {
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
		EntityType:  "karigar",
		EntityID:    k.ID,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       k,
	})
}

// POST /api/karigars
// Creating the login user and the karigar is one transaction: a karigar with
// a half-provisioned account is worse than no karigar at all.
func CreateKarigarHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateKarigarRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email != "" {
			var count int64
			database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Email already taken")
			}
			if body.Password == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Password is required when email is set")
			}
		}

		karigar := models.Karigar{
			Name:           body.Name,
			Phone:          body.Phone,
			Location:       body.Location,
			Specialization: body.Specialization,
			Notes:          body.Notes,
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&karigar).Error; err != nil {
				return err
			}

			if body.Email != "" {
				hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				user := models.User{
					Email:        body.Email,
					PasswordHash: string(hash),
					Role:         models.RoleManufacturer,
					KarigarID:    &karigar.ID,
				}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create karigar")
		}

		writeAudit(c, models.AuditActionCreate, &karigar, nil, fmt.Sprintf("Karigar %q created", karigar.Name))

		return c.Status(fiber.StatusCreated).JSON(toResponse(&karigar))
	}
}

// GET /api/karigars
func ListKarigarsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var karigars []models.Karigar
		if err := database.DB.Order("created_at DESC").Find(&karigars).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list karigars")
		}

		resp := make([]KarigarResponse, 0, len(karigars))
		for i := range karigars {
			resp = append(resp, toResponse(&karigars[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/karigars/:id
func GetKarigarHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseKarigarID(c)
		if err != nil {
			return err
		}

		var karigar models.Karigar
		if err := database.DB.First(&karigar, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Karigar not found")
		}
		return c.JSON(toResponse(&karigar))
	}
}

// PUT /api/karigars/:id
func UpdateKarigarHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseKarigarID(c)
		if err != nil {
			return err
		}

		var body UpdateKarigarRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		var karigar models.Karigar
		if err := database.DB.First(&karigar, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Karigar not found")
		}
		before := karigar

		updates := map[string]interface{}{
			"name":           body.Name,
			"phone":          body.Phone,
			"location":       body.Location,
			"specialization": body.Specialization,
			"notes":          body.Notes,
		}
		if err := database.DB.Model(&karigar).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update karigar")
		}
		if err := database.DB.First(&karigar, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reload karigar")
		}

		writeAudit(c, models.AuditActionUpdate, &karigar, before, fmt.Sprintf("Karigar %q updated", karigar.Name))

		return c.JSON(toResponse(&karigar))
	}
}

// DELETE /api/karigars/:id
// Orders, their material records and the ledger row all go with the karigar
// through the cascade constraints.
func DeleteKarigarHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseKarigarID(c)
		if err != nil {
			return err
		}

		var karigar models.Karigar
		if err := database.DB.First(&karigar, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Karigar not found")
		}

		if err := database.DB.Delete(&karigar).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete karigar")
		}

		writeAudit(c, models.AuditActionDelete, &karigar, karigar, fmt.Sprintf("Karigar %q deleted", karigar.Name))

		return c.JSON(fiber.Map{"success": true})
	}
}
