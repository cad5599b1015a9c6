package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nandaputra/bidlance_be/internal/models"
	"github.com/nandaputra/bidlance_be/internal/services/assignment"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

// getActor builds the workflow actor from the verified JWT locals.
func getActor(c *fiber.Ctx) (assignment.Actor, error) {
	uid, err := getUserUUID(c)
	if err != nil {
		return assignment.Actor{}, err
	}

	role, _ := c.Locals("role").(string)
	return assignment.Actor{
		ID:      uid,
		IsAdmin: role == string(models.RoleAdmin),
	}, nil
}

// statusForKind maps a workflow error kind to its response code. The
// workflow package stays transport-agnostic; this is the only place
// kinds meet HTTP.
func statusForKind(kind assignment.Kind) int {
	switch kind {
	case assignment.KindNotFound:
		return fiber.StatusNotFound
	case assignment.KindForbidden:
		return fiber.StatusForbidden
	case assignment.KindInvalidState, assignment.KindConflict:
		return fiber.StatusConflict
	case assignment.KindBadRequest:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// workflowError renders an assignment service failure. Expected errors
// keep their message; anything else is logged and hidden behind a 500.
func workflowError(c *fiber.Ctx, err error) error {
	if e := assignment.AsError(err); e != nil {
		return c.Status(statusForKind(e.Kind)).JSON(fiber.Map{
			"success": false,
			"error":   string(e.Kind),
			"message": e.Message,
		})
	}

	log.Printf("[API] Unexpected error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}
