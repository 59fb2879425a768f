package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"funnelscope/internal/funnels"
)

// FunnelsIndexAction lists the funnels of one organization.
func FunnelsIndexAction(ctx *cartridge.Context) error {
	orgID, err := strconv.ParseUint(ctx.Query("organization_id"), 10, 32)
	if err != nil {
		return handleAnalyticsError(ctx, &badRequestError{message: "organization_id is required"})
	}

	list, err := funnels.ListForOrganization(ctx.DBManager.GetConnection(), uint(orgID))
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"funnels": list})
}

// FunnelsShowAction returns one funnel by id.
func FunnelsShowAction(ctx *cartridge.Context) error {
	funnelID, err := strconv.ParseUint(ctx.Params("id"), 10, 32)
	if err != nil {
		return handleAnalyticsError(ctx, &badRequestError{message: "invalid funnel id"})
	}

	funnel, err := funnels.GetByID(ctx.DBManager.GetConnection(), uint(funnelID))
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	return ctx.JSON(funnel)
}
