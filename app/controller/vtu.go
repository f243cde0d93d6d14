package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billpay/app/factory"
	"github.com/vibast-solutions/ms-go-billpay/app/mapper"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/service"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
)

type VTUController struct {
	vtuService *service.VTUService
	logger     logrus.FieldLogger
}

func NewVTUController(vtuService *service.VTUService) *VTUController {
	return &VTUController{
		vtuService: vtuService,
		logger:     factory.NewModuleLogger("billpay-vtu-controller"),
	}
}

func (c *VTUController) ServiceVariations(ctx echo.Context) error {
	output, err := c.vtuService.ServiceVariations(ctx.Request().Context(), ctx.Param("service_id"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownService) {
			return c.writeError(ctx, http.StatusNotFound, "unknown service id")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Service variations failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.VariationsToResponse(output))
}

func (c *VTUController) VerifyCustomer(ctx echo.Context) error {
	req, err := types.NewVerifyCustomerRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	output, err := c.vtuService.VerifyCustomer(ctx.Request().Context(), req)
	if err != nil {
		var providerErr *provider.ProviderError
		switch {
		case errors.Is(err, service.ErrUnknownService):
			return c.writeError(ctx, http.StatusNotFound, "unknown service id")
		case errors.As(err, &providerErr):
			return c.writeError(ctx, http.StatusUnprocessableEntity, providerErr.Message)
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Verify customer failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.VerifyCustomerResponse{
		CustomerName: output.CustomerName,
		Address:      output.Address,
	})
}

func (c *VTUController) Purchase(ctx echo.Context) error {
	req, err := types.NewPurchaseRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.vtuService.Purchase(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownService):
			return c.writeError(ctx, http.StatusNotFound, "unknown service id")
		case errors.Is(err, service.ErrDuplicateReference):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInsufficientFunds):
			return c.writeError(ctx, http.StatusPaymentRequired, "insufficient wallet balance")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Purchase failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.VTUOrderEnvelopeResponse{Order: mapper.VTUOrderToResponse(item)})
}

func (c *VTUController) GetOrder(ctx echo.Context) error {
	item, err := c.vtuService.GetOrder(ctx.Request().Context(), ctx.Param("request_id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get order failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.VTUOrderEnvelopeResponse{Order: mapper.VTUOrderToResponse(item)})
}

// Requery returns 200 even when the order stays non-terminal: a
// still-processing answer is a valid status.
func (c *VTUController) Requery(ctx echo.Context) error {
	item, err := c.vtuService.Requery(ctx.Request().Context(), ctx.Param("request_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, provider.ErrProviderTimeout):
			return c.writeError(ctx, http.StatusBadGateway, "provider timeout")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Requery failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.VTUOrderEnvelopeResponse{Order: mapper.VTUOrderToResponse(item)})
}

func (c *VTUController) ProviderBalance(ctx echo.Context) error {
	balance, err := c.vtuService.ProviderBalance(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Provider balance failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.VTUBalanceResponse{BalanceKobo: balance})
}

func (c *VTUController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
