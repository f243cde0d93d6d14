package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billpay/app/factory"
	"github.com/vibast-solutions/ms-go-billpay/app/mapper"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/service"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("billpay-payment-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) ProvisionAccount(ctx echo.Context) error {
	req, err := types.NewProvisionAccountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.ProvisionAccount(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateReference):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Provision account failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.ReservedAccountEnvelopeResponse{Account: mapper.ReservedAccountToResponse(item)})
}

func (c *PaymentController) GetReservedAccount(ctx echo.Context) error {
	item, err := c.paymentService.GetReservedAccount(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		if errors.Is(err, service.ErrReservedAccountNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "reserved account not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get reserved account failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ReservedAccountEnvelopeResponse{Account: mapper.ReservedAccountToResponse(item)})
}

func (c *PaymentController) InitiatePayment(ctx echo.Context) error {
	req, err := types.NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.InitiatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateReference):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, provider.ErrProviderTimeout):
			return c.writeError(ctx, http.StatusBadGateway, "provider timeout")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Initiate payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ConfirmPayment(ctx echo.Context) error {
	item, err := c.paymentService.ConfirmPayment(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, provider.ErrProviderTimeout):
			return c.writeError(ctx, http.StatusBadGateway, "provider timeout")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Confirm payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) SinglePayout(ctx echo.Context) error {
	req, err := types.NewPayoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.SinglePayout(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateReference):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, provider.ErrProviderTimeout):
			return c.writeError(ctx, http.StatusBadGateway, "provider timeout")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Single payout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PayoutEnvelopeResponse{Payout: mapper.PayoutToResponse(item)})
}

func (c *PaymentController) BulkPayout(ctx echo.Context) error {
	req, err := types.NewBulkPayoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, batchReference, err := c.paymentService.BulkPayout(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateReference):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Bulk payout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.BulkPayoutResponse{
		BatchReference: batchReference,
		Payouts:        mapper.PayoutsToResponse(items),
	})
}

func (c *PaymentController) PayoutStatus(ctx echo.Context) error {
	item, err := c.paymentService.PayoutStatus(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payout not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Payout status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PayoutEnvelopeResponse{Payout: mapper.PayoutToResponse(item)})
}

func (c *PaymentController) ListBanks(ctx echo.Context) error {
	items, err := c.paymentService.ListBanks(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List banks failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListBanksResponse{Banks: mapper.BanksToResponse(items)})
}

func (c *PaymentController) ListProviderTransactions(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	size, _ := strconv.Atoi(ctx.QueryParam("size"))

	body, err := c.paymentService.ListProviderTransactions(ctx.Request().Context(), page, size)
	if err != nil {
		if errors.Is(err, provider.ErrProviderTimeout) {
			return c.writeError(ctx, http.StatusBadGateway, "provider unavailable")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List transactions failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSONBlob(http.StatusOK, body)
}

func (c *PaymentController) ProviderBalance(ctx echo.Context) error {
	balance, err := c.paymentService.ProviderBalance(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Provider balance failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ProviderBalanceResponse{
		AvailableKobo: balance.AvailableKobo,
		LedgerKobo:    balance.LedgerKobo,
	})
}

func (c *PaymentController) CustomerWallet(ctx echo.Context) error {
	wallet, err := c.paymentService.CustomerWallet(ctx.Request().Context(), ctx.Param("email"))
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Customer wallet failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.WalletEnvelopeResponse{Wallet: mapper.WalletToResponse(wallet)})
}

// HandleWebhook acks replays with 200 so the provider stops retrying.
// Signature mismatches get 400 and no state change.
func (c *PaymentController) HandleWebhook(ctx echo.Context) error {
	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	event := provider.WebhookPayload{
		TransactionReference: req.TransactionReference,
		PaymentReference:     req.PaymentReference,
		AmountPaid:           req.AmountPaid,
		PaidOn:               req.PaidOn,
		TransactionHash:      req.TransactionHash,
	}

	result, err := c.paymentService.Reconcile(ctx.Request().Context(), event, req.RawBody)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			return c.writeError(ctx, http.StatusBadRequest, "signature mismatch")
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrReconcileInProgress):
			// A non-2xx keeps the provider redelivering until a delivery
			// actually commits.
			return c.writeError(ctx, http.StatusConflict, "delivery in progress, retry")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Webhook reconcile failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	if result.AlreadyApplied {
		return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Already processed"})
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Settlement processed"})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
