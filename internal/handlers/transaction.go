// internal/handlers/transaction.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
	paymentService     *services.PaymentService
}

type createLicenseFeeRequest struct {
	LicenseID uuid.UUID `json:"license_id" validate:"required"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
}

type createRoyaltyRequest struct {
	LicenseID   uuid.UUID `json:"license_id" validate:"required"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	Description string    `json:"description,omitempty"`
}

type completePaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	PaymentRef    string `json:"payment_ref,omitempty"`
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func NewTransactionHandler(transactionService *services.TransactionService, paymentService *services.PaymentService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		paymentService:     paymentService,
	}
}

// GET /transactions
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.TransactionSearchParams{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		s := models.TransactionStatus(status)
		searchParams.Status = &s
	}
	if txnType := c.Query("type"); txnType != "" {
		t := models.TransactionType(txnType)
		searchParams.Type = &t
	}
	if licenseIDStr := c.Query("license_id"); licenseIDStr != "" {
		if licenseID, err := uuid.Parse(licenseIDStr); err == nil {
			searchParams.LicenseID = &licenseID
		}
	}

	txns, total, err := h.transactionService.SearchTransactions(searchParams)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(txns, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /transactions
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if req.PayerID == nil {
		req.PayerID = &userID
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.CreateTransaction(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, txn)
}

// POST /transactions/license-fee
func (h *TransactionHandler) CreateLicenseFee(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req createLicenseFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.CreateLicenseFee(req.LicenseID, &userID, req.Amount)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, txn)
}

// POST /transactions/royalty
func (h *TransactionHandler) CreateRoyalty(c *gin.Context) {
	var req createRoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.CreateRoyalty(req.LicenseID, req.Amount, req.Description)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, txn)
}

// GET /transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.transactionService.GetTransaction(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// POST /transactions/:id/complete
func (h *TransactionHandler) CompletePayment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req completePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.CompletePayment(id, req.PaymentMethod, req.PaymentRef)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// POST /transactions/:id/refund
func (h *TransactionHandler) RefundTransaction(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	// Refund through Stripe when the transaction carries a payment ref,
	// otherwise just flip the ledger entry.
	txn, err := h.paymentService.RefundPayment(id, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// GET /transactions/pending-settlements
func (h *TransactionHandler) GetPendingSettlements(c *gin.Context) {
	txns, err := h.transactionService.GetPendingSettlements()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, txns)
}

// GET /transactions/stats
func (h *TransactionHandler) GetTransactionStats(c *gin.Context) {
	stats, err := h.transactionService.GetStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// POST /transactions/:id/payment-intent
func (h *TransactionHandler) CreatePaymentIntent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.paymentService.CreatePaymentIntent(&services.CreatePaymentIntentRequest{
		TransactionID: id,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, resp)
}

// POST /transactions/confirm-payment
func (h *TransactionHandler) ConfirmPayment(c *gin.Context) {
	var req services.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.paymentService.ConfirmPayment(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}
