// services/payment_service.go
package services

import (
	"errors"
	"log"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/utils"
	"monad-feedback-system/workflow"
)

type PaymentService struct {
	DB  *gorm.DB
	RPC *RPCClient
}

func NewPaymentService(db *gorm.DB, rpc *RPCClient) *PaymentService {
	return &PaymentService{DB: db, RPC: rpc}
}

// GetBalance proxies eth_getBalance and converts the hex wei value to a
// decimal string. Callers fall back to a zero display value on failure.
func (s *PaymentService) GetBalance(c *fiber.Ctx) error {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Address is required"})
	}

	balanceHex, err := s.RPC.GetBalance(c.UserContext(), req.Address)
	if err != nil {
		log.Printf("Error fetching balance from RPC: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch balance",
			"details": err.Error(),
		})
	}

	balance, err := utils.HexToDecimalString(balanceHex)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to fetch balance",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"balance":    balance,
		"address":    req.Address,
		"balanceHex": balanceHex,
	})
}

// CheckTransaction is the single point-in-time receipt lookup. A missing
// receipt is confirmed:false, not an error — polling cadence belongs to the
// caller.
func (s *PaymentService) CheckTransaction(c *fiber.Ctx) error {
	var req struct {
		TxHash string `json:"txHash"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.TxHash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Transaction hash is required"})
	}

	result, err := s.RPC.CheckConfirmation(c.UserContext(), req.TxHash)
	if err != nil {
		log.Printf("Error checking transaction confirmation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check transaction",
			"details": err.Error(),
		})
	}

	if !result.Confirmed {
		return c.JSON(fiber.Map{
			"confirmed": false,
			"txHash":    req.TxHash,
		})
	}

	return c.JSON(fiber.Map{
		"confirmed":   true,
		"success":     result.Success,
		"txHash":      req.TxHash,
		"receipt":     result.Receipt,
		"blockNumber": result.BlockNumber,
		"gasUsed":     result.GasUsed,
		"status":      result.Status,
	})
}

// CheckPaymentStatus reports whether the wallet has any confirmed payment.
func (s *PaymentService) CheckPaymentStatus(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Wallet address is required"})
	}

	payment, err := ConfirmedPaymentForWallet(s.DB, req.WalletAddress)
	if err != nil {
		log.Printf("Error checking payment status: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check payment status",
			"details": err.Error(),
		})
	}

	count := 0
	if payment != nil {
		count = 1
	}
	return c.JSON(fiber.Map{
		"hasPayment":   payment != nil,
		"paymentCount": count,
		"lastPayment":  payment,
	})
}

// CheckEligibility runs the pre-payment gate before the client opens the
// wallet: no confirmed payment on record (globally, or for the form when
// formId is set) and enough balance to cover the required amount.
func (s *PaymentService) CheckEligibility(c *fiber.Ctx) error {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Amount        string `json:"amount"`
		FormID        string `json:"formId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletAddress == "" || req.Amount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Wallet address and amount are required",
		})
	}

	requiredWei, err := utils.TokenToWei(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
	}

	wallet := utils.NormalizeAddress(req.WalletAddress)

	var hasPaid bool
	if req.FormID != "" {
		hasPaid, err = HasConfirmedPaymentForForm(s.DB, wallet, req.FormID)
	} else {
		hasPaid, err = HasConfirmedPayment(s.DB, wallet)
	}
	if err != nil {
		log.Printf("Error checking payment eligibility: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check eligibility",
			"details": err.Error(),
		})
	}

	balanceHex, err := s.RPC.GetBalance(c.UserContext(), wallet)
	if err != nil {
		log.Printf("Error fetching balance from RPC: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check eligibility",
			"details": err.Error(),
		})
	}
	balanceDec, err := utils.HexToDecimalString(balanceHex)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to check eligibility",
			"details": err.Error(),
		})
	}
	balanceWei, _ := new(big.Int).SetString(balanceDec, 10)
	balanceToken, _ := utils.WeiToToken(balanceDec)

	flow := workflow.NewPaymentFlow(wallet)
	flow.FormID = req.FormID
	if err := flow.BeginPayment(hasPaid, balanceWei, requiredWei); err != nil {
		switch {
		case errors.Is(err, workflow.ErrAlreadyPaid):
			return c.JSON(fiber.Map{
				"eligible": false,
				"reason":   "already_paid",
				"balance":  balanceToken,
			})
		case errors.Is(err, workflow.ErrInsufficientBalance):
			return c.JSON(fiber.Map{
				"eligible": false,
				"reason":   "insufficient_balance",
				"balance":  balanceToken,
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{
		"eligible": true,
		"balance":  balanceToken,
	})
}

type recordPaymentRequest struct {
	PaymentHash   string `json:"paymentHash"`
	WalletAddress string `json:"walletAddress"`
	Amount        string `json:"amount"`
	FormID        string `json:"formId"`
	Status        string `json:"status"`
	BlockNumber   *int64 `json:"blockNumber"`
	GasUsed       *int64 `json:"gasUsed"`
}

// RecordPayment records a payment for the global feedback slot.
func (s *PaymentService) RecordPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PaymentHash == "" || req.WalletAddress == "" || req.Amount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payment hash, wallet address, and amount are required",
		})
	}
	return s.recordPayment(c, req, nil)
}

// RecordFormPayment records a payment scoped to a specific form.
func (s *PaymentService) RecordFormPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.PaymentHash == "" || req.WalletAddress == "" || req.Amount == "" || req.FormID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payment hash, wallet address, amount, and form ID are required",
		})
	}
	formID := req.FormID
	return s.recordPayment(c, req, &formID)
}

// recordPayment is idempotent per hash: an existing row is updated in place,
// so exactly one row per hash ever exists.
func (s *PaymentService) recordPayment(c *fiber.Ctx, req recordPaymentRequest, formID *string) error {
	existing, err := FindPaymentByHash(s.DB, req.PaymentHash)
	if err != nil {
		log.Printf("Error recording payment: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to record payment",
			"details": err.Error(),
		})
	}

	if existing != nil {
		upd := PaymentUpdate{BlockNumber: req.BlockNumber, GasUsed: req.GasUsed}
		if req.Status != "" {
			upd.Status = &req.Status
		}
		updated, err := UpdatePaymentByHash(s.DB, req.PaymentHash, upd)
		if err != nil {
			log.Printf("Error updating payment %s: %v", req.PaymentHash, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to record payment",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"payment": updated,
			"action":  "updated",
		})
	}

	created, err := CreatePayment(s.DB, CreatePaymentInput{
		PaymentHash:   req.PaymentHash,
		WalletAddress: req.WalletAddress,
		Amount:        req.Amount,
		Status:        req.Status,
		BlockNumber:   req.BlockNumber,
		GasUsed:       req.GasUsed,
		FormID:        formID,
	})
	if err != nil {
		log.Printf("Error creating payment %s: %v", req.PaymentHash, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to record payment",
			"details": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"payment": created,
		"action":  "created",
	})
}

// ConfirmPayment runs the bounded confirmation poll server-side: 1s cadence,
// up to 30 attempts, then a timeout outcome distinct from failure. The
// ledger row is finalized on confirmed/failed and left pending on timeout.
func (s *PaymentService) ConfirmPayment(c *fiber.Ctx) error {
	var req struct {
		TxHash        string `json:"txHash"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.TxHash == "" || req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Transaction hash and wallet address are required",
		})
	}

	flow := workflow.NewConfirmingFlow(utils.NormalizeAddress(req.WalletAddress), req.TxHash)
	outcome, conf, err := flow.AwaitConfirmation(c.UserContext(), s.RPC)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to confirm payment",
			"details": err.Error(),
		})
	}

	switch outcome {
	case workflow.OutcomeConfirmed, workflow.OutcomeFailed:
		status := models.PaymentStatusConfirmed
		if outcome == workflow.OutcomeFailed {
			status = models.PaymentStatusFailed
		}
		if _, err := UpdatePaymentByHash(s.DB, req.TxHash, PaymentUpdate{
			Status:      &status,
			BlockNumber: &conf.BlockNumber,
			GasUsed:     &conf.GasUsed,
		}); err != nil {
			// best-effort — the chain is the source of truth, the reconciler
			// will pick the row up later
			log.Printf("Error finalizing payment %s: %v", req.TxHash, err)
		}
		return c.JSON(fiber.Map{
			"state":       string(outcome),
			"success":     outcome == workflow.OutcomeConfirmed,
			"blockNumber": conf.BlockNumber,
			"gasUsed":     conf.GasUsed,
		})
	default:
		return c.JSON(fiber.Map{
			"state":   string(workflow.OutcomeTimeout),
			"success": false,
			"message": "Transaction not confirmed within 30 attempts. Please check the explorer manually.",
		})
	}
}

// Health reports process and database liveness.
func (s *PaymentService) Health(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := s.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unreachable"
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"db":     dbStatus,
	})
}
