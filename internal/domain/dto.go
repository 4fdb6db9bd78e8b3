package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

type CustomerInput struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Name    string     `json:"name" validate:"required_without=ID"`
	Phone   string     `json:"phone"`
	Address string     `json:"address"`
	IDCard  string     `json:"id_card"`
}

type CreateContractRequest struct {
	Customer     CustomerInput    `json:"customer"`
	Device       string           `json:"device" validate:"required"`
	Principal    decimal.Decimal  `json:"principal" validate:"gt=0"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0"`
	PawnDate     string           `json:"pawn_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DurationDays int              `json:"duration_days,omitempty" validate:"gte=0"`
	Paperless    bool             `json:"paperless"`
	Notes        string           `json:"notes"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	IDCard  string `json:"id_card"`
}

type RenewRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

// AdjustDirection selects whether principal grows or shrinks.
type AdjustDirection string

const (
	AdjustIncrease AdjustDirection = "increase"
	AdjustDecrease AdjustDirection = "decrease"
)

type AdjustPrincipalRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Direction AdjustDirection `json:"direction" validate:"required,oneof=increase decrease"`
}

// RedeemRequest carries the settlement total. A zero amount means "settle at
// the current quote".
type RedeemRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

type CloseRequest struct {
	Reason string `json:"reason"`
}

type ValuationRequest struct {
	Brand     string `json:"brand"`
	Model     string `json:"model" validate:"required"`
	Condition string `json:"condition"`
}

// Accrual is the interest position of a contract at a reference date.
type Accrual struct {
	InterestOwed decimal.Decimal `json:"interest_owed"`
	TotalDays    int             `json:"total_days"`
	OverdueDays  int             `json:"overdue_days"`
}

// ContractView is a contract together with its derived read-time values.
type ContractView struct {
	Contract
	DisplayStatus   ContractStatus  `json:"display_status"`
	Accrual         Accrual         `json:"accrual"`
	DailyInterest   decimal.Decimal `json:"daily_interest"`
	RedemptionTotal decimal.Decimal `json:"redemption_total"`
	ReferenceDate   string          `json:"reference_date"`
}

type CustomerResponse struct {
	Customer  *Customer       `json:"customer"`
	Contracts []*ContractView `json:"contracts,omitempty"`
}

// Summary is the dashboard rollup over Active contracts.
type Summary struct {
	ActiveContracts      int             `json:"active_contracts"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	InterestOwed         decimal.Decimal `json:"interest_owed"`
	OverdueContracts     int             `json:"overdue_contracts"`
	DueToday             int             `json:"due_today"`
	ReferenceDate        string          `json:"reference_date"`
}
