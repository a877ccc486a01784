package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

const (
	Income          TransactionType = "INCOME"
	FixedExpense    TransactionType = "FIXED_EXPENSE"
	VariableExpense TransactionType = "VARIABLE_EXPENSE"
	Investment      TransactionType = "INVESTMENT"
)

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusPaid     TransactionStatus = "PAID"
	StatusReceived TransactionStatus = "RECEIVED"
)

const (
	PlannedPending   PlannedStatus = "PENDING"
	PlannedPurchased PlannedStatus = "PURCHASED"
)

const (
	PlanFree    Plan = "FREE"
	PlanPremium Plan = "PREMIUM"
)

const (
	maxDescriptionLen = 200
	maxNameLen        = 80
	maxNotesLen       = 500
)

type (
	TransactionType   string
	TransactionStatus string
	PlannedStatus     string
	Plan              string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID                     string    `json:"id"`
		Email                  string    `json:"email"`
		Plan                   *Plan     `json:"subscriptionStatus"`
		HasCompletedOnboarding bool      `json:"hasCompletedOnboarding"`
		CreatedAt              time.Time `json:"createdAt"`
	}

	CategoryRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          string            `json:"id"`
		UserID      string            `json:"-"`
		Description string            `json:"description"`
		Amount      Money             `json:"amount"`
		Date        Date              `json:"date"`
		Type        TransactionType   `json:"type"`
		Status      TransactionStatus `json:"status"`
		CategoryID  string            `json:"categoryId,omitempty"`
		Category    *CategoryRef      `json:"category,omitempty"`
		CreatedAt   time.Time         `json:"createdAt"`
		UpdatedAt   time.Time         `json:"updatedAt"`
	}

	Category struct {
		ID             string          `json:"id"`
		UserID         string          `json:"-"`
		Name           string          `json:"name"`
		NormalizedName string          `json:"normalizedName"`
		Type           TransactionType `json:"type"`
		CreatedAt      time.Time       `json:"createdAt"`
	}

	Debt struct {
		ID           string    `json:"id"`
		UserID       string    `json:"-"`
		Description  string    `json:"description"`
		TotalAmount  Money     `json:"totalAmount"`
		StartDate    Date      `json:"startDate"`
		DueDate      *Date     `json:"dueDate"`
		Installments *int      `json:"installments"`
		Category     *string   `json:"category"`
		IsPaidOff    bool      `json:"isPaidOff"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	DebtPayment struct {
		ID                string    `json:"id"`
		DebtID            string    `json:"debtId"`
		AmountPaid        Money     `json:"amountPaid"`
		PaymentDate       Date      `json:"paymentDate"`
		InstallmentNumber *int      `json:"installmentNumber"`
		Notes             *string   `json:"notes"`
		CreatedAt         time.Time `json:"createdAt"`
	}

	PlannedPurchase struct {
		ID          string        `json:"id"`
		UserID      string        `json:"-"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Amount      Money         `json:"amount"`
		Deadline    Date          `json:"deadline"`
		Status      PlannedStatus `json:"status"`
		CreatedAt   time.Time     `json:"createdAt"`
	}

	// Patches carry the subset of fields an update touches. Nil means unchanged.

	TransactionPatch struct {
		Description *string
		Amount      *Money
		Date        *Date
		Type        *TransactionType
		Status      *TransactionStatus
		// CategoryID pointing to "" detaches the category.
		CategoryID *string
	}

	CategoryPatch struct {
		Name *string
		Type *TransactionType
	}

	DebtPatch struct {
		Description  *string
		TotalAmount  *Money
		StartDate    *Date
		DueDate      *Date
		Installments *int
		Category     *string
	}

	PaymentPatch struct {
		AmountPaid        *Money
		PaymentDate       *Date
		InstallmentNumber *int
		Notes             *string
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroDate      = errors.New("date cannot be zero")
)

// TransactionTypes lists every transaction type in display order.
var TransactionTypes = []TransactionType{Income, FixedExpense, VariableExpense, Investment}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, FixedExpense, VariableExpense, Investment:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusReceived:
		return true
	}
	return false
}

func (s PlannedStatus) Valid() bool {
	return s == PlannedPending || s == PlannedPurchased
}

// Toggle flips between PENDING and PURCHASED.
func (s PlannedStatus) Toggle() PlannedStatus {
	if s == PlannedPurchased {
		return PlannedPending
	}
	return PlannedPurchased
}

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps from clients that send ISO strings.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(errs ValidationErrors, field, s string, min int) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		errs.Add(field, "is required")
	case n < min:
		errs.Add(field, "is too short")
	case n > maxDescriptionLen:
		errs.Add(field, "is too long (max 200 characters)")
	}
}

func validateAmount(errs ValidationErrors, field string, m Money) {
	if m.Validate() != nil {
		errs.Add(field, "must be greater than 0")
	}
}

func validateDate(errs ValidationErrors, field string, d Date) {
	if d.Validate() != nil {
		errs.Add(field, "is required")
	}
}

func (t Transaction) Validate() error {
	errs := ValidationErrors{}
	validateDescription(errs, "description", t.Description, 3)
	validateAmount(errs, "amount", t.Amount)
	validateDate(errs, "date", t.Date)
	if !t.Type.Valid() {
		errs.Add("type", "must be one of INCOME, FIXED_EXPENSE, VARIABLE_EXPENSE, INVESTMENT")
	}
	if !t.Status.Valid() {
		errs.Add("status", "must be one of PENDING, PAID, RECEIVED")
	}
	return errs.Err()
}

func (p TransactionPatch) Validate() error {
	errs := ValidationErrors{}
	if p.Description != nil {
		validateDescription(errs, "description", *p.Description, 3)
	}
	if p.Amount != nil {
		validateAmount(errs, "amount", *p.Amount)
	}
	if p.Date != nil {
		validateDate(errs, "date", *p.Date)
	}
	if p.Type != nil && !p.Type.Valid() {
		errs.Add("type", "must be one of INCOME, FIXED_EXPENSE, VARIABLE_EXPENSE, INVESTMENT")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs.Add("status", "must be one of PENDING, PAID, RECEIVED")
	}
	return errs.Err()
}

func validateCategoryName(errs ValidationErrors, name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		errs.Add("name", "is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		errs.Add("name", "is too long (max 80 characters)")
	case Normalize(name) == "":
		errs.Add("name", "must contain letters or digits")
	}
}

func (c Category) Validate() error {
	errs := ValidationErrors{}
	validateCategoryName(errs, c.Name)
	if !c.Type.Valid() {
		errs.Add("type", "must be one of INCOME, FIXED_EXPENSE, VARIABLE_EXPENSE, INVESTMENT")
	}
	return errs.Err()
}

func (p CategoryPatch) Validate() error {
	errs := ValidationErrors{}
	if p.Name != nil {
		validateCategoryName(errs, *p.Name)
	}
	if p.Type != nil && !p.Type.Valid() {
		errs.Add("type", "must be one of INCOME, FIXED_EXPENSE, VARIABLE_EXPENSE, INVESTMENT")
	}
	return errs.Err()
}

func validateInstallments(errs ValidationErrors, field string, n *int) {
	if n != nil && *n < 1 {
		errs.Add(field, "must be at least 1")
	}
}

func (d Debt) Validate() error {
	errs := ValidationErrors{}
	validateDescription(errs, "description", d.Description, 1)
	validateAmount(errs, "totalAmount", d.TotalAmount)
	validateDate(errs, "startDate", d.StartDate)
	validateInstallments(errs, "installments", d.Installments)
	if d.DueDate != nil && !d.StartDate.IsZero() && d.DueDate.Before(d.StartDate.Time) {
		errs.Add("dueDate", "must not be before the start date")
	}
	return errs.Err()
}

func (p DebtPatch) Validate() error {
	errs := ValidationErrors{}
	if p.Description != nil {
		validateDescription(errs, "description", *p.Description, 1)
	}
	if p.TotalAmount != nil {
		validateAmount(errs, "totalAmount", *p.TotalAmount)
	}
	if p.StartDate != nil {
		validateDate(errs, "startDate", *p.StartDate)
	}
	if p.DueDate != nil {
		validateDate(errs, "dueDate", *p.DueDate)
	}
	validateInstallments(errs, "installments", p.Installments)
	return errs.Err()
}

func validateNotes(errs ValidationErrors, notes *string) {
	if notes != nil && utf8.RuneCountInString(*notes) > maxNotesLen {
		errs.Add("notes", "is too long (max 500 characters)")
	}
}

func (p DebtPayment) Validate() error {
	errs := ValidationErrors{}
	validateAmount(errs, "amountPaid", p.AmountPaid)
	validateDate(errs, "paymentDate", p.PaymentDate)
	validateInstallments(errs, "installmentNumber", p.InstallmentNumber)
	validateNotes(errs, p.Notes)
	return errs.Err()
}

func (p PaymentPatch) Validate() error {
	errs := ValidationErrors{}
	if p.AmountPaid != nil {
		validateAmount(errs, "amountPaid", *p.AmountPaid)
	}
	if p.PaymentDate != nil {
		validateDate(errs, "paymentDate", *p.PaymentDate)
	}
	validateInstallments(errs, "installmentNumber", p.InstallmentNumber)
	validateNotes(errs, p.Notes)
	return errs.Err()
}

func (p PlannedPurchase) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(p.Name) == "" {
		errs.Add("name", "is required")
	} else if utf8.RuneCountInString(p.Name) > maxNameLen {
		errs.Add("name", "is too long (max 80 characters)")
	}
	if utf8.RuneCountInString(p.Description) > maxDescriptionLen {
		errs.Add("description", "is too long (max 200 characters)")
	}
	validateAmount(errs, "amount", p.Amount)
	validateDate(errs, "deadline", p.Deadline)
	if !p.Status.Valid() {
		errs.Add("status", "must be PENDING or PURCHASED")
	}
	return errs.Err()
}
