// Package http serves the organify JSON API.
//
// This file implements decoding of request bodies and query parameters.
// Amounts and dates arrive as loose JSON values and are parsed field by field
// so that a bad value is reported against its field name.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"organify/internal/core"
	"organify/internal/sanitize"
)

const maxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("empty request body")

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// looseValue accepts a JSON string or number and keeps its text. It lets
// clients send amounts as 150.5, "150.50" or "150,50".
type looseValue struct {
	set  bool
	text string
}

func (v *looseValue) UnmarshalJSON(data []byte) error {
	v.set = true
	if string(data) == "null" {
		v.text = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.text = strings.TrimSpace(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("expected a string or a number")
	}
	v.text = n.String()
	return nil
}

// fieldParser converts loose values and collects one message per bad field.
type fieldParser struct {
	errs core.ValidationErrors
}

func newFieldParser() *fieldParser {
	return &fieldParser{errs: core.ValidationErrors{}}
}

// money returns the zero amount when v is absent so that domain validation
// reports it as missing.
func (p *fieldParser) money(field string, v looseValue) core.Money {
	if !v.set || v.text == "" {
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(v.text)
	if err != nil {
		p.errs.Add(field, "must be a positive amount with at most two decimals")
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

func (p *fieldParser) moneyPtr(field string, v looseValue) *core.Money {
	if !v.set {
		return nil
	}
	m := p.money(field, v)
	return &m
}

func (p *fieldParser) date(field string, v looseValue) core.Date {
	if !v.set || v.text == "" {
		return core.Date{}
	}
	s := v.text
	// Accept full timestamps from clients that send ISO strings.
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		p.errs.Add(field, "must be a date formatted as YYYY-MM-DD")
		return core.Date{}
	}
	return d
}

func (p *fieldParser) datePtr(field string, v looseValue) *core.Date {
	if !v.set || v.text == "" {
		return nil
	}
	d := p.date(field, v)
	return &d
}

func (p *fieldParser) Err() error {
	return p.errs.Err()
}

// text sanitizes an optional string and dereferences it.
func text(s *string) string {
	if s == nil {
		return ""
	}
	return sanitize.Text(*s)
}

// parseMonthParam reads ?month=YYYY-MM, defaulting to the current month.
func parseMonthParam(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return time.Now().UTC(), nil
	}
	d, err := core.ParseMonth(v)
	if err != nil {
		return time.Time{}, core.ValidationErrors{"month": "must be formatted as YYYY-MM"}
	}
	return d.Time, nil
}

// transactionRequest is the body of transaction create and update calls.
type transactionRequest struct {
	Description *string    `json:"description"`
	Amount      looseValue `json:"amount"`
	Date        looseValue `json:"date"`
	Type        *string    `json:"type"`
	Status      *string    `json:"status"`
	CategoryID  *string    `json:"categoryId"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	p := newFieldParser()
	t := core.Transaction{
		Description: text(req.Description),
		Amount:      p.money("amount", req.Amount),
		Date:        p.date("date", req.Date),
		Type:        core.TransactionType(upper(req.Type)),
		Status:      core.TransactionStatus(upper(req.Status)),
	}
	if req.CategoryID != nil {
		t.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	return t, p.Err()
}

func (req transactionRequest) toPatch() (core.TransactionPatch, error) {
	p := newFieldParser()
	patch := core.TransactionPatch{
		Description: sanitize.TextPtr(req.Description),
		Amount:      p.moneyPtr("amount", req.Amount),
		Date:        p.datePtr("date", req.Date),
		CategoryID:  trimmed(req.CategoryID),
	}
	if req.Type != nil {
		typ := core.TransactionType(upper(req.Type))
		patch.Type = &typ
	}
	if req.Status != nil {
		status := core.TransactionStatus(upper(req.Status))
		patch.Status = &status
	}
	return patch, p.Err()
}

type categoryRequest struct {
	Name *string `json:"name"`
	Type *string `json:"type"`
}

func (req categoryRequest) toCategory() core.Category {
	return core.Category{
		Name: text(req.Name),
		Type: core.TransactionType(upper(req.Type)),
	}
}

func (req categoryRequest) toPatch() core.CategoryPatch {
	patch := core.CategoryPatch{Name: sanitize.TextPtr(req.Name)}
	if req.Type != nil {
		typ := core.TransactionType(upper(req.Type))
		patch.Type = &typ
	}
	return patch
}

type debtRequest struct {
	Description  *string    `json:"description"`
	TotalAmount  looseValue `json:"totalAmount"`
	StartDate    looseValue `json:"startDate"`
	DueDate      looseValue `json:"dueDate"`
	Installments *int       `json:"installments"`
	Category     *string    `json:"category"`
}

func (req debtRequest) toDebt() (core.Debt, error) {
	p := newFieldParser()
	d := core.Debt{
		Description:  text(req.Description),
		TotalAmount:  p.money("totalAmount", req.TotalAmount),
		StartDate:    p.date("startDate", req.StartDate),
		DueDate:      p.datePtr("dueDate", req.DueDate),
		Installments: req.Installments,
		Category:     sanitize.TextPtr(req.Category),
	}
	return d, p.Err()
}

func (req debtRequest) toPatch() (core.DebtPatch, error) {
	p := newFieldParser()
	patch := core.DebtPatch{
		Description:  sanitize.TextPtr(req.Description),
		TotalAmount:  p.moneyPtr("totalAmount", req.TotalAmount),
		StartDate:    p.datePtr("startDate", req.StartDate),
		DueDate:      p.datePtr("dueDate", req.DueDate),
		Installments: req.Installments,
		Category:     sanitize.TextPtr(req.Category),
	}
	return patch, p.Err()
}

type paymentRequest struct {
	DebtID            *string    `json:"debtId"`
	AmountPaid        looseValue `json:"amountPaid"`
	PaymentDate       looseValue `json:"paymentDate"`
	InstallmentNumber *int       `json:"installmentNumber"`
	Notes             *string    `json:"notes"`
}

func (req paymentRequest) toPayment() (core.DebtPayment, error) {
	p := newFieldParser()
	pay := core.DebtPayment{
		AmountPaid:        p.money("amountPaid", req.AmountPaid),
		PaymentDate:       p.date("paymentDate", req.PaymentDate),
		InstallmentNumber: req.InstallmentNumber,
		Notes:             sanitize.TextPtr(req.Notes),
	}
	return pay, p.Err()
}

func (req paymentRequest) toPatch() (core.PaymentPatch, error) {
	p := newFieldParser()
	patch := core.PaymentPatch{
		AmountPaid:        p.moneyPtr("amountPaid", req.AmountPaid),
		PaymentDate:       p.datePtr("paymentDate", req.PaymentDate),
		InstallmentNumber: req.InstallmentNumber,
		Notes:             sanitize.TextPtr(req.Notes),
	}
	return patch, p.Err()
}

type plannedRequest struct {
	ID          *string    `json:"id"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Amount      looseValue `json:"amount"`
	Deadline    looseValue `json:"deadline"`
}

func (req plannedRequest) toPlanned() (core.PlannedPurchase, error) {
	p := newFieldParser()
	pp := core.PlannedPurchase{
		Name:        text(req.Name),
		Description: text(req.Description),
		Amount:      p.money("amount", req.Amount),
		Deadline:    p.date("deadline", req.Deadline),
	}
	if req.ID != nil {
		pp.ID = strings.TrimSpace(*req.ID)
	}
	return pp, p.Err()
}

type onboardingRequest struct {
	Plan *string `json:"subscriptionStatus"`
}

func upper(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*s))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
