package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"organify/internal/auth"
	"organify/internal/cache"
	"organify/internal/core"
	applog "organify/internal/log"
	"organify/internal/middleware/ratelimit"
	"organify/internal/services"
	"organify/internal/storage"
)

type testEnv struct {
	srv    *Server
	repo   *storage.SQLiteRepository
	tokens *auth.Tokens
}

type apiResponse struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func newTestEnv(t *testing.T, rl ratelimit.Config) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "organify.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	if rl.PerSecond == 0 {
		rl = ratelimit.Config{PerSecond: 1000, Burst: 1000}
	}
	tokens := auth.NewTokens("test-secret-0123456789", time.Hour)
	ledger := services.NewLedgerService(repo, cache.NewMemory(time.Minute), nil)
	accounts := services.NewAccountService(repo)

	srv := NewServer(Options{
		Tokens:    tokens,
		Logger:    applog.New(applog.Config{Output: io.Discard}),
		RateLimit: rl,
		Ready:     repo,
	}, Services{
		Ledger:     ledger,
		Debts:      services.NewDebtService(repo),
		Categories: services.NewCategoryService(repo),
		Planned:    services.NewPlannedService(repo),
		Accounts:   accounts,
		Exports:    services.NewExportService(ledger, accounts),
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testEnv{srv: srv, repo: repo, tokens: tokens}
}

// login creates a user and returns a bearer token for it.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	u, err := e.repo.CreateUser(context.Background(), email)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tok, err := e.tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data any) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", resp.Data, err)
		}
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d: %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := e.do(t, http.MethodGet, path, "", "")
		expectStatus(t, rr, http.StatusOK)
		if resp := decode(t, rr, nil); !resp.Success {
			t.Fatalf("%s: success=false", path)
		}
	}

	_ = e.repo.Close()
	rr := e.do(t, http.MethodGet, "/readyz", "", "")
	expectStatus(t, rr, http.StatusServiceUnavailable)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	rr := e.do(t, http.MethodGet, "/api/summary", "", "")
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = e.do(t, http.MethodGet, "/api/summary", "not-a-token", "")
	expectStatus(t, rr, http.StatusUnauthorized)
	if resp := decode(t, rr, nil); resp.Success || resp.Error == "" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestTransactionsAndJanuarySummary(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "jan@example.com")

	bodies := []string{
		`{"description":"Salary","amount":"5000.00","date":"2024-01-05","type":"INCOME","status":"RECEIVED"}`,
		`{"description":"Rent","amount":"2000,00","date":"2024-01-10","type":"FIXED_EXPENSE","status":"PAID"}`,
		`{"description":"Groceries","amount":1000,"date":"2024-01-20","type":"variable_expense","status":"PAID"}`,
		`{"description":"Index fund","amount":"500","date":"2024-01-25","type":"INVESTMENT","status":"PAID"}`,
	}
	var ids []string
	for _, b := range bodies {
		rr := e.do(t, http.MethodPost, "/api/transactions", tok, b)
		expectStatus(t, rr, http.StatusCreated)
		var tx core.Transaction
		decode(t, rr, &tx)
		ids = append(ids, tx.ID)
	}

	rr := e.do(t, http.MethodGet, "/api/summary?month=2024-01", tok, "")
	expectStatus(t, rr, http.StatusOK)
	var s core.SummaryTotals
	decode(t, rr, &s)
	if s.Income.Cents != 500000 || s.FixedExpense.Cents != 200000 ||
		s.VariableExpense.Cents != 100000 || s.Investment.Cents != 50000 || s.Balance.Cents != 200000 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !strings.Contains(rr.Body.String(), `"balance":2000.00`) {
		t.Fatalf("balance not rendered in major units: %s", rr.Body.String())
	}

	rr = e.do(t, http.MethodPut, "/api/transactions/"+ids[2], tok, `{"amount":"1500"}`)
	expectStatus(t, rr, http.StatusOK)
	rr = e.do(t, http.MethodDelete, "/api/transactions/"+ids[3], tok, "")
	expectStatus(t, rr, http.StatusOK)

	rr = e.do(t, http.MethodGet, "/api/summary?month=2024-01", tok, "")
	decode(t, rr, &s)
	if s.Balance.Cents != 150000 || s.Investment.Cents != 0 {
		t.Fatalf("summary not refreshed after writes: %+v", s)
	}

	rr = e.do(t, http.MethodGet, "/api/transactions?month=2024-01&type=fixed_expense", tok, "")
	expectStatus(t, rr, http.StatusOK)
	var list []core.Transaction
	decode(t, rr, &list)
	if len(list) != 1 || list[0].Description != "Rent" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = e.do(t, http.MethodGet, "/api/running-balance?month=2024-03", tok, "")
	expectStatus(t, rr, http.StatusOK)
	var rb core.RunningBalance
	decode(t, rr, &rb)
	if rb.RunningBalance.Cents != 150000 {
		t.Fatalf("unexpected running balance: %+v", rb)
	}
}

func TestValidationErrorsListFields(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "val@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		fields []string
	}{
		{
			name:   "unparseable amount and date",
			method: http.MethodPost,
			path:   "/api/transactions",
			body:   `{"description":"Coffee","amount":"abc","date":"2024-13-01","type":"INCOME","status":"PAID"}`,
			fields: []string{"amount", "date"},
		},
		{
			name:   "domain rules",
			method: http.MethodPost,
			path:   "/api/transactions",
			body:   `{"description":"ab","amount":"-5","date":"2024-01-01","type":"SAVINGS","status":"PAID"}`,
			fields: []string{"amount"},
		},
		{
			name:   "short description and bad type",
			method: http.MethodPost,
			path:   "/api/transactions",
			body:   `{"description":"ab","amount":"5","date":"2024-01-01","type":"SAVINGS","status":"PAID"}`,
			fields: []string{"description", "type"},
		},
		{
			name:   "bad month",
			method: http.MethodGet,
			path:   "/api/summary?month=january",
			fields: []string{"month"},
		},
		{
			name:   "invalid plan",
			method: http.MethodPost,
			path:   "/api/account/onboarding",
			body:   `{"subscriptionStatus":"GOLD"}`,
			fields: []string{"plan"},
		},
		{
			name:   "debt without amount",
			method: http.MethodPost,
			path:   "/api/debts",
			body:   `{"description":"Car","startDate":"2024-01-01"}`,
			fields: []string{"totalAmount"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, tt.method, tt.path, tok, tt.body)
			expectStatus(t, rr, http.StatusUnprocessableEntity)
			resp := decode(t, rr, nil)
			for _, f := range tt.fields {
				if _, ok := resp.Fields[f]; !ok {
					t.Errorf("missing field %q in %v", f, resp.Fields)
				}
			}
		})
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "bad@example.com")

	for _, body := range []string{`{"name":`, `{"name":"Food","colour":"red"}`, `{"name":"a"}{"name":"b"}`} {
		rr := e.do(t, http.MethodPost, "/api/categories", tok, body)
		expectStatus(t, rr, http.StatusBadRequest)
	}
	rr := e.do(t, http.MethodPost, "/api/categories", tok, "")
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCategoryConflictAndSeed(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "cat@example.com")

	rr := e.do(t, http.MethodPost, "/api/categories", tok, `{"name":"Aluguél","type":"FIXED_EXPENSE"}`)
	expectStatus(t, rr, http.StatusCreated)
	var c core.Category
	decode(t, rr, &c)
	if c.NormalizedName != "aluguel" {
		t.Fatalf("normalized name = %q", c.NormalizedName)
	}

	rr = e.do(t, http.MethodPost, "/api/categories", tok, `{"name":"aluguel","type":"FIXED_EXPENSE"}`)
	expectStatus(t, rr, http.StatusConflict)

	rr = e.do(t, http.MethodPost, "/api/categories", tok, `{"name":"<b>Lazer</b>","type":"VARIABLE_EXPENSE"}`)
	expectStatus(t, rr, http.StatusCreated)
	decode(t, rr, &c)
	if c.Name != "Lazer" {
		t.Fatalf("markup kept in name: %q", c.Name)
	}

	rr = e.do(t, http.MethodPost, "/api/categories/seed", tok, "")
	expectStatus(t, rr, http.StatusOK)
	var seeded map[string]int
	decode(t, rr, &seeded)
	if seeded["added"] < 1 {
		t.Fatalf("nothing seeded: %v", seeded)
	}

	rr = e.do(t, http.MethodPut, "/api/categories/"+c.ID, tok, `{"name":"Cultura"}`)
	expectStatus(t, rr, http.StatusOK)
	rr = e.do(t, http.MethodDelete, "/api/categories/"+c.ID, tok, "")
	expectStatus(t, rr, http.StatusOK)
	rr = e.do(t, http.MethodDelete, "/api/categories/"+c.ID, tok, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestOwnershipIsolation(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	alice := e.login(t, "alice@example.com")
	bob := e.login(t, "bob@example.com")

	rr := e.do(t, http.MethodPost, "/api/transactions", alice,
		`{"description":"Salary","amount":"10","date":"2024-02-01","type":"INCOME","status":"RECEIVED"}`)
	expectStatus(t, rr, http.StatusCreated)
	var tx core.Transaction
	decode(t, rr, &tx)

	rr = e.do(t, http.MethodPut, "/api/transactions/"+tx.ID, bob, `{"description":"mine now"}`)
	expectStatus(t, rr, http.StatusNotFound)
	rr = e.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, bob, "")
	expectStatus(t, rr, http.StatusNotFound)

	rr = e.do(t, http.MethodGet, "/api/transactions?month=2024-02", bob, "")
	var list []core.Transaction
	decode(t, rr, &list)
	if len(list) != 0 {
		t.Fatalf("bob sees alice's transactions: %+v", list)
	}
}

func TestDebtPaymentFlow(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "debt@example.com")

	rr := e.do(t, http.MethodPost, "/api/debts", tok, `{"description":"Car loan","totalAmount":"1000.00","startDate":"2024-01-01"}`)
	expectStatus(t, rr, http.StatusCreated)
	var d core.DebtView
	decode(t, rr, &d)

	getDebt := func() core.DebtView {
		rr := e.do(t, http.MethodGet, "/api/debts/"+d.ID, tok, "")
		expectStatus(t, rr, http.StatusOK)
		var v core.DebtView
		decode(t, rr, &v)
		return v
	}
	pay := func(amount string) core.DebtPayment {
		rr := e.do(t, http.MethodPost, "/api/debts/"+d.ID+"/payments", tok,
			`{"amountPaid":"`+amount+`","paymentDate":"2024-02-01"}`)
		expectStatus(t, rr, http.StatusCreated)
		var p core.DebtPayment
		decode(t, rr, &p)
		return p
	}

	pay("600")
	if v := getDebt(); v.IsPaidOff || v.RemainingAmount.Cents != 40000 {
		t.Fatalf("after first payment: %+v", v)
	}
	second := pay("400")
	if v := getDebt(); !v.IsPaidOff || v.RemainingAmount.Cents != 0 {
		t.Fatalf("after second payment: %+v", v)
	}

	rr = e.do(t, http.MethodPut, "/api/payments/"+second.ID, tok, `{"amountPaid":"100","debtId":"someone-else"}`)
	expectStatus(t, rr, http.StatusNotFound)
	rr = e.do(t, http.MethodPut, "/api/payments/"+second.ID, tok, `{"amountPaid":"100","debtId":"`+d.ID+`"}`)
	expectStatus(t, rr, http.StatusOK)
	if v := getDebt(); v.IsPaidOff || v.RemainingAmount.Cents != 30000 {
		t.Fatalf("after payment update: %+v", v)
	}

	rr = e.do(t, http.MethodDelete, "/api/payments/"+second.ID, tok, "")
	expectStatus(t, rr, http.StatusOK)
	if v := getDebt(); v.IsPaidOff || v.RemainingAmount.Cents != 40000 || len(v.Payments) != 1 {
		t.Fatalf("after payment delete: %+v", v)
	}

	rr = e.do(t, http.MethodGet, "/api/debts/summary", tok, "")
	expectStatus(t, rr, http.StatusOK)
	var sum core.DebtsSummary
	decode(t, rr, &sum)
	if sum.ActiveDebtsCount != 1 || sum.TotalRemaining.Cents != 40000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	rr = e.do(t, http.MethodPut, "/api/debts/"+d.ID, tok, `{"totalAmount":"600"}`)
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &d)
	if !d.IsPaidOff {
		t.Fatalf("lowering the total should pay the debt off: %+v", d)
	}

	rr = e.do(t, http.MethodDelete, "/api/debts/"+d.ID, tok, "")
	expectStatus(t, rr, http.StatusOK)
	rr = e.do(t, http.MethodGet, "/api/debts", tok, "")
	var all []core.DebtView
	decode(t, rr, &all)
	if len(all) != 0 {
		t.Fatalf("debt still listed: %+v", all)
	}
}

func TestPlannedPurchases(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "plan@example.com")

	rr := e.do(t, http.MethodPost, "/api/planned-purchases", tok, `{"name":"Laptop","amount":"4500","deadline":"2024-09-30"}`)
	expectStatus(t, rr, http.StatusCreated)
	var p core.PlannedPurchase
	decode(t, rr, &p)
	if p.Status != core.PlannedPending {
		t.Fatalf("status = %s", p.Status)
	}

	rr = e.do(t, http.MethodPost, "/api/planned-purchases", tok,
		`{"id":"`+p.ID+`","name":"Laptop Pro","amount":"5000","deadline":"2024-09-30"}`)
	expectStatus(t, rr, http.StatusOK)

	rr = e.do(t, http.MethodPost, "/api/planned-purchases/"+p.ID+"/toggle", tok, "")
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &p)
	if p.Status != core.PlannedPurchased || p.Name != "Laptop Pro" {
		t.Fatalf("after toggle: %+v", p)
	}

	rr = e.do(t, http.MethodGet, "/api/planned-purchases?month=2024-09", tok, "")
	var list []core.PlannedPurchase
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Fatalf("got %d purchases", len(list))
	}

	rr = e.do(t, http.MethodDelete, "/api/planned-purchases/"+p.ID, tok, "")
	expectStatus(t, rr, http.StatusOK)
}

func TestStatementExportRequiresPremium(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tok := e.login(t, "export@example.com")

	rr := e.do(t, http.MethodGet, "/api/exports/statement.xlsx?month=2024-01", tok, "")
	expectStatus(t, rr, http.StatusForbidden)

	rr = e.do(t, http.MethodPost, "/api/account/onboarding", tok, `{"subscriptionStatus":"premium"}`)
	expectStatus(t, rr, http.StatusOK)
	var u core.User
	decode(t, rr, &u)
	if !u.HasCompletedOnboarding || u.Plan == nil || *u.Plan != core.PlanPremium {
		t.Fatalf("onboarding not stored: %+v", u)
	}

	rr = e.do(t, http.MethodGet, "/api/exports/statement.xlsx?month=2024-01", tok, "")
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "statement-2024-01.xlsx") {
		t.Fatalf("content disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatal("body is not a zip archive")
	}
}

func TestRateLimitAndSecurityHeaders(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{PerSecond: 0.01, Burst: 1})
	tok := e.login(t, "rl@example.com")

	rr := e.do(t, http.MethodGet, "/api/account", tok, "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}

	rr = e.do(t, http.MethodGet, "/api/account", tok, "")
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Health checks are outside the limiter.
	rr = e.do(t, http.MethodGet, "/healthz", "", "")
	expectStatus(t, rr, http.StatusOK)
}

func TestUnknownRoute(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	rr := e.do(t, http.MethodGet, "/nope", "", "")
	expectStatus(t, rr, http.StatusNotFound)
	if resp := decode(t, rr, nil); resp.Success {
		t.Fatal("success on unknown route")
	}
}
