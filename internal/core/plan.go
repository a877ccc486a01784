package core

// HasRequiredAccess reports whether a user on current may use a feature that
// requires the given plan. A nil requirement or FREE is open to everyone.
func HasRequiredAccess(current *Plan, required *Plan) bool {
	if required == nil || *required == PlanFree {
		return true
	}
	return current != nil && *current == *required
}

// DefaultCategory is one entry of the starter category set.
type DefaultCategory struct {
	Name string
	Type TransactionType
}

// DefaultCategories is the starter set offered to new users.
var DefaultCategories = []DefaultCategory{
	{"Salário", Income},
	{"Renda Extra", Income},
	{"Presente/Doação", Income},
	{"Bônus", Income},

	{"Aluguel", FixedExpense},
	{"Financiamento", FixedExpense},
	{"Condomínio", FixedExpense},
	{"Internet", FixedExpense},
	{"Seguros", FixedExpense},
	{"Energia", FixedExpense},
	{"Água", FixedExpense},
	{"Empréstimos", FixedExpense},
	{"Fatura cartão", FixedExpense},
	{"Streaming", FixedExpense},

	{"Supermercado", VariableExpense},
	{"Compras", VariableExpense},
	{"Transporte", VariableExpense},
	{"Combustível", VariableExpense},
	{"Lazer", VariableExpense},
	{"Restaurantes", VariableExpense},
	{"Saúde", VariableExpense},
	{"Vestuário", VariableExpense},

	{"Ações Nacionais", Investment},
	{"Fundos Imobiliários (FIIs)", Investment},
	{"Renda Fixa (CDB, Tesouro)", Investment},
	{"Criptomoedas", Investment},
	{"Previdência Privada", Investment},
}
