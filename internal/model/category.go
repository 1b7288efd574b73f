package model

// CategoryType indicates whether a category applies to income or expenses.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Category labels transactions for budgeting and reporting.
type Category struct {
	ID       string
	UserID   string
	ParentID string
	Name     string
	Color    string
	Icon     string
	Type     CategoryType
}

// DefaultCategories returns the standard category set seeded for a new
// user who has no categories yet.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Salary", Type: CategoryTypeIncome, Color: "#4CAF50"},
		{Name: "Investment income", Type: CategoryTypeIncome, Color: "#2196F3"},
		{Name: "Other income", Type: CategoryTypeIncome, Color: "#9C27B0"},
		{Name: "Food", Type: CategoryTypeExpense, Color: "#F44336"},
		{Name: "Transport", Type: CategoryTypeExpense, Color: "#FF9800"},
		{Name: "Housing", Type: CategoryTypeExpense, Color: "#795548"},
		{Name: "Utilities", Type: CategoryTypeExpense, Color: "#607D8B"},
		{Name: "Phone & internet", Type: CategoryTypeExpense, Color: "#00BCD4"},
		{Name: "Entertainment", Type: CategoryTypeExpense, Color: "#E91E63"},
		{Name: "Medical", Type: CategoryTypeExpense, Color: "#8BC34A"},
		{Name: "Insurance", Type: CategoryTypeExpense, Color: "#3F51B5"},
		{Name: "Education", Type: CategoryTypeExpense, Color: "#009688"},
		{Name: "Shopping", Type: CategoryTypeExpense, Color: "#FF5722"},
		{Name: "Other expenses", Type: CategoryTypeExpense, Color: "#9E9E9E"},
	}
}
