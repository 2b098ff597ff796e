package accounts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

// DefaultTemplate is the chart new tenants receive unless configured otherwise.
const DefaultTemplate = "il_small_business"

// TemplateAccount is an account in a chart template. Parents are referenced
// by number and must appear before their children.
type TemplateAccount struct {
	Number        string
	Name          string
	LocalizedName string
	Type          model.AccountType
	ParentNumber  string
	IsControl     bool
}

// DefaultChart returns a built-in template by name.
func DefaultChart(name string) ([]TemplateAccount, bool) {
	switch name {
	case DefaultTemplate, "":
		return israeliSmallBusinessChart(), true
	}
	return nil, false
}

// LoadTemplate resolves name as a built-in template, or reads it as a chart
// CSV file when it ends in ".csv".
func LoadTemplate(name string) ([]TemplateAccount, error) {
	if chart, ok := DefaultChart(name); ok {
		return chart, nil
	}
	if !strings.HasSuffix(name, ".csv") {
		return nil, model.NewValidationError("template", "unknown chart template %q", name)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening chart template: %w", err)
	}
	defer f.Close()
	return ReadAccounts(f)
}

// InitializeTenant copies template into a tenant that has no accounts yet.
// The whole chart is created in one transaction. It returns the number of
// accounts created.
func (s *Service) InitializeTenant(ctx context.Context, tenantID uuid.UUID, template []TemplateAccount) (int, error) {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.ListAccounts(ctx, tenantID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return model.NewValidationError("tenant_id", "tenant %s already has %d accounts", tenantID, len(existing))
		}

		created := make(map[string]uuid.UUID, len(template))
		for _, ta := range template {
			params := CreateParams{
				Number:        ta.Number,
				Name:          ta.Name,
				LocalizedName: ta.LocalizedName,
				Type:          ta.Type,
				IsControl:     ta.IsControl,
			}
			if ta.ParentNumber != "" {
				parentID, ok := created[ta.ParentNumber]
				if !ok {
					return model.NewValidationError("parent_number",
						"account %s references parent %s which is not defined before it", ta.Number, ta.ParentNumber)
				}
				params.ParentID = &parentID
			}
			a, err := createInTx(ctx, tx, tenantID, params)
			if err != nil {
				return fmt.Errorf("account %s: %w", ta.Number, err)
			}
			created[a.Number] = a.ID
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("initializing tenant: %w", err)
	}

	s.logger.Info("tenant initialized", zap.Stringer("tenant_id", tenantID), zap.Int("accounts", len(template)))
	s.notifyCreated(tenantID)
	return len(template), nil
}

// Template turns a chart back into template form, parents before children.
func (c *Chart) Template() []TemplateAccount {
	var out []TemplateAccount
	roots, _ := c.Tree(nil)
	Walk(roots, func(n *Node, _ int) {
		a := n.Account
		ta := TemplateAccount{
			Number:        a.Number,
			Name:          a.Name,
			LocalizedName: a.LocalizedName,
			Type:          a.Type,
			IsControl:     a.IsControl,
		}
		if a.ParentID != nil {
			if p, ok := c.Account(*a.ParentID); ok {
				ta.ParentNumber = p.Number
			}
		}
		out = append(out, ta)
	})
	return out
}

func israeliSmallBusinessChart() []TemplateAccount {
	return []TemplateAccount{
		{Number: "1000", Name: "Current Assets", LocalizedName: "רכוש שוטף", Type: model.AccountTypeAsset},
		{Number: "1100", Name: "Cash", LocalizedName: "קופה", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1110", Name: "Bank", LocalizedName: "בנק", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1120", Name: "Credit Card Clearing", LocalizedName: "חברות כרטיסי אשראי", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1130", Name: "Checks Receivable", LocalizedName: "שיקים לגבייה", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1200", Name: "Accounts Receivable", LocalizedName: "לקוחות", Type: model.AccountTypeAsset, ParentNumber: "1000", IsControl: true},
		{Number: "1300", Name: "VAT Receivable", LocalizedName: "מע\"מ תשומות", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1400", Name: "Inventory", LocalizedName: "מלאי", Type: model.AccountTypeAsset, ParentNumber: "1000"},
		{Number: "1500", Name: "Fixed Assets", LocalizedName: "רכוש קבוע", Type: model.AccountTypeAsset},
		{Number: "1510", Name: "Equipment", LocalizedName: "ציוד", Type: model.AccountTypeAsset, ParentNumber: "1500"},
		{Number: "2000", Name: "Current Liabilities", LocalizedName: "התחייבויות שוטפות", Type: model.AccountTypeLiability},
		{Number: "2100", Name: "Accounts Payable", LocalizedName: "ספקים", Type: model.AccountTypeLiability, ParentNumber: "2000", IsControl: true},
		{Number: "2200", Name: "VAT Payable", LocalizedName: "מע\"מ עסקאות", Type: model.AccountTypeLiability, ParentNumber: "2000"},
		{Number: "2300", Name: "Withholding Tax Payable", LocalizedName: "ניכויים במקור", Type: model.AccountTypeLiability, ParentNumber: "2000"},
		{Number: "3000", Name: "Equity", LocalizedName: "הון עצמי", Type: model.AccountTypeEquity},
		{Number: "3100", Name: "Owner's Capital", LocalizedName: "הון בעלים", Type: model.AccountTypeEquity, ParentNumber: "3000"},
		{Number: "3200", Name: "Retained Earnings", LocalizedName: "עודפים", Type: model.AccountTypeEquity, ParentNumber: "3000"},
		{Number: "4000", Name: "Revenue", LocalizedName: "הכנסות", Type: model.AccountTypeRevenue},
		{Number: "4100", Name: "Sales Revenue", LocalizedName: "הכנסות ממכירות", Type: model.AccountTypeRevenue, ParentNumber: "4000"},
		{Number: "4200", Name: "Service Revenue", LocalizedName: "הכנסות משירותים", Type: model.AccountTypeRevenue, ParentNumber: "4000"},
		{Number: "5000", Name: "Cost of Sales", LocalizedName: "עלות המכירות", Type: model.AccountTypeExpense},
		{Number: "5100", Name: "Cost of Goods Sold", LocalizedName: "עלות המכר", Type: model.AccountTypeExpense, ParentNumber: "5000"},
		{Number: "5200", Name: "Inventory Adjustments", LocalizedName: "התאמות מלאי", Type: model.AccountTypeExpense, ParentNumber: "5000"},
		{Number: "6000", Name: "Operating Expenses", LocalizedName: "הוצאות תפעול", Type: model.AccountTypeExpense},
		{Number: "6100", Name: "Rent", LocalizedName: "שכירות", Type: model.AccountTypeExpense, ParentNumber: "6000"},
		{Number: "6200", Name: "Salaries", LocalizedName: "שכר עבודה", Type: model.AccountTypeExpense, ParentNumber: "6000"},
		{Number: "6300", Name: "Office Supplies", LocalizedName: "ציוד משרדי", Type: model.AccountTypeExpense, ParentNumber: "6000"},
		{Number: "6400", Name: "Professional Services", LocalizedName: "שירותים מקצועיים", Type: model.AccountTypeExpense, ParentNumber: "6000"},
	}
}
