package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cleared-dev/books/internal/model"
	"github.com/cleared-dev/books/internal/store"
)

// Role names an account the engine posts to without the caller choosing it.
type Role string

const (
	RoleAccountsReceivable  Role = "accounts_receivable"
	RoleSalesRevenue        Role = "sales_revenue"
	RoleVATPayable          Role = "vat_payable"
	RoleCostOfGoodsSold     Role = "cost_of_goods_sold"
	RoleInventory           Role = "inventory"
	RoleAccountsPayable     Role = "accounts_payable"
	RoleVATReceivable       Role = "vat_receivable"
	RoleInventoryAdjustment Role = "inventory_adjustment"
)

// RequiredRoles must all be bound for a tenant before anything can be posted.
var RequiredRoles = []Role{
	RoleAccountsReceivable,
	RoleSalesRevenue,
	RoleVATPayable,
	RoleCostOfGoodsSold,
	RoleInventory,
	RoleAccountsPayable,
	RoleVATReceivable,
	RoleInventoryAdjustment,
}

// RoleTypes is the account type each role's account must have.
var RoleTypes = map[Role]model.AccountType{
	RoleAccountsReceivable:  model.AccountTypeAsset,
	RoleSalesRevenue:        model.AccountTypeRevenue,
	RoleVATPayable:          model.AccountTypeLiability,
	RoleCostOfGoodsSold:     model.AccountTypeExpense,
	RoleInventory:           model.AccountTypeAsset,
	RoleAccountsPayable:     model.AccountTypeLiability,
	RoleVATReceivable:       model.AccountTypeAsset,
	RoleInventoryAdjustment: model.AccountTypeExpense,
}

// PaymentMethod selects the cash or bank account a payment moves through.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentCheck        PaymentMethod = "check"
)

// Bindings map roles and payment methods to account numbers.
type Bindings struct {
	Roles          map[Role]string
	PaymentMethods map[PaymentMethod]string
}

// DefaultBindings match the built-in Israeli chart template.
func DefaultBindings() Bindings {
	return Bindings{
		Roles: map[Role]string{
			RoleAccountsReceivable:  "1200",
			RoleSalesRevenue:        "4100",
			RoleVATPayable:          "2200",
			RoleCostOfGoodsSold:     "5100",
			RoleInventory:           "1400",
			RoleAccountsPayable:     "2100",
			RoleVATReceivable:       "1300",
			RoleInventoryAdjustment: "5200",
		},
		PaymentMethods: map[PaymentMethod]string{
			PaymentCash:         "1100",
			PaymentBankTransfer: "1110",
			PaymentCreditCard:   "1120",
			PaymentCheck:        "1130",
		},
	}
}

// AccountNotFoundError means a role or payment method is bound to an account
// the tenant does not have, or to one of the wrong type. Nothing can be
// posted until the chart or the bindings are fixed.
type AccountNotFoundError struct {
	Binding string
	Number  string
	Want    model.AccountType // set on a type mismatch
	Got     model.AccountType
}

func (e *AccountNotFoundError) Error() string {
	switch {
	case e.Number == "":
		return fmt.Sprintf("no account bound for %s", e.Binding)
	case e.Got != "":
		return fmt.Sprintf("account %s bound for %s is %s, want %s", e.Number, e.Binding, e.Got, e.Want)
	}
	return fmt.Sprintf("account %s bound for %s not found", e.Number, e.Binding)
}

func (e *AccountNotFoundError) Is(target error) bool {
	return target == model.ErrNotFound
}

// RoleMap is a tenant's resolved bindings.
type RoleMap struct {
	roles   map[Role]uuid.UUID
	methods map[PaymentMethod]uuid.UUID
}

// Account returns the account bound to role.
func (m *RoleMap) Account(role Role) uuid.UUID {
	return m.roles[role]
}

// PaymentAccount returns the account bound to method.
func (m *RoleMap) PaymentAccount(method PaymentMethod) (uuid.UUID, error) {
	id, ok := m.methods[method]
	if !ok {
		return uuid.Nil, model.NewValidationError("method", "unknown payment method %q", method)
	}
	return id, nil
}

func resolveRoles(ctx context.Context, r store.Reader, tenantID uuid.UUID, b Bindings) (*RoleMap, error) {
	m := &RoleMap{
		roles:   make(map[Role]uuid.UUID, len(RequiredRoles)),
		methods: make(map[PaymentMethod]uuid.UUID, len(b.PaymentMethods)),
	}
	for _, role := range RequiredRoles {
		id, err := lookupBinding(ctx, r, tenantID, "role "+string(role), b.Roles[role], RoleTypes[role])
		if err != nil {
			return nil, err
		}
		m.roles[role] = id
	}

	methods := make([]string, 0, len(b.PaymentMethods))
	for method := range b.PaymentMethods {
		methods = append(methods, string(method))
	}
	sort.Strings(methods)
	for _, method := range methods {
		pm := PaymentMethod(method)
		id, err := lookupBinding(ctx, r, tenantID, "payment method "+method, b.PaymentMethods[pm], model.AccountTypeAsset)
		if err != nil {
			return nil, err
		}
		m.methods[pm] = id
	}
	return m, nil
}

func lookupBinding(ctx context.Context, r store.Reader, tenantID uuid.UUID, binding, number string, want model.AccountType) (uuid.UUID, error) {
	if number == "" {
		return uuid.Nil, &AccountNotFoundError{Binding: binding}
	}
	a, err := r.FindAccountByNumber(ctx, tenantID, number)
	if err != nil {
		if model.IsNotFound(err) {
			return uuid.Nil, &AccountNotFoundError{Binding: binding, Number: number}
		}
		return uuid.Nil, err
	}
	if a.Type != want {
		return uuid.Nil, &AccountNotFoundError{Binding: binding, Number: number, Want: want, Got: a.Type}
	}
	return a.ID, nil
}

// roleCache holds resolved RoleMaps per tenant.
type roleCache struct {
	mu    sync.Mutex
	byTen map[uuid.UUID]*RoleMap
}

func (c *roleCache) get(tenantID uuid.UUID) (*RoleMap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byTen[tenantID]
	return m, ok
}

func (c *roleCache) put(tenantID uuid.UUID, m *RoleMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byTen == nil {
		c.byTen = make(map[uuid.UUID]*RoleMap)
	}
	c.byTen[tenantID] = m
}

func (c *roleCache) invalidate(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byTen, tenantID)
}
