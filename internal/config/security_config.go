package config

import "iou-ledger/internal/domain"

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

const ledgerService = "/ledger.v1.LedgerService/"

// EndpointSecurity is the requirement of one RPC method.
type EndpointSecurity struct {
	Level   SecurityLevel
	MinRole domain.Role
}

// EndpointSecurityConfig maps methods to their required security level and role
var EndpointSecurityConfig = map[string]EndpointSecurity{
	ledgerService + "CreateDebt":    {SecurityAccess, domain.RoleUser},
	ledgerService + "ImportBatch":   {SecurityAccess, domain.RoleUser},
	ledgerService + "GetDebt":       {SecurityAccess, domain.RoleUser},
	ledgerService + "QueryDebts":    {SecurityAccess, domain.RoleUser},
	ledgerService + "DeleteDebt":    {SecurityAccess, domain.RoleUser},
	ledgerService + "AddPayment":    {SecurityAccess, domain.RoleUser},
	ledgerService + "UpdatePayment": {SecurityAccess, domain.RoleUser},
	ledgerService + "RemovePayment": {SecurityAccess, domain.RoleUser},
	ledgerService + "ListPayments":  {SecurityAccess, domain.RoleUser},
	ledgerService + "Summarize":     {SecurityAccess, domain.RoleUser},

	ledgerService + "ReconcileStatuses": {SecurityAccess, domain.RoleAdmin},

	"/grpc.health.v1.Health/Check": {SecurityPublic, ""},
}

// GetEndpointSecurity returns the requirement for a given method
func GetEndpointSecurity(method string) EndpointSecurity {
	if sec, exists := EndpointSecurityConfig[method]; exists {
		return sec
	}
	// Default to highest security for unknown endpoints
	return EndpointSecurity{Level: SecurityAccess, MinRole: domain.RoleAdmin}
}

var roleRank = map[domain.Role]int{
	domain.RoleUser:    1,
	domain.RoleManager: 2,
	domain.RoleAdmin:   3,
}

// Allows reports whether role meets the endpoint's minimum role.
func (s EndpointSecurity) Allows(role domain.Role) bool {
	if s.MinRole == "" {
		return true
	}
	return roleRank[role] >= roleRank[s.MinRole]
}
