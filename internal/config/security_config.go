// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Any valid token
	SecurityAdmin                       // Token with the admin role
)

// Route names used by the HTTP router
const (
	RouteHealth           = "health"
	RouteMetrics          = "metrics"
	RouteCreateQuote      = "quotes.create"
	RouteListRules        = "rules.list"
	RouteGetRule          = "rules.get"
	RouteCreateRule       = "rules.create"
	RouteDeleteRule       = "rules.delete"
	RouteActivateRule     = "rules.activate"
	RouteDeactivateRule   = "rules.deactivate"
	RouteUpdatePercentage = "rules.percentage"
	RouteUpdateVATExempt  = "rules.vatExemption"
	RouteAddCondition     = "rules.conditions.add"
	RouteRemoveCondition  = "rules.conditions.remove"
	RouteValidateRule     = "rules.validate"
	RouteRefreshRules     = "rules.refresh"
)

// EndpointSecurityConfig maps routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	RouteHealth:      SecurityPublic,
	RouteMetrics:     SecurityPublic,
	RouteCreateQuote: SecurityPublic,

	// Read-only rule access
	RouteListRules:    SecurityAccess,
	RouteGetRule:      SecurityAccess,
	RouteValidateRule: SecurityAccess,

	// Rule administration
	RouteCreateRule:       SecurityAdmin,
	RouteDeleteRule:       SecurityAdmin,
	RouteActivateRule:     SecurityAdmin,
	RouteDeactivateRule:   SecurityAdmin,
	RouteUpdatePercentage: SecurityAdmin,
	RouteUpdateVATExempt:  SecurityAdmin,
	RouteAddCondition:     SecurityAdmin,
	RouteRemoveCondition:  SecurityAdmin,
	RouteRefreshRules:     SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAdmin
}
