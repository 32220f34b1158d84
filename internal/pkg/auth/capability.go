package auth

import (
	"strings"

	"inventory_admin/internal/models"
)

// Roles known to the dashboard.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleDriver     = "driver"
)

// NormalizeRole folds the spellings seen in the wild ("SuperAdmin", "super_admin") to one form.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(role)
}

// RoleOf returns the operator's role, preferring the cached user over the token claim.
func RoleOf(user models.User, token string) string {
	if role := user.Role(); role != "" {
		return NormalizeRole(role)
	}
	return NormalizeRole(TokenRole(token))
}

// CapabilitiesFor computes the capability set for a role. Unknown roles get nothing.
func CapabilitiesFor(role string) models.Capabilities {
	switch NormalizeRole(role) {
	case RoleSuperAdmin:
		return models.Capabilities{
			CanManageUsers:      true,
			CanManageDrivers:    true,
			CanDeleteSuppliers:  true,
			CanManageCatalog:    true,
			CanManageInventory:  true,
			CanManageOrders:     true,
			CanViewDeliveries:   true,
			CanUpdateDeliveries: true,
			CanDelete:           true,
			CanExport:           true,
		}
	case RoleAdmin:
		return models.Capabilities{
			CanManageDrivers:    true,
			CanManageCatalog:    true,
			CanManageInventory:  true,
			CanManageOrders:     true,
			CanViewDeliveries:   true,
			CanUpdateDeliveries: true,
			CanDelete:           true,
			CanExport:           true,
		}
	case RoleDriver:
		return models.Capabilities{
			CanViewDeliveries:   true,
			CanUpdateDeliveries: true,
		}
	default:
		return models.Capabilities{}
	}
}
