package services

import (
	"fmt"

	"civreg/internal/common"
	"civreg/internal/models"
)

// Operation names an action guarded by the access matrix.
type Operation string

const (
	OpCreateBirth         Operation = "declaration.birth.create"
	OpCreateDeath         Operation = "declaration.death.create"
	OpReadOwnDeclarations Operation = "declaration.read.own"
	OpReadAddressedBirths Operation = "declaration.read.addressed"
	OpReadAllDeclarations Operation = "declaration.read.all"
	OpUpdateDeclaration   Operation = "declaration.update"
	OpDeleteDeclaration   Operation = "declaration.delete"
	OpValidateBirth       Operation = "declaration.birth.validate"
	OpManageUsers         Operation = "user.manage"
	OpListUsers           Operation = "user.list"
	OpHospitalStats       Operation = "stats.hospital"
	OpMunicipalityStats   Operation = "stats.municipality"
	OpGlobalStats         Operation = "stats.global"
)

var (
	hospitalOnly     = []models.Role{models.RoleHospital}
	municipalityOnly = []models.Role{models.RoleMunicipality}
	adminsOnly       = []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
	ownerOrAdmins    = []models.Role{models.RoleHospital, models.RoleAdmin, models.RoleSuperAdmin}
)

// accessMatrix lists the roles allowed per operation. Ownership and scoping
// checks (own declaration, addressed municipality, manageable target) are applied
// on top by the owning service.
var accessMatrix = map[Operation][]models.Role{
	OpCreateBirth:         hospitalOnly,
	OpCreateDeath:         hospitalOnly,
	OpReadOwnDeclarations: hospitalOnly,
	OpReadAddressedBirths: municipalityOnly,
	OpReadAllDeclarations: adminsOnly,
	OpUpdateDeclaration:   ownerOrAdmins,
	OpDeleteDeclaration:   ownerOrAdmins,
	OpValidateBirth:       municipalityOnly,
	OpManageUsers:         adminsOnly,
	OpListUsers:           ownerOrAdmins,
	OpHospitalStats:       hospitalOnly,
	OpMunicipalityStats:   municipalityOnly,
	OpGlobalStats:         adminsOnly,
}

// Authorize returns nil when role may perform op. Unknown roles and unknown
// operations are denied.
func Authorize(role models.Role, op Operation) error {
	for _, allowed := range accessMatrix[op] {
		if role == allowed {
			return nil
		}
	}
	return common.Forbidden(fmt.Sprintf("Access denied: role %q cannot perform %s", role, op))
}

// CanManageTarget reports whether actor may modify or delete an account holding target.
func CanManageTarget(actor, target models.Role) bool {
	switch actor {
	case models.RoleSuperAdmin:
		return target.Valid()
	case models.RoleAdmin:
		return target.IsStaff()
	}
	return false
}

type RBACService interface {
	Authorize(role models.Role, op Operation) error
}

type rbacService struct{}

func NewRBACService() RBACService {
	return rbacService{}
}

func (rbacService) Authorize(role models.Role, op Operation) error {
	return Authorize(role, op)
}
