package handlers

import (
	"civreg/internal/middleware"
	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

// Routes groups every API handler so the route table can be mounted on any
// echo group.
type Routes struct {
	Auth         *AuthHandlers
	Users        *UserHandlers
	Declarations *DeclarationHandlers
	Stats        *StatsHandlers
	AuditLogs    *AuditLogsHandlers

	// Authenticate must populate the request identity (see middleware.JWTMiddleware).
	Authenticate echo.MiddlewareFunc
	RBAC         *middleware.RBACMiddleware
}

// Register mounts the API under api. Role checks that depend only on the
// caller's role run as middleware; ownership and scoping stay in the services.
func (r *Routes) Register(api *echo.Group) {
	require := r.RBAC.RequireOperation

	users := api.Group("/users")
	users.POST("/login", r.Auth.Login)
	users.POST("/refresh-token", r.Auth.RefreshToken)
	users.POST("/forgot-password", r.Auth.ForgotPassword)
	users.POST("/reset-password/:token", r.Auth.ResetPassword)
	users.GET("/verify-reset-token/:token", r.Auth.VerifyResetToken)

	users.POST("/logout", r.Auth.Logout, r.Authenticate)
	users.POST("/register", r.Users.Register, r.Authenticate, require(services.OpManageUsers))
	users.GET("", r.Users.ListUsers, r.Authenticate, require(services.OpListUsers))
	users.PUT("/:id", r.Users.UpdateUser, r.Authenticate, require(services.OpManageUsers))
	users.DELETE("/:id", r.Users.DeleteUser, r.Authenticate, require(services.OpManageUsers))

	decl := api.Group("/predeclarations", r.Authenticate)
	decl.POST("/naissance", r.Declarations.CreateBirth, require(services.OpCreateBirth))
	decl.POST("/deces", r.Declarations.CreateDeath, require(services.OpCreateDeath))
	decl.GET("/mes-predeclarations", r.Declarations.ListOwn, require(services.OpReadOwnDeclarations))
	decl.GET("/naissance", r.Declarations.ListOwnBirths, require(services.OpReadOwnDeclarations))
	decl.GET("/deces", r.Declarations.ListOwnDeaths, require(services.OpReadOwnDeclarations))

	decl.GET("/naissance/:id", r.Declarations.GetBirth)
	decl.PUT("/naissance/:id", r.Declarations.UpdateBirth, require(services.OpUpdateDeclaration))
	decl.DELETE("/naissance/:id", r.Declarations.DeleteBirth, require(services.OpDeleteDeclaration))
	decl.PUT("/naissance/:id/validation", r.Declarations.ValidateBirth)
	decl.GET("/deces/:id", r.Declarations.GetDeath)
	decl.PUT("/deces/:id", r.Declarations.UpdateDeath, require(services.OpUpdateDeclaration))
	decl.DELETE("/deces/:id", r.Declarations.DeleteDeath, require(services.OpDeleteDeclaration))

	decl.GET("/predeclarations/mairie", r.Declarations.ListAddressed, require(services.OpReadAddressedBirths))
	decl.GET("/predeclarations", r.Declarations.ListAll, require(services.OpReadAllDeclarations))

	stats := decl.Group("/stats")
	stats.GET("/hopital", r.Stats.Hospital, require(services.OpHospitalStats))
	stats.GET("/mairie", r.Stats.Municipality, require(services.OpMunicipalityStats))
	stats.GET("/globales", r.Stats.Global, require(services.OpGlobalStats))
	stats.GET("/validations", r.Stats.Validations, require(services.OpGlobalStats))
	stats.GET("/par-hopital", r.Stats.PerHospital, require(services.OpGlobalStats))

	api.GET("/audit-logs", r.AuditLogs.ListAuditLogs, r.Authenticate, require(services.OpReadAllDeclarations))
}
