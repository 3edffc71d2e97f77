package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form document stored in a PostgreSQL jsonb column.
type JSONB map[string]interface{}

// AuditLog records one committed lifecycle change.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Entity    string     `json:"entity" db:"entity"`
	RecordID  string     `json:"recordId" db:"record_id"`
	Action    string     `json:"action" db:"action"`
	ActorID   *uuid.UUID `json:"actorId,omitempty" db:"actor_id"`
	Data      JSONB      `json:"data,omitempty" db:"data"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

const (
	EntityBirthDeclaration = "birth_declaration"
	EntityDeathDeclaration = "death_declaration"
	EntityUser             = "user"
)

const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionValidate = "VALIDATE"
	ActionReject   = "REJECT"
)

type AuditLogFilters struct {
	Entity   *string    `json:"entity"`
	RecordID *string    `json:"recordId"`
	Action   *string    `json:"action"`
	ActorID  *uuid.UUID `json:"actorId"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
