package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type Membership string

const (
	MembershipStandard Membership = "standard"
	MembershipTrial    Membership = "trial"
	MembershipVIP      Membership = "vip"
)

// User is the slice of the member record the engine needs: identity,
// contact endpoints and the attributes segment predicates read. Member
// CRUD itself lives in the back-office service.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	TelegramChatID int64      `json:"telegram_chat_id,omitempty"`
	Status         UserStatus `json:"status"`
	Membership     Membership `json:"membership"`
	TrainerID      *uuid.UUID `json:"trainer_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
