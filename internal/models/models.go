package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant is the isolation boundary. Every other row carries a TenantID.
type Tenant struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	WhatsAppAccountID string    `gorm:"column:whatsapp_account_id;type:varchar(100);uniqueIndex" json:"whatsapp_account_id"` // gateway accountId / clientId
	Address           string    `gorm:"type:text" json:"address"`
	BusinessHours     string    `gorm:"type:varchar(255)" json:"business_hours"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// User is a roster entry of a tenant. Phone is stored as typed by the admin
// and normalized on every comparison.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  string    `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Phone     string    `gorm:"type:varchar(50);not null" json:"phone"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"` // OWNER, ADMIN, SALES, STAFF
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Vehicle is an inventory unit of a showroom.
type Vehicle struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TenantID     string         `gorm:"type:varchar(36);not null;uniqueIndex:ux_vehicle_tenant_code,priority:1" json:"tenant_id"`
	Code         string         `gorm:"type:varchar(20);not null;uniqueIndex:ux_vehicle_tenant_code,priority:2" json:"code"`
	Brand        string         `gorm:"type:varchar(100)" json:"brand"`
	Model        string         `gorm:"type:varchar(100)" json:"model"`
	Year         int            `json:"year"`
	Color        string         `gorm:"type:varchar(50)" json:"color"`
	Transmission string         `gorm:"type:varchar(20)" json:"transmission"`
	Price        int64          `json:"price"`
	MileageKm    int            `json:"mileage_km"`
	Photos       datatypes.JSON `json:"photos"` // JSON array of media refs
	Status       string         `gorm:"type:varchar(20);default:'available';index" json:"status"`
	SoldPrice    int64          `json:"sold_price"`
	SoldAt       *time.Time     `json:"sold_at"`
	CreatedBy    string         `gorm:"type:varchar(50)" json:"created_by"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// Lead tracks a customer who contacted the showroom over chat.
type Lead struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TenantID      string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_lead_tenant_phone,priority:1" json:"tenant_id"`
	Phone         string    `gorm:"type:varchar(50);not null;uniqueIndex:ux_lead_tenant_phone,priority:2" json:"phone"`
	Status        string    `gorm:"type:varchar(20);default:'new'" json:"status"` // new, contacted, escalated
	Source        string    `gorm:"type:varchar(20);default:'whatsapp'" json:"source"`
	LastMessage   string    `gorm:"type:text" json:"last_message"`
	LastContactAt time.Time `json:"last_contact_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// Conversation is the single per (tenant, phone) state record. Workflow holds
// the JSON encoded workflow state, empty when no workflow is running.
type Conversation struct {
	ID              string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID        string            `gorm:"type:varchar(36);not null;uniqueIndex:ux_conversation_tenant_phone,priority:1" json:"tenant_id"`
	Phone           string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_tenant_phone,priority:2" json:"phone"`
	Status          string            `gorm:"type:varchar(20);default:'active'" json:"status"`
	CurrentWorkflow string            `gorm:"type:varchar(50)" json:"current_workflow"`
	Workflow        string            `gorm:"type:text" json:"workflow"`
	ContextData     datatypes.JSONMap `json:"context_data"`
	Version         int               `gorm:"not null;default:0" json:"version"`
	LastMessageAt   time.Time         `json:"last_message_at"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ProcessedMessage is the duplicate suppression ledger entry for one inbound event.
type ProcessedMessage struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	TenantID          string     `gorm:"type:varchar(36);not null;uniqueIndex:ux_processed_tenant_ext,priority:1" json:"tenant_id"`
	ExternalMessageID string     `gorm:"type:varchar(255);not null;uniqueIndex:ux_processed_tenant_ext,priority:2" json:"external_message_id"`
	RawFrom           string     `gorm:"type:varchar(255)" json:"raw_from"`
	Outcome           string     `gorm:"type:varchar(50)" json:"outcome"`
	ReceivedAt        time.Time  `json:"received_at"`
	ProcessedAt       *time.Time `json:"processed_at"`
}

func (ProcessedMessage) TableName() string {
	return "processed_messages"
}

// Message is the conversation log shown on the dashboard.
type Message struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	TenantID          string    `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	ConversationID    string    `gorm:"type:varchar(36);index" json:"conversation_id"`
	Phone             string    `gorm:"type:varchar(64);index" json:"phone"`
	Direction         string    `gorm:"type:varchar(10)" json:"direction"`   // inbound, outbound
	SenderType        string    `gorm:"type:varchar(20)" json:"sender_type"` // customer, staff, ai, system
	SenderRole        string    `gorm:"type:varchar(20)" json:"sender_role"` // roster role of a staff sender
	Intent            string    `gorm:"type:varchar(100)" json:"intent"`
	Content           string    `gorm:"type:text" json:"content"`
	MediaRef          string    `gorm:"type:varchar(255)" json:"media_ref"`
	ExternalMessageID string    `gorm:"type:varchar(255)" json:"external_message_id"`
	Status            string    `gorm:"type:varchar(20)" json:"status"` // received, sent, failed
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// CommandAudit is an append-only record of one executed command invocation.
type CommandAudit struct {
	ID                string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID          string            `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	ConversationID    string            `gorm:"type:varchar(36);index" json:"conversation_id"`
	ExternalMessageID string            `gorm:"type:varchar(255)" json:"external_message_id"`
	ActorPhone        string            `gorm:"type:varchar(64)" json:"actor_phone"`
	ActorKind         string            `gorm:"type:varchar(20)" json:"actor_kind"`
	ActorRef          string            `gorm:"type:varchar(50)" json:"actor_ref"`
	Intent            string            `gorm:"type:varchar(100)" json:"intent"`
	Parameters        datatypes.JSONMap `json:"parameters"`
	Success           bool              `json:"success"`
	Result            string            `gorm:"type:text" json:"result"`
	Dispatched        bool              `json:"dispatched"`
	DispatchError     string            `gorm:"type:text" json:"dispatch_error"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (CommandAudit) TableName() string {
	return "command_audits"
}

// AIHealthState is the per-tenant gate for automated replies. A missing row
// means automation is enabled.
type AIHealthState struct {
	TenantID      string     `gorm:"primaryKey;type:varchar(36)" json:"tenant_id"`
	Enabled       bool       `json:"enabled"`
	Reason        string     `gorm:"type:text" json:"reason"`
	DisabledAt    *time.Time `json:"disabled_at"`
	AutoRecoverAt *time.Time `json:"auto_recover_at"`
	UpdatedBy     string     `gorm:"type:varchar(100)" json:"updated_by"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AIHealthState) TableName() string {
	return "ai_health_states"
}

// SystemSetting persists gateway credentials across restarts.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Vehicle{},
		&Lead{},
		&Conversation{},
		&ProcessedMessage{},
		&Message{},
		&CommandAudit{},
		&AIHealthState{},
		&SystemSetting{},
	}
}
