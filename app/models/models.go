package models

// All lists every model managed by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Subscription{},
		&UsageLog{},
		&AutomationIntake{},
		&AutomationSubscription{},
		&Invoice{},
		&SupportTicket{},
		&TicketMessage{},
		&AdminAuditLog{},
		&AILead{},
		&LeadActivity{},
		&ContactRequest{},
		&QuoteRequest{},
		&WebhookEvent{},
	}
}
