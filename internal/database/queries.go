package database

// Customer queries
const (
	insertCustomerQuery = `
		INSERT OR IGNORE INTO customers (
			id, name, wa_id, ig_id, created_at, last_interaction
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	selectCustomerByIDQuery = `
		SELECT id, name, wa_id, ig_id, created_at, last_interaction
		FROM customers
		WHERE id = ?
	`

	selectCustomerByWhatsAppIDQuery = `
		SELECT id, name, wa_id, ig_id, created_at, last_interaction
		FROM customers
		WHERE wa_id = ?
	`

	selectCustomerByInstagramIDQuery = `
		SELECT id, name, wa_id, ig_id, created_at, last_interaction
		FROM customers
		WHERE ig_id = ?
	`

	touchCustomerQuery = `
		UPDATE customers
		SET last_interaction = ?
		WHERE id = ?
	`
)

// Conversation queries
const (
	insertConversationQuery = `
		INSERT OR IGNORE INTO conversations (
			id, customer_id, channel, kind, comment_id, status,
			assigned_agent_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectConversationColumns = `
		SELECT id, customer_id, channel, kind, comment_id, status,
		       assigned_agent_id, created_at, updated_at
		FROM conversations
	`

	touchConversationQuery = `
		UPDATE conversations
		SET updated_at = ?
		WHERE id = ?
	`

	updateConversationStatusQuery = `
		UPDATE conversations
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	assignConversationAgentQuery = `
		UPDATE conversations
		SET assigned_agent_id = ?, updated_at = ?
		WHERE id = ?
	`
)

// Message queries
const (
	insertMessageQuery = `
		INSERT OR IGNORE INTO messages (
			id, conversation_id, customer_id, direction, text,
			provider_msg_id, comment_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectMessagesByConversationQuery = `
		SELECT id, conversation_id, customer_id, direction, text,
		       provider_msg_id, comment_id, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`
)
