package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inboxd/internal/migrations"
	"inboxd/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite store holding customers, conversations and
// messages. All find-or-create races resolve against the schema's unique
// indexes, never against application locks.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// nullIfEmpty maps empty strings to NULL so partial unique indexes only see
// populated slots.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Customer operations

// CreateCustomer inserts a customer. Insertion is idempotent: if another
// delivery already created a customer for the same channel identifier, the
// insert is ignored and the caller re-reads.
func (d *Database) CreateCustomer(ctx context.Context, c *models.Customer) error {
	encryptedName, err := d.encryptor.EncryptIfEnabled(c.Name)
	if err != nil {
		return fmt.Errorf("failed to encrypt customer name: %w", err)
	}
	encryptedWaID, err := d.encryptor.EncryptForLookupIfEnabled(c.WhatsAppID)
	if err != nil {
		return fmt.Errorf("failed to encrypt WhatsApp ID: %w", err)
	}
	encryptedIgID, err := d.encryptor.EncryptForLookupIfEnabled(c.InstagramID)
	if err != nil {
		return fmt.Errorf("failed to encrypt Instagram ID: %w", err)
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertCustomerQuery,
			c.ID, encryptedName, nullIfEmpty(encryptedWaID), nullIfEmpty(encryptedIgID),
			c.CreatedAt, c.LastInteraction)
		if err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return nil
	}, "create customer")
}

// GetCustomerByChannelID looks up the customer owning a channel identifier.
// Returns nil when no customer exists.
func (d *Database) GetCustomerByChannelID(ctx context.Context, channel models.Channel, channelID string) (*models.Customer, error) {
	encryptedID, err := d.encryptor.EncryptForLookupIfEnabled(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt channel ID: %w", err)
	}

	query := selectCustomerByInstagramIDQuery
	if channel == models.ChannelWhatsApp {
		query = selectCustomerByWhatsAppIDQuery
	}

	return d.scanCustomer(d.db.QueryRowContext(ctx, query, encryptedID))
}

// GetCustomer retrieves a customer by internal id.
func (d *Database) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	return d.scanCustomer(d.db.QueryRowContext(ctx, selectCustomerByIDQuery, id))
}

// TouchCustomer refreshes the last-interaction timestamp.
func (d *Database) TouchCustomer(ctx context.Context, id string) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, touchCustomerQuery, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to touch customer: %w", err)
		}
		return nil
	}, "touch customer")
}

func (d *Database) scanCustomer(row *sql.Row) (*models.Customer, error) {
	var c models.Customer
	var encryptedName string
	var waID, igID sql.NullString

	err := row.Scan(&c.ID, &encryptedName, &waID, &igID, &c.CreatedAt, &c.LastInteraction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Name, err = d.encryptor.DecryptIfEnabled(encryptedName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt customer name: %w", err)
	}
	if waID.Valid {
		c.WhatsAppID, err = d.encryptor.DecryptIfEnabled(waID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt WhatsApp ID: %w", err)
		}
	}
	if igID.Valid {
		c.InstagramID, err = d.encryptor.DecryptIfEnabled(igID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt Instagram ID: %w", err)
		}
	}

	return &c, nil
}

// Conversation operations

// CreateConversation inserts a conversation. The comment-id unique index and
// the open-dm partial unique index make concurrent creates collapse to one
// row; losers are ignored and the caller re-reads.
func (d *Database) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	encryptedCommentID, err := d.encryptor.EncryptForLookupIfEnabled(conv.CommentID)
	if err != nil {
		return fmt.Errorf("failed to encrypt comment ID: %w", err)
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertConversationQuery,
			conv.ID, conv.CustomerID, string(conv.Channel), string(conv.Kind),
			nullIfEmpty(encryptedCommentID), string(conv.Status),
			nullIfEmpty(conv.AssignedAgentID), conv.CreatedAt, conv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return nil
	}, "create conversation")
}

// GetConversationByCommentID looks up the comment thread for a provider
// comment id across all statuses. Returns nil when no thread exists.
func (d *Database) GetConversationByCommentID(ctx context.Context, commentID string) (*models.Conversation, error) {
	encryptedCommentID, err := d.encryptor.EncryptForLookupIfEnabled(commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt comment ID: %w", err)
	}

	query := selectConversationColumns + ` WHERE comment_id = ?`
	return d.scanConversation(d.db.QueryRowContext(ctx, query, encryptedCommentID))
}

// GetOpenDMConversation looks up the open dm thread for a customer on a
// channel. Returns nil when none is open.
func (d *Database) GetOpenDMConversation(ctx context.Context, customerID string, channel models.Channel) (*models.Conversation, error) {
	query := selectConversationColumns + `
		WHERE customer_id = ? AND channel = ? AND kind = ? AND status = ?`
	return d.scanConversation(d.db.QueryRowContext(ctx, query,
		customerID, string(channel), string(models.ThreadDM), string(models.ConversationOpen)))
}

// GetConversation retrieves a conversation by id.
func (d *Database) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := selectConversationColumns + ` WHERE id = ?`
	return d.scanConversation(d.db.QueryRowContext(ctx, query, id))
}

// ListConversations returns conversations, optionally filtered by status,
// most recently updated first.
func (d *Database) ListConversations(ctx context.Context, status models.ConversationStatus) ([]*models.Conversation, error) {
	query := selectConversationColumns
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := d.scanConversationRow(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// TouchConversation bumps the updated timestamp.
func (d *Database) TouchConversation(ctx context.Context, id string) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, touchConversationQuery, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	}, "touch conversation")
}

// UpdateConversationStatus transitions a conversation's status.
func (d *Database) UpdateConversationStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	result, err := d.db.ExecContext(ctx, updateConversationStatusQuery, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no conversation found with ID: %s", id)
	}
	return nil
}

// AssignConversationAgent sets the assigned agent.
func (d *Database) AssignConversationAgent(ctx context.Context, id, agentID string) error {
	result, err := d.db.ExecContext(ctx, assignConversationAgentQuery, nullIfEmpty(agentID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to assign conversation agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no conversation found with ID: %s", id)
	}
	return nil
}

func (d *Database) scanConversation(row *sql.Row) (*models.Conversation, error) {
	var conv models.Conversation
	var channel, kind, status string
	var commentID, agentID sql.NullString

	err := row.Scan(&conv.ID, &conv.CustomerID, &channel, &kind, &commentID,
		&status, &agentID, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return d.finishConversation(&conv, channel, kind, status, commentID, agentID)
}

func (d *Database) scanConversationRow(rows *sql.Rows) (*models.Conversation, error) {
	var conv models.Conversation
	var channel, kind, status string
	var commentID, agentID sql.NullString

	err := rows.Scan(&conv.ID, &conv.CustomerID, &channel, &kind, &commentID,
		&status, &agentID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return d.finishConversation(&conv, channel, kind, status, commentID, agentID)
}

func (d *Database) finishConversation(conv *models.Conversation, channel, kind, status string, commentID, agentID sql.NullString) (*models.Conversation, error) {
	conv.Channel = models.Channel(channel)
	conv.Kind = models.ThreadKind(kind)
	conv.Status = models.ConversationStatus(status)
	if agentID.Valid {
		conv.AssignedAgentID = agentID.String
	}
	if commentID.Valid {
		decrypted, err := d.encryptor.DecryptIfEnabled(commentID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt comment ID: %w", err)
		}
		conv.CommentID = decrypted
	}
	return conv, nil
}

// Message operations

// SaveMessage appends an immutable message row. Returns false when the row
// was dropped by the (conversation_id, provider_msg_id) dedup index.
func (d *Database) SaveMessage(ctx context.Context, m *models.Message) (bool, error) {
	encryptedText, err := d.encryptor.EncryptIfEnabled(m.Text)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt message text: %w", err)
	}
	encryptedProviderID, err := d.encryptor.EncryptForLookupIfEnabled(m.ProviderMsgID)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt provider message ID: %w", err)
	}
	encryptedCommentID, err := d.encryptor.EncryptForLookupIfEnabled(m.CommentID)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt comment ID: %w", err)
	}

	var inserted bool
	err = retryableDBOperationNoReturn(ctx, func() error {
		result, err := d.db.ExecContext(ctx, insertMessageQuery,
			m.ID, m.ConversationID, m.CustomerID, string(m.Direction), encryptedText,
			nullIfEmpty(encryptedProviderID), nullIfEmpty(encryptedCommentID), m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted = rows > 0
		return nil
	}, "save message")

	return inserted, err
}

// ListMessages returns a conversation's messages ordered by timestamp.
func (d *Database) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	rows, err := d.db.QueryContext(ctx, selectMessagesByConversationQuery, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		var direction, encryptedText string
		var providerID, commentID sql.NullString

		if err := rows.Scan(&m.ID, &m.ConversationID, &m.CustomerID, &direction,
			&encryptedText, &providerID, &commentID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		m.Direction = models.MessageDirection(direction)
		m.Text, err = d.encryptor.DecryptIfEnabled(encryptedText)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt message text: %w", err)
		}
		if providerID.Valid {
			m.ProviderMsgID, err = d.encryptor.DecryptIfEnabled(providerID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt provider message ID: %w", err)
			}
		}
		if commentID.Valid {
			m.CommentID, err = d.encryptor.DecryptIfEnabled(commentID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt comment ID: %w", err)
			}
		}

		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
