package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/purplepatch/notify-hub/internal/domain/contact"
)

// ContactRepository implements contact.Repository for PostgreSQL. Channel
// sub-records are stored as nullable JSONB columns, mirroring the loose
// per-channel maps the platform started with while keeping one column per
// channel queryable.
type ContactRepository struct {
	conn *Connection
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(conn *Connection) *ContactRepository {
	return &ContactRepository{conn: conn}
}

// GetByID returns a contact profile by ID.
func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*contact.Profile, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, telegram, whatsapp, discord, mail, created_at, updated_at
		FROM contact_profiles
		WHERE id = $1
	`, id)

	var p contact.Profile
	var telegram, whatsapp, discord, mail []byte
	err := row.Scan(&p.ID, &telegram, &whatsapp, &discord, &mail, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, contact.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get contact profile: %w", err)
	}

	if err := unmarshalChannel(telegram, &p.Telegram); err != nil {
		return nil, fmt.Errorf("decode telegram contact: %w", err)
	}
	if err := unmarshalChannel(whatsapp, &p.WhatsApp); err != nil {
		return nil, fmt.Errorf("decode whatsapp contact: %w", err)
	}
	if err := unmarshalChannel(discord, &p.Discord); err != nil {
		return nil, fmt.Errorf("decode discord contact: %w", err)
	}
	if err := unmarshalChannel(mail, &p.Mail); err != nil {
		return nil, fmt.Errorf("decode mail contact: %w", err)
	}
	return &p, nil
}

// Create persists a new profile and fills in its generated ID.
func (r *ContactRepository) Create(ctx context.Context, p *contact.Profile) error {
	telegram, whatsapp, discord, mail, err := marshalChannels(p)
	if err != nil {
		return err
	}

	row := r.conn.QueryRow(ctx, `
		INSERT INTO contact_profiles (telegram, whatsapp, discord, mail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, telegram, whatsapp, discord, mail)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create contact profile: %w", err)
	}
	return nil
}

// Update persists changed channel sub-records.
func (r *ContactRepository) Update(ctx context.Context, p *contact.Profile) error {
	telegram, whatsapp, discord, mail, err := marshalChannels(p)
	if err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE contact_profiles
		SET telegram = $1, whatsapp = $2, discord = $3, mail = $4, updated_at = NOW()
		WHERE id = $5
	`, telegram, whatsapp, discord, mail, p.ID)
	if err != nil {
		return fmt.Errorf("update contact profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contact.ErrProfileNotFound
	}
	return nil
}

// marshalChannels encodes each non-nil sub-record; nil stays SQL NULL.
func marshalChannels(p *contact.Profile) (telegram, whatsapp, discord, mail []byte, err error) {
	if telegram, err = marshalChannel(p.Telegram); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode telegram contact: %w", err)
	}
	if whatsapp, err = marshalChannel(p.WhatsApp); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode whatsapp contact: %w", err)
	}
	if discord, err = marshalChannel(p.Discord); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode discord contact: %w", err)
	}
	if mail, err = marshalChannel(p.Mail); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode mail contact: %w", err)
	}
	return telegram, whatsapp, discord, mail, nil
}

func marshalChannel[T any](c *T) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func unmarshalChannel[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
