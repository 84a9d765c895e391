package credential

import (
	"context"
	"strings"

	"ftc-platform/pkg/db/option"
	"ftc-platform/pkg/db/pagination"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/security"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const contactBatchSize = 100

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportContacts fetches the user's Telegram contacts with the stored
// session and upserts them locally. A session rejected upstream is revoked
// before the error is returned.
func (s *Service) ImportContacts(ctx context.Context, userID string) (*ImportResult, error) {
	log := logger(ctx).With(zap.String("user_hash", security.HashUserID(userID)))

	sess, err := s.activeSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	creds, err := s.cipher.DecryptTelegramCredentials(sess.Bundle(), userID)
	if err != nil {
		log.Error("failed to decrypt telegram session", zap.Error(err))
		return nil, errutil.Internal("decryption failed", err)
	}

	remote, err := s.client.Contacts(ctx, *creds)
	if err != nil {
		if IsRevoked(err) {
			log.Warn("telegram session revoked upstream", zap.String("code", upstreamCode(err)))
			if _, rerr := s.RevokeUserSessions(ctx, userID); rerr != nil {
				log.Error("failed to revoke sessions", zap.Error(rerr))
			}
			return nil, errutil.Unauthorized(err.Error(), err)
		}
		log.Error("telegram contacts fetch failed", zap.Error(err))
		return nil, upstreamError("contacts", err)
	}

	result := &ImportResult{}
	rows := make([]*Contact, 0, len(remote))
	seen := make(map[string]struct{}, len(remote))
	for _, c := range remote {
		id := strings.TrimSpace(c.TelegramUserID)
		if id == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			result.Skipped++
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, &Contact{
			ID:             s.node.Generate().String(),
			UserID:         userID,
			TelegramUserID: id,
			FirstName:      c.FirstName,
			LastName:       c.LastName,
			Username:       c.Username,
			Phone:          c.Phone,
		})
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "telegram_user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "phone", "updated_at"}),
			}).CreateInBatches(rows, contactBatchSize).Error
			if err != nil {
				return err
			}
		}
		return s.session.WithTrx(tx).Update(ctx, sess.ID, map[string]any{"last_used_at": now})
	})
	if err != nil {
		log.Error("failed to store contacts", zap.Error(err))
		return nil, errutil.Internal("failed to store contacts", err)
	}

	result.Imported = len(rows)
	log.Info("telegram contacts imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

// ListContacts pages through the user's contacts in import order.
func (s *Service) ListContacts(ctx context.Context, userID string, page pagination.Pagination) ([]*Contact, *pagination.PageInfo, error) {
	var cursor *pagination.Cursor
	if page.Cursor != "" {
		c, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		cursor = c
	}

	rows, err := s.contact.Find(ctx, &Contact{UserID: userID}, option.WithCursor(cursor), option.ApplyPagination(page))
	if err != nil {
		return nil, nil, errutil.Internal("failed to list contacts", err)
	}
	out, info := pagination.Trim(rows, page.PageSize(), func(c *Contact) string {
		return pagination.CursorFor(c.CreatedAt, c.ID)
	})
	return out, info, nil
}
