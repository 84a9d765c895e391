package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"ftc-platform/pkg/db/pagination"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestImportContactsUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSession(t, "u1", true, testNow.Add(time.Hour))

	stored := security.TelegramCredentials{Session: "session-u1", APIHash: "platform-hash", APIID: "12345"}
	f.client.EXPECT().Contacts(gomock.Any(), stored).Return([]TelegramContact{
		{TelegramUserID: "100", FirstName: "Ada", Username: "ada"},
		{TelegramUserID: "200", FirstName: "Linus"},
		{TelegramUserID: "100", FirstName: "Ada again"},
		{TelegramUserID: "", FirstName: "No id"},
	}, nil)

	res, err := f.svc.ImportContacts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)

	require.NotNil(t, f.loadSession(t, "u1").LastUsedAt)

	f.client.EXPECT().Contacts(gomock.Any(), stored).Return([]TelegramContact{
		{TelegramUserID: "100", FirstName: "Ada", LastName: "Lovelace", Username: "ada"},
	}, nil)
	_, err = f.svc.ImportContacts(ctx, "u1")
	require.NoError(t, err)

	contacts, info, err := f.svc.ListContacts(ctx, "u1", pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.False(t, info.HasMore)

	var ada Contact
	require.NoError(t, f.db.Where("user_id = ? AND telegram_user_id = ?", "u1", "100").Take(&ada).Error)
	assert.Equal(t, "Lovelace", ada.LastName)
}

func TestImportContactsRevokedUpstream(t *testing.T) {
	for _, code := range []string{CodeAuthKeyUnregistered, CodeSessionRevoked, CodeUserDeactivated} {
		t.Run(code, func(t *testing.T) {
			f := newFixture(t)
			f.seedSession(t, "u1", true, testNow.Add(time.Hour))

			f.client.EXPECT().Contacts(gomock.Any(), gomock.Any()).Return(nil, &UpstreamError{Code: code})

			_, err := f.svc.ImportContacts(context.Background(), "u1")
			assert.True(t, errutil.IsCode(err, errutil.StatusUnauthorized))
			assert.False(t, f.loadSession(t, "u1").IsActive)
		})
	}
}

func TestImportContactsUpstreamFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.seedSession(t, "u1", true, testNow.Add(time.Hour))

	f.client.EXPECT().Contacts(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := f.svc.ImportContacts(context.Background(), "u1")
	assert.True(t, errutil.IsCode(err, errutil.StatusBadGateway))
	assert.True(t, f.loadSession(t, "u1").IsActive)
}

func TestImportContactsRequiresUsableSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ImportContacts(ctx, "u1")
	assert.True(t, errutil.IsCode(err, errutil.StatusNotFound))

	f.seedSession(t, "expired", true, testNow.Add(-time.Minute))
	_, err = f.svc.ImportContacts(ctx, "expired")
	assert.True(t, errutil.IsCode(err, errutil.StatusUnauthorized))
	assert.False(t, f.loadSession(t, "expired").IsActive)

	// ciphertexts are bound to their owner
	rec := f.seedSession(t, "owner", true, testNow.Add(time.Hour))
	require.NoError(t, f.db.Model(rec).Update("user_id", "thief").Error)
	_, err = f.svc.ImportContacts(ctx, "thief")
	assert.True(t, errutil.IsCode(err, errutil.StatusInternal))
	assert.Equal(t, "decryption failed", errutil.From(err).Message)
}

func TestListContactsPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, id := range []string{"k1", "k2", "k3"} {
		require.NoError(t, f.db.Create(&Contact{
			ID:             id,
			UserID:         "u1",
			TelegramUserID: id,
			CreatedAt:      testNow.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	require.NoError(t, f.db.Create(&Contact{ID: "other", UserID: "u2", TelegramUserID: "k1", CreatedAt: testNow}).Error)

	first, info, err := f.svc.ListContacts(ctx, "u1", pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "k1", first[0].ID)
	require.True(t, info.HasMore)

	rest, info, err := f.svc.ListContacts(ctx, "u1", pagination.Pagination{Limit: 2, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "k3", rest[0].ID)
	assert.False(t, info.HasMore)

	_, _, err = f.svc.ListContacts(ctx, "u1", pagination.Pagination{Cursor: "%%%"})
	require.True(t, errutil.IsCode(err, errutil.StatusBadRequest))
}
