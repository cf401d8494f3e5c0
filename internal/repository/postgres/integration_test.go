package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/domain"
	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
)

func sampleBundle() *domain.Bundle {
	expiry := time.Date(2024, 1, 15, 15, 0, 0, 123456000, time.UTC)
	return &domain.Bundle{
		Token:        "ya29.access",
		RefreshToken: "1//refresh",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"https://www.googleapis.com/auth/calendar", "openid"},
		Expiry:       &expiry,
		Email:        "agent@example.com",
	}
}

func TestEncodeBundle_StoredShape(t *testing.T) {
	raw, err := encodeBundle(sampleBundle())
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "2024-01-15T15:00:00.123456", stored["expiry"])
	assert.Equal(t, "1//refresh", stored["refresh_token"])
	assert.Equal(t, "agent@example.com", stored["email"])
	assert.Len(t, stored["scopes"], 2)

	raw, err = encodeBundle(&domain.Bundle{Token: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t","refresh_token":"","token_uri":"","client_id":"","client_secret":"","scopes":[],"expiry":null}`, string(raw))
}

func TestDecodeBundle_ExpiryForms(t *testing.T) {
	tests := []struct {
		name   string
		expiry string
		want   time.Time
	}{
		{"naive", `"2024-01-15T15:00:00"`, time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)},
		{"zulu", `"2024-01-15T15:00:00Z"`, time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)},
		{"offset", `"2024-01-15T17:00:00+02:00"`, time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := decodeBundle([]byte(`{"token":"t","refresh_token":"r","expiry":` + tt.expiry + `}`))
			require.NoError(t, err)
			require.NotNil(t, b.Expiry)
			assert.True(t, tt.want.Equal(*b.Expiry))
			assert.Equal(t, time.UTC, b.Expiry.Location())
		})
	}

	b, err := decodeBundle([]byte(`{"token":"t","expiry":null}`))
	require.NoError(t, err)
	assert.Nil(t, b.Expiry)
}

func TestIntegrationRepository_Get(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	raw, err := encodeBundle(sampleBundle())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT credentials FROM integrations").
		WithArgs(int64(1), domain.PlatformGoogleCalendar).
		WillReturnRows(pgxmock.NewRows([]string{"credentials"}).AddRow(raw))

	b, err := repo.Get(context.Background(), 1, domain.PlatformGoogleCalendar)
	require.NoError(t, err)
	assert.Equal(t, sampleBundle(), b)
}

func TestIntegrationRepository_Get_Absent(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	mock.ExpectQuery("SELECT credentials FROM integrations").
		WithArgs(int64(1), domain.PlatformGoogleCalendar).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), 1, domain.PlatformGoogleCalendar)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestIntegrationRepository_Save_CommitsBothRows(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO integrations").
		WithArgs(int64(1), domain.PlatformGoogleCalendar, pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO integration_status").
		WithArgs(int64(1), domain.PlatformGoogleCalendar, domain.IntegrationActive, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), 1, domain.PlatformGoogleCalendar, sampleBundle(), fixedNow))
}

func TestIntegrationRepository_Save_RollsBackOnStatusFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO integrations").
		WithArgs(int64(1), domain.PlatformGoogleCalendar, pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO integration_status").
		WithArgs(int64(1), domain.PlatformGoogleCalendar, domain.IntegrationActive, fixedNow).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), 1, domain.PlatformGoogleCalendar, sampleBundle(), fixedNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert integration status")
}

func TestIntegrationRepository_SetStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	mock.ExpectExec("INSERT INTO integration_status").
		WithArgs(int64(3), domain.PlatformGoogleCalendar, domain.IntegrationError, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetStatus(context.Background(), 3, domain.PlatformGoogleCalendar, domain.IntegrationError, fixedNow))
}

func TestIntegrationRepository_ListUserIDs(t *testing.T) {
	mock := newMock(t)
	repo := NewIntegrationRepository(mock)

	mock.ExpectQuery("SELECT user_id FROM integrations").
		WithArgs(domain.PlatformGoogleCalendar).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(1)).AddRow(int64(5)))

	ids, err := repo.ListUserIDs(context.Background(), domain.PlatformGoogleCalendar)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, ids)
}
