//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trainhub/trainhub-server/internal/model"
	repo "github.com/trainhub/trainhub-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "trainhub_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/trainhub_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createUser(t *testing.T, ur *repo.UserRepository, role model.Role) model.User {
	t.Helper()
	u, err := ur.Create(context.Background(), model.User{
		ID:    uuid.New(),
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()),
		Name:  "Test User",
		Role:  role,
	})
	require.NoError(t, err)
	return u
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	pr := repo.NewPackageRepository(conn)
	sr := repo.NewSessionRepository(conn)

	t.Run("user_repository", func(t *testing.T) {
		u := createUser(t, ur, model.RoleTrainer)

		byID, err := ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)
		require.Nil(t, byID.CalendarID)
		require.False(t, byID.CalendarConnected)

		require.NoError(t, ur.SetCalendar(ctx, u.ID, "cal-123"))
		byID, err = ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, byID.CalendarID)
		require.Equal(t, "cal-123", *byID.CalendarID)
		require.True(t, byID.CalendarConnected)

		_, err = ur.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("oauth_token", func(t *testing.T) {
		u := createUser(t, ur, model.RoleTrainer)

		_, err := ur.GetOAuthToken(ctx, u.ID)
		require.ErrorIs(t, err, model.ErrNotFound)

		tok := model.OAuthToken{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		}
		require.NoError(t, ur.SaveOAuthToken(ctx, u.ID, tok))

		got, err := ur.GetOAuthToken(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, tok.AccessToken, got.AccessToken)
		require.Equal(t, tok.RefreshToken, got.RefreshToken)
		require.WithinDuration(t, tok.Expiry, got.Expiry, time.Second)
	})

	t.Run("package_repository", func(t *testing.T) {
		client := createUser(t, ur, model.RoleClient)

		older, err := pr.Create(ctx, model.Package{
			ID:               uuid.New(),
			ClientID:         client.ID,
			SessionsIncluded: 5,
			Status:           model.PackageStatusActive,
			PurchaseDate:     time.Now().Add(-48 * time.Hour),
		})
		require.NoError(t, err)

		newer, err := pr.Create(ctx, model.Package{
			ID:               uuid.New(),
			ClientID:         client.ID,
			SessionsIncluded: 10,
			Status:           model.PackageStatusActive,
			PurchaseDate:     time.Now(),
		})
		require.NoError(t, err)

		pkgs, err := pr.GetByClientID(ctx, client.ID)
		require.NoError(t, err)
		require.Len(t, pkgs, 2)
		require.Equal(t, newer.ID, pkgs[0].ID)
		require.Equal(t, older.ID, pkgs[1].ID)

		// CAS succeeds with matching expectations.
		require.NoError(t, pr.UpdateCounts(ctx, newer.ID, 0, 10, 1, 10, model.PackageStatusActive))

		// Stale expectations must conflict, not clobber.
		err = pr.UpdateCounts(ctx, newer.ID, 0, 10, 1, 10, model.PackageStatusActive)
		require.ErrorIs(t, err, model.ErrConflict)

		err = pr.UpdateCounts(ctx, uuid.New(), 0, 10, 1, 10, model.PackageStatusActive)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("session_repository", func(t *testing.T) {
		client := createUser(t, ur, model.RoleClient)
		trainer := createUser(t, ur, model.RoleTrainer)

		s, err := sr.Create(ctx, model.Session{
			ID:              uuid.New(),
			ClientID:        client.ID,
			TrainerID:       trainer.ID,
			Date:            "2025-09-17",
			StartTime:       "18:00",
			EndTime:         "19:00",
			Type:            "strength",
			Status:          "scheduled",
			DurationMinutes: 60,
		})
		require.NoError(t, err)
		require.Equal(t, "2025-09-17", s.Date)

		notes := "deload week"
		patched, err := sr.Update(ctx, s.ID, model.SessionPatch{Notes: &notes})
		require.NoError(t, err)
		require.Equal(t, notes, patched.Notes)
		require.Equal(t, "18:00", patched.StartTime)

		require.NoError(t, sr.SetEventID(ctx, s.ID, "evt-1"))
		got, err := sr.GetByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got.EventID)
		require.Equal(t, "evt-1", *got.EventID)

		deleted, err := sr.Delete(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, client.ID, deleted.ClientID)
		require.Equal(t, trainer.ID, deleted.TrainerID)

		_, err = sr.GetByID(ctx, s.ID)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}
