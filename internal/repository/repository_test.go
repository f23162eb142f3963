package repository

import (
	"context"
	"testing"
	"time"

	"intern-portal/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "secret123"}
	require.NoError(t, NewGormUserRepository(db).Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "alice")
	assert.NotZero(t, u.ID)
	assert.Equal(t, "intern", u.Role)
	assert.True(t, models.CheckPasswordHash("secret123", u.Password))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	got, err = repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProjectRepository_Membership(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	admin := seedUser(t, db, "admin")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")

	p := &models.Project{Title: "Portal", CreatedByID: admin.ID}
	require.NoError(t, repo.Create(ctx, p, u1.ID, u1.ID))

	tests := []struct {
		name   string
		userID uint
		want   bool
	}{
		{"creator is auto member", admin.ID, true},
		{"listed member", u1.ID, true},
		{"outsider", u2.ID, false},
		{"unknown user", 4242, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := repo.IsMember(ctx, tt.userID, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	require.NoError(t, repo.AddMember(ctx, p.ID, u2.ID))
	require.NoError(t, repo.AddMember(ctx, p.ID, u2.ID))
	ok, err := repo.IsMember(ctx, u2.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, u1.ID, p.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageRepository_ListByProjectOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msgs := []*models.Message{
		{ProjectID: 1, SenderID: 1, Text: "second", CreatedAt: base.Add(time.Second)},
		{ProjectID: 1, SenderID: 2, Text: "first", CreatedAt: base},
		{ProjectID: 2, SenderID: 1, Text: "other project", CreatedAt: base},
		{ProjectID: 1, SenderID: 1, Text: "third-a", CreatedAt: base.Add(2 * time.Second)},
		{ProjectID: 1, SenderID: 2, FileURL: "/uploads/x.png", FileType: "image", OriginalName: "x.png", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
		assert.NotZero(t, m.ID)
	}

	all, err := repo.ListByProject(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "first", all[0].Text)
	assert.Equal(t, "second", all[1].Text)
	assert.Equal(t, "third-a", all[2].Text)
	assert.Equal(t, "/uploads/x.png", all[3].FileURL)

	again, err := repo.ListByProject(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, all, again)

	recent, err := repo.ListByProject(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third-a", recent[0].Text)
	assert.Equal(t, "image", recent[1].FileType)

	empty, err := repo.ListByProject(ctx, 99, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
