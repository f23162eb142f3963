package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/internal/models"
	"intern-portal/backend/internal/repository"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/resilience"
	"intern-portal/backend/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubProjects struct {
	mu      sync.Mutex
	members map[[2]uint]bool
	err     error
	calls   int
	sawDead bool
}

func (p *stubProjects) IsMember(ctx context.Context, userID, projectID uint) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if _, ok := ctx.Deadline(); ok {
		p.sawDead = true
	}
	if p.err != nil {
		return false, p.err
	}
	return p.members[[2]uint{userID, projectID}], nil
}

func (p *stubProjects) remove(userID, projectID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, [2]uint{userID, projectID})
}

func (p *stubProjects) Create(context.Context, *models.Project, ...uint) error { return nil }

func (p *stubProjects) AddMember(context.Context, uint, uint) error { return nil }

func TestMembershipService_IsMember(t *testing.T) {
	projects := &stubProjects{members: map[[2]uint]bool{{1, 7}: true}}
	svc := NewMembershipService(projects, nil, MembershipConfig{}, logger.Discard())

	ok, err := svc.IsMember(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsMember(context.Background(), 2, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, projects.sawDead, "queries run under a timeout")
}

func TestMembershipService_FailureIsOracleUnavailable(t *testing.T) {
	projects := &stubProjects{err: errors.New("connection reset")}
	svc := NewMembershipService(projects, nil, MembershipConfig{BreakerThreshold: 2, BreakerTimeout: time.Minute}, logger.Discard())

	for i := 0; i < 2; i++ {
		ok, err := svc.IsMember(context.Background(), 1, 7)
		assert.False(t, ok)
		assert.ErrorIs(t, err, chat.ErrOracleUnavailable)
	}
	assert.Equal(t, resilience.StateOpen, svc.BreakerState())

	_, err := svc.IsMember(context.Background(), 1, 7)
	assert.ErrorIs(t, err, chat.ErrOracleUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, projects.calls, "open breaker short-circuits the query")
}

type stubUsers struct {
	users map[uint]*models.User
	calls int
}

func (u *stubUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	u.calls++
	user, ok := u.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (u *stubUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}

func (u *stubUsers) Create(context.Context, *models.User) error { return nil }

func TestDirectoryService_CachesNames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	users := &stubUsers{users: map[uint]*models.User{1: {ID: 1, Name: "Ada"}}}
	dir := NewDirectoryService(ctx, users, time.Minute, 100)

	for i := 0; i < 3; i++ {
		name, err := dir.DisplayName(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Ada", name)
	}
	assert.Equal(t, 1, users.calls)

	_, err := dir.DisplayName(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMessageService_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(repository.NewGormMessageRepository(db), 0)
	ctx := context.Background()

	first, err := svc.Append(ctx, chat.Draft{ProjectID: 3, SenderID: 1, Text: "hello"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Nil(t, first.Attachment)

	att := &chat.Attachment{URL: "/uploads/x.png", Kind: chat.KindImage, OriginalName: "x.png"}
	second, err := svc.Append(ctx, chat.Draft{ProjectID: 3, SenderID: 2, Attachment: att})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	_, err = svc.Append(ctx, chat.Draft{ProjectID: 4, SenderID: 1, Text: "elsewhere"})
	require.NoError(t, err)

	msgs, err := svc.ListByProject(ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	require.NotNil(t, msgs[1].Attachment)
	assert.Equal(t, *att, *msgs[1].Attachment)

	empty, err := svc.ListByProject(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMessageService_ErrorsArePersistenceFailures(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(repository.NewGormMessageRepository(db), 0)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.Append(context.Background(), chat.Draft{ProjectID: 1, SenderID: 1, Text: "x"})
	assert.ErrorIs(t, err, chat.ErrPersistence)

	_, err = svc.ListByProject(context.Background(), 1)
	assert.ErrorIs(t, err, chat.ErrPersistence)
}

func TestUploadService_Upload(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir, PublicURL: "/uploads"})
	require.NoError(t, err)
	svc := NewUploadService(store, 1024, logger.Discard())

	tests := []struct {
		name        string
		file        string
		contentType string
		want        chat.AttachmentKind
	}{
		{"declared image", "photo.PNG", "image/png", chat.KindImage},
		{"guessed video", "clip.mp4", "", chat.KindVideo},
		{"octet stream guessed", "pic.jpg", "application/octet-stream", chat.KindImage},
		{"document", "notes.pdf", "application/pdf", chat.KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte("content of " + tt.file)
			att, err := svc.Upload(context.Background(), tt.file, tt.contentType, int64(len(body)), bytes.NewReader(body))
			require.NoError(t, err)

			assert.Equal(t, tt.want, att.Kind)
			assert.Equal(t, tt.file, att.OriginalName)
			assert.True(t, strings.HasPrefix(att.URL, "/uploads/"))

			stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(att.URL, "/uploads/")))
			require.NoError(t, err)
			assert.Equal(t, body, stored)
		})
	}
}

func TestUploadService_RejectsOversizedAndMissing(t *testing.T) {
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), PublicURL: "/uploads"})
	require.NoError(t, err)
	svc := NewUploadService(store, 4, logger.Discard())

	_, err = svc.Upload(context.Background(), "big.bin", "", 5, strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Upload(context.Background(), "", "", 0, nil)
	assert.ErrorIs(t, err, ErrNoFile)
}
