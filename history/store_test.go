package history

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	msgs, err := s.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.Append(ctx, "s1",
		models.Message{Role: models.RoleUser, Content: "hi"},
		models.Message{Role: models.RoleAssistant, Content: "hello"},
	))
	require.NoError(t, s.Append(ctx, "s2", models.Message{Role: models.RoleUser, Content: "other"}))

	msgs, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "s1", msgs[0].SessionID)
	assert.False(t, msgs[0].CreatedAt.IsZero())

	// returned slice is a copy
	msgs[0].Content = "changed"
	again, _ := s.Load(ctx, "s1")
	assert.Equal(t, "hi", again[0].Content)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, "shared", models.Message{Role: models.RoleUser, Content: "x"})
			_, _ = s.Load(ctx, "shared")
		}()
	}
	wg.Wait()

	msgs, err := s.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}

func TestSplitDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		wantRoot string
		wantName string
		wantOK   bool
	}{
		{
			dsn:      "user:pass@tcp(127.0.0.1:3306)/navigator?charset=utf8mb4&parseTime=True",
			wantRoot: "user:pass@tcp(127.0.0.1:3306)/?charset=utf8mb4&parseTime=True",
			wantName: "navigator",
			wantOK:   true,
		},
		{
			dsn:      "root@tcp(db:3306)/chat",
			wantRoot: "root@tcp(db:3306)/",
			wantName: "chat",
			wantOK:   true,
		},
		{dsn: "root@tcp(db:3306)/", wantOK: false},
		{dsn: "no-slash", wantOK: false},
		{dsn: "root@tcp(db:3306)/bad`name", wantOK: false},
	}

	for _, tt := range tests {
		root, name, ok := splitDSN(tt.dsn)
		assert.Equal(t, tt.wantOK, ok, tt.dsn)
		if tt.wantOK {
			assert.Equal(t, tt.wantRoot, root)
			assert.Equal(t, tt.wantName, name)
		}
	}
}

func TestInitDB_EmptyDSN(t *testing.T) {
	_, err := InitDB("", zap.NewNop())
	assert.Error(t, err)
}

// TestGormStore runs against a real MySQL when TEST_DB_DSN is set.
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	db, err := InitDB(dsn, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	s := NewGormStore(db)
	session := uuid.NewString()

	require.NoError(t, s.Append(ctx, session,
		models.Message{Role: models.RoleUser, Content: "Paris to Berlin?"},
		models.Message{Role: models.RoleAssistant, Content: "Head north."},
	))

	msgs, err := s.Load(ctx, session)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "Head north.", msgs[1].Content)
}
