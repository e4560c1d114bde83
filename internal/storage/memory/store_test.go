package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DirectoryOperations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	key := &domain.APIKey{Key: "sk-sm-v1-AAAA", OutOfDate: time.Now()}
	user := &domain.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

	// Test CreateUserWithKey
	err := store.CreateUserWithKey(ctx, user, key)
	require.NoError(t, err)
	assert.NotZero(t, key.ID)
	assert.NotZero(t, user.ID)
	assert.Equal(t, key.ID, user.APIKeyID)

	// Test ListUsers / ListAPIKeys
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada@example.com", users[0].Email)

	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "sk-sm-v1-AAAA", keys[0].Key)

	// Test DeleteUserWithKey
	err = store.DeleteUserWithKey(ctx, user.ID)
	require.NoError(t, err)

	users, _ = store.ListUsers(ctx)
	keys, _ = store.ListAPIKeys(ctx)
	assert.Empty(t, users)
	assert.Empty(t, keys)

	// 再次删除返回未找到
	err = store.DeleteUserWithKey(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestMemoryStore_DeleteOnlyOwnKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	u1 := &domain.User{FirstName: "A", LastName: "A", Email: "a@example.com"}
	u2 := &domain.User{FirstName: "B", LastName: "B", Email: "b@example.com"}
	require.NoError(t, store.CreateUserWithKey(ctx, u1, &domain.APIKey{Key: "k1", OutOfDate: time.Now()}))
	require.NoError(t, store.CreateUserWithKey(ctx, u2, &domain.APIKey{Key: "k2", OutOfDate: time.Now()}))

	require.NoError(t, store.DeleteUserWithKey(ctx, u1.ID))

	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "k2", keys[0].Key)
	assert.Equal(t, u2.APIKeyID, keys[0].ID)
}

func TestMemoryStore_AdminOperations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.GetAdminByEmail(ctx, "root@example.com")
	assert.ErrorIs(t, err, storage.ErrAdminNotFound)

	require.NoError(t, store.CreateAdmin(ctx, &domain.Admin{Email: "root@example.com", Password: "hash-1"}))
	require.NoError(t, store.CreateAdmin(ctx, &domain.Admin{Email: "root@example.com", Password: "hash-2"}))

	// 邮箱重复时返回第一条
	admin, err := store.GetAdminByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", admin.Password)
}

func TestMemoryStore_ReturnedValuesAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	user := &domain.User{FirstName: "A", LastName: "B", Email: "c@example.com"}
	require.NoError(t, store.CreateUserWithKey(ctx, user, &domain.APIKey{Key: "k", OutOfDate: time.Now()}))

	user.Email = "changed@example.com"
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", users[0].Email)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.CreateUserWithKey(ctx, &domain.User{}, &domain.APIKey{})
	assert.ErrorIs(t, err, context.Canceled)

	keys, _ := store.ListAPIKeys(context.Background())
	assert.Empty(t, keys)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := &domain.User{FirstName: "u", LastName: "u", Email: fmt.Sprintf("u%d@example.com", i)}
			_ = store.CreateUserWithKey(ctx, user, &domain.APIKey{Key: fmt.Sprintf("k%d", i), OutOfDate: time.Now()})
		}(i)
	}
	wg.Wait()

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 50)
	assert.Len(t, keys, 50)

	// 每个用户都指向一个存在的 API Key
	ids := make(map[int64]bool, len(keys))
	for _, k := range keys {
		ids[k.ID] = true
	}
	for _, u := range users {
		assert.True(t, ids[u.APIKeyID])
	}
}
