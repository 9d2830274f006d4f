package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"brokerage_crm/internal/accounts"
	"brokerage_crm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is a generation-keyed cache like utils.RedisCache, kept in memory.
type memCache struct {
	gen     int
	entries map[string][]byte
	hits    int
	keyErr  error
}

func (c *memCache) Key(_ context.Context, suffix string) (string, error) {
	if c.keyErr != nil {
		return "", c.keyErr
	}
	return "g" + strconv.Itoa(c.gen) + ":" + suffix, nil
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

func TestListServesRepeatQueriesFromCache(t *testing.T) {
	svc, gdb, _ := newService(t)
	cache := &memCache{}
	svc.cache = cache
	seedLedger(t, gdb)
	ctx := context.Background()

	first, err := svc.List(ctx, Query{FilterLogin: "1001"})
	require.NoError(t, err)
	second, err := svc.List(ctx, Query{FilterLogin: "1001", Page: 1, PageSize: DefaultPageSize})
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits, "defaults normalize to the same key")
	assert.Equal(t, amounts(first), amounts(second))
	assert.Equal(t, "Alice Smith", second.Rows[0].ClientName)
}

func TestWritesInvalidateCachedPages(t *testing.T) {
	svc, gdb, _ := newService(t)
	cache := &memCache{}
	svc.cache = cache
	seedLedger(t, gdb)
	ctx := context.Background()

	before, err := svc.List(ctx, Query{FilterStatus: "Pending"})
	require.NoError(t, err)
	require.Len(t, before.Rows, 2)

	_, err = svc.UpdateStatus(ctx, operator, before.Rows[0].ID, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.gen)

	after, err := svc.List(ctx, Query{FilterStatus: "Pending"})
	require.NoError(t, err)
	assert.Len(t, after.Rows, 1)
	assert.Zero(t, cache.hits)
}

func TestListWorksWhenCacheIsDown(t *testing.T) {
	svc, gdb, _ := newService(t)
	svc.cache = &memCache{keyErr: errors.New("redis: connection refused")}
	seedLedger(t, gdb)

	page, err := svc.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 5)
}

func TestOpeningAccountRefreshesCachedClientName(t *testing.T) {
	svc, gdb, _ := newService(t)
	cache := &memCache{}
	svc.cache = cache
	ctx := context.Background()

	user := domain.User{Email: "zed@example.com", Name: "Zed"}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&domain.ClientProfile{UserID: user.ID, RegistrationStep: 5}).Error)
	_, err := svc.Create(ctx, operator, deposit(7777, 100, 0, false))
	require.NoError(t, err)

	before, err := svc.List(ctx, Query{FilterLogin: "7777"})
	require.NoError(t, err)
	require.Len(t, before.Rows, 1)
	assert.Empty(t, before.Rows[0].ClientName, "no account owns the login yet")

	_, err = accounts.NewService(gdb, cache).Open(ctx, operator, accounts.OpenInput{UserID: user.ID, LoginID: 7777})
	require.NoError(t, err)

	after, err := svc.List(ctx, Query{FilterLogin: "7777"})
	require.NoError(t, err)
	require.Len(t, after.Rows, 1)
	assert.Equal(t, "Zed", after.Rows[0].ClientName)
}
