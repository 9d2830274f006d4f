package accounts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var admin = domain.Actor{UserID: 1, Admin: true}

func addClient(t *testing.T, gdb *gorm.DB, name, email string, step int, created time.Time) uint {
	t.Helper()
	user := domain.User{Email: email, Name: name}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&domain.ClientProfile{
		UserID:           user.ID,
		AccountType:      "Standard",
		RegistrationStep: step,
		CreatedOn:        created,
	}).Error)
	return user.ID
}

func TestOpenLinksAccountToClient(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	id := addClient(t, gdb, "Anna Georgiou", "anna@example.com", 5, time.Now())

	acct, err := svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 1001, Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", acct.Currency)
	assert.Equal(t, "Standard", acct.AccountType)
	assert.True(t, acct.Balance.IsZero())

	acct, err = svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 1002, AccountType: "Pro"})
	require.NoError(t, err)
	assert.Equal(t, "USD", acct.Currency)
	assert.Equal(t, "Pro", acct.AccountType)
}

func TestOpenRejectsDuplicateLogin(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	id := addClient(t, gdb, "Anna", "anna@example.com", 5, time.Now())
	_, err := svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 1001})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 1001})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "login_id", verr.Field)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestOpenInvalidatesLedgerCache(t *testing.T) {
	gdb := testutil.NewDB(t)
	ledgers := &countingInvalidator{}
	svc := NewService(gdb, ledgers)
	id := addClient(t, gdb, "Zed", "zed@example.com", 5, time.Now())

	_, err := svc.Open(context.Background(), admin, OpenInput{UserID: 77, LoginID: 7777})
	require.Error(t, err)
	assert.Zero(t, ledgers.calls, "failed opens leave the cache alone")

	_, err = svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 7777})
	require.NoError(t, err)
	assert.Equal(t, 1, ledgers.calls)
}

func TestOpenRequiresRegisteredClient(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)

	_, err := svc.Open(context.Background(), admin, OpenInput{UserID: 77, LoginID: 1001})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.Open(context.Background(), admin, OpenInput{UserID: 77, LoginID: 1001, Currency: "EURO"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSuggestMatchesNameOrEmail(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	anna := addClient(t, gdb, "Anna Georgiou", "anna@example.com", 5, time.Now())
	addClient(t, gdb, "Petros Ioannou", "petros@annamail.com", 2, time.Now())
	addClient(t, gdb, "Kostas", "kostas@example.com", 1, time.Now())
	_, err := svc.Open(context.Background(), admin, OpenInput{UserID: anna, LoginID: 5005})
	require.NoError(t, err)

	got, err := svc.Suggest(context.Background(), "anna")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Anna Georgiou", got[0].Name)
	require.NotNil(t, got[0].LoginID)
	assert.EqualValues(t, 5005, *got[0].LoginID)
	assert.Equal(t, "Petros Ioannou", got[1].Name)
	assert.Nil(t, got[1].LoginID)

	got, err = svc.Suggest(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestIsCapped(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	for i := 0; i < SuggestLimit+5; i++ {
		addClient(t, gdb, fmt.Sprintf("Client %02d", i), fmt.Sprintf("c%d@example.com", i), 1, time.Now())
	}

	got, err := svc.Suggest(context.Background(), "client")
	require.NoError(t, err)
	assert.Len(t, got, SuggestLimit)
}

func TestListClientsPagesNewestFirst(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		addClient(t, gdb, fmt.Sprintf("Client %d", i), fmt.Sprintf("c%d@example.com", i), i, base.AddDate(0, 0, i))
	}

	page, err := svc.ListClients(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Clients, 2)
	assert.Equal(t, "Client 2", page.Clients[0].Name)
	assert.Equal(t, 2, page.Clients[0].RegistrationStep)
	assert.Equal(t, "Client 1", page.Clients[1].Name)
}

func TestForSubjectResolvesTarget(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewService(gdb, nil)
	id := addClient(t, gdb, "Anna", "anna@example.com", 5, time.Now())
	_, err := svc.Open(context.Background(), admin, OpenInput{UserID: id, LoginID: 1001})
	require.NoError(t, err)

	own, err := svc.ForSubject(context.Background(), domain.Actor{UserID: id})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.EqualValues(t, 1001, own[0].LoginID)

	viaAdmin, err := svc.ForSubject(context.Background(), domain.Actor{UserID: 1, Admin: true, TargetUserID: id})
	require.NoError(t, err)
	assert.Len(t, viaAdmin, 1)

	_, err = svc.ForSubject(context.Background(), domain.Actor{UserID: 3, TargetUserID: id})
	var authErr *domain.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}
