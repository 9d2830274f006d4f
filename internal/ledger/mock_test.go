package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"brokerage_crm/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockService runs the service on the MySQL dialect against sqlmock.
func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewService(gdb, nil, nil), mock
}

func TestUpdateStatusBeginFailureIsPersistenceError(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := svc.UpdateStatus(context.Background(), operator, 7, domain.StatusApproved)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.RetryMessage, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingRowRollsBack(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(context.Background(), operator, 7, domain.StatusRejected)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusLosingConcurrentWriterRollsBack(t *testing.T) {
	svc, mock := newMockService(t)
	columns := []string{"id", "login_id", "type", "amount", "fee", "description", "transaction_date", "operator_id", "status"}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, 1001, "Deposit", "500", "5", "", time.Now(), 1, 0))
	mock.ExpectExec("UPDATE `transactions` SET `status`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(context.Background(), operator, 7, domain.StatusApproved)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertFailureRollsBack(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), operator, deposit(1001, 500, 5, true))

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
