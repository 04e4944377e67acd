package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newMockDB opens gorm's postgres dialector over sqlmock. Unmet expectations fail the test.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return gdb, mock
}

// timeArg matches a time argument regardless of location or monotonic reading.
type timeArg time.Time

func (a timeArg) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Equal(time.Time(a))
}

const (
	deleteListingSQL = `DELETE FROM "listings" WHERE id = \$1`
	zeroStockSQL     = `UPDATE "listings" SET "available_quantity"=\$1,"updated_at"=\$2 WHERE .*id = \$3 AND available_quantity > \$4`
)

func TestListingStoreDeleteListing(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(deleteListingSQL).WithArgs("l1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.DeleteListing(context.Background(), "l1"))
}

func TestListingStoreDeleteMissingListing(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(deleteListingSQL).WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.ErrorIs(t, store.DeleteListing(context.Background(), "gone"), ErrListingNotFound)
}

func TestListingStoreRetiresReferencedListingInPlace(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(deleteListingSQL).WithArgs("ordered").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, Message: "violates foreign key constraint"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(zeroStockSQL).WithArgs(0, sqlmock.AnyArg(), "ordered", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.DeleteListing(context.Background(), "ordered"))
}

func TestListingStoreRetireInPlaceAlreadyEmpty(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(deleteListingSQL).WithArgs("sold-out").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(zeroStockSQL).WithArgs(0, sqlmock.AnyArg(), "sold-out", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.ErrorIs(t, store.DeleteListing(context.Background(), "sold-out"), ErrListingNotFound)
}

func TestListingStoreDeletePassesOtherErrorsThrough(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(deleteListingSQL).WithArgs("l1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.DeleteListing(context.Background(), "l1")
	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, ErrListingNotFound)
}

func TestListingStoreFetchListings(t *testing.T) {
	gdb, mock := newMockDB(t)
	store := NewListingStore(gdb, nil, nil)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "listings" WHERE available_quantity > \$1 ORDER BY created_at DESC`).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "farmer_id", "crop_name", "crop_category", "price_per_unit", "available_quantity", "created_at"}).
			AddRow("l1", "f1", "Tomato", "vegetable", "45.50", 12, created))

	listings, err := store.FetchListings(context.Background(), session.Session{UserID: "c1", Role: session.RoleConsumer})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "f1", listings[0].OwnerID)
	assert.Equal(t, "45.5", listings[0].BasePrice.String())
	assert.Equal(t, 12, listings[0].AvailableQuantity)
	assert.True(t, created.Equal(listings[0].CreatedAt))
}
