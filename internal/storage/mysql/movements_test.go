package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/storage"
)

func TestStorage_CommitMovements(t *testing.T) {
	s, mock := newMockStorage(t)

	movements := []storage.Movement{
		{
			Kind:            storage.KindTransferToStaging,
			SourceWarehouse: "Stores",
			DestWarehouse:   "Staging - L1",
			OrderID:         "WO-1",
			Lines: []storage.MovementLine{
				{ItemID: "OIL", Qty: 40, UOM: "Kg", BatchID: "B1"},
				{ItemID: "OIL", Qty: 10, UOM: "Kg", BatchID: "B2"},
			},
		},
		{
			Kind:            storage.KindTransferToStaging,
			SourceWarehouse: "Stores",
			DestWarehouse:   "Staging - L1",
			OrderID:         "WO-2",
			Lines:           []storage.MovementLine{{ItemID: "OIL", Qty: 10, UOM: "Kg", BatchID: "B2"}},
		},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO mes_movement_lines"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mes_movements")).
		WithArgs(sqlmock.AnyArg(), "transfer-to-staging", "WO-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), 1, "OIL", 40.0, "Kg", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), 2, "OIL", 10.0, "Kg", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mes_movements")).
		WithArgs(sqlmock.AnyArg(), "transfer-to-staging", "WO-2", sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), 1, "OIL", 10.0, "Kg", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ids, err := s.CommitMovements(context.Background(), movements)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	_, err = uuid.Parse(ids[0])
	assert.NoError(t, err)
}

func TestStorage_CommitMovements_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO mes_movement_lines"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mes_movements")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := s.CommitMovements(context.Background(), []storage.Movement{{Kind: storage.KindScrap, OrderID: "WO-1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrLedger)
}

func TestStorage_CommitMovements_Empty(t *testing.T) {
	s, _ := newMockStorage(t)

	ids, err := s.CommitMovements(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
