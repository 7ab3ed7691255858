// Package storetest is a conformance suite for LedgerStore
// implementations. Each backend's tests call Run with a factory for a
// fresh, empty store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceid/attendance-engine/attendance"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) attendance.LedgerStore

// Run exercises the LedgerStore contract against the factory's stores.
func Run(t *testing.T, newStore Factory) {
	day := attendance.NewDay(2025, 3, 10)
	otherDay := attendance.NewDay(2025, 3, 11)

	openRec := func(id, name string, in attendance.ClockTime) attendance.Record {
		return attendance.Record{
			EmployeeID: id,
			Name:       name,
			CheckIn:    in,
			Status:     attendance.StatusOnTime,
		}
	}

	t.Run("EnsureDay_Idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.EnsureDay(ctx, day))
		require.NoError(t, s.EnsureDay(ctx, day))

		records, skipped, err := s.LoadDay(ctx, day)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Empty(t, skipped)
	})

	t.Run("LoadDay_MissingDay_EmptyNotError", func(t *testing.T) {
		s := newStore(t)

		records, skipped, err := s.LoadDay(context.Background(), day)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Empty(t, skipped)
	})

	t.Run("AppendFindClose_Roundtrip", func(t *testing.T) {
		// GIVEN: An appended open record
		// WHEN: It is found and then closed
		// THEN: The closed record carries the check-out and the suffix

		s := newStore(t)
		ctx := context.Background()

		in := attendance.MustClockTime(9, 5, 0)
		require.NoError(t, s.AppendCheckIn(ctx, day, openRec("emp-1", "An", in)))

		open, err := s.FindOpen(ctx, day, "emp-1")
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, in, open.CheckIn)
		assert.True(t, open.Open())

		out := attendance.MustClockTime(17, 30, 0)
		closed, err := s.CloseCheckOut(ctx, day, "emp-1", out, "Work duration: 08:25:00")
		require.NoError(t, err)
		require.NotNil(t, closed.CheckOut)
		assert.Equal(t, out, *closed.CheckOut)
		assert.Contains(t, closed.Comments, "Work duration: 08:25:00")

		// Idempotence: nothing open remains after the close.
		open, err = s.FindOpen(ctx, day, "emp-1")
		require.NoError(t, err)
		assert.Nil(t, open)
	})

	t.Run("AppendCheckIn_DuplicateOpen_Rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.AppendCheckIn(ctx, day, openRec("emp-1", "An", attendance.MustClockTime(9, 0, 0))))

		err := s.AppendCheckIn(ctx, day, openRec("emp-1", "An", attendance.MustClockTime(9, 1, 0)))
		assert.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)
	})

	t.Run("AppendCheckIn_AfterClose_Allowed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.AppendCheckIn(ctx, day, openRec("emp-1", "An", attendance.MustClockTime(9, 0, 0))))
		_, err := s.CloseCheckOut(ctx, day, "emp-1", attendance.MustClockTime(12, 0, 0), "")
		require.NoError(t, err)

		// A second shift on the same day is legal once the first closed.
		require.NoError(t, s.AppendCheckIn(ctx, day, openRec("emp-1", "An", attendance.MustClockTime(13, 0, 0))))

		records, _, err := s.LoadDay(ctx, day)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("CloseCheckOut_NothingOpen_Rejected", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CloseCheckOut(context.Background(), day, "emp-1", attendance.MustClockTime(17, 0, 0), "")
		assert.ErrorIs(t, err, attendance.ErrNoOpenCheckIn)
	})

	t.Run("LoadDay_InsertionOrderPreserved", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ids := []string{"emp-3", "emp-1", "emp-2"}
		for i, id := range ids {
			require.NoError(t, s.AppendCheckIn(ctx, day, openRec(id, "N"+id, attendance.MustClockTime(9, i, 0))))
		}

		records, _, err := s.LoadDay(ctx, day)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, id := range ids {
			assert.Equal(t, id, records[i].EmployeeID)
		}
	})

	t.Run("Days_IndependentAndOrdered", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.AppendCheckIn(ctx, otherDay, openRec("emp-1", "An", attendance.MustClockTime(9, 0, 0))))
		require.NoError(t, s.AppendCheckIn(ctx, day, openRec("emp-1", "An", attendance.MustClockTime(9, 0, 0))))

		// The open record on one day does not block the other day.
		open, err := s.FindOpen(ctx, day, "emp-1")
		require.NoError(t, err)
		require.NotNil(t, open)

		days, err := s.Days(ctx, day, otherDay)
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, day, days[0])
		assert.Equal(t, otherDay, days[1])

		// Range filtering excludes days outside [from, to].
		days, err = s.Days(ctx, otherDay, otherDay)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, otherDay, days[0])
	})
}
