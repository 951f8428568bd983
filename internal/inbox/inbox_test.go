package inbox_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/app/storage/testutil"
	"github.com/oddbloke/steelersconfig/internal/inbox"
)

func TestInbox(t *testing.T) {
	db, st, _ := testutil.New()
	defer db.Close()
	ctx := context.Background()
	t.Run("should show animations by default", func(t *testing.T) {
		testutil.TruncateTables(db)
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		if assert.NoError(t, err) {
			assert.True(t, in.ShowAnimations())
		}
	})
	t.Run("should apply received values", func(t *testing.T) {
		cases := []struct {
			name string
			in   any
			want bool
		}{
			{"one", int32(1), true},
			{"zero", int32(0), false},
			{"other number", int32(2), false},
			{"string", "1", false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				testutil.TruncateTables(db)
				in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
				require.NoError(t, err)
				err = in.Receive(ctx, app.Dictionary{0: tc.in})
				if assert.NoError(t, err) {
					assert.Equal(t, tc.want, in.ShowAnimations())
				}
			})
		}
	})
	t.Run("should keep value when key missing", func(t *testing.T) {
		testutil.TruncateTables(db)
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		require.NoError(t, in.Receive(ctx, app.Dictionary{0: int32(0)}))
		err = in.Receive(ctx, app.Dictionary{7: int32(1)})
		if assert.NoError(t, err) {
			assert.False(t, in.ShowAnimations())
		}
	})
	t.Run("should restore persisted value", func(t *testing.T) {
		testutil.TruncateTables(db)
		in1, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		require.NoError(t, in1.Receive(ctx, app.Dictionary{0: int32(0)}))
		in2, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		if assert.NoError(t, err) {
			assert.False(t, in2.ShowAnimations())
		}
	})
	t.Run("should persist even without animations key", func(t *testing.T) {
		testutil.TruncateTables(db)
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		require.NoError(t, in.Receive(ctx, app.Dictionary{}))
		oo, err := st.ListSettings(ctx)
		if assert.NoError(t, err) {
			assert.Len(t, oo, 1)
		}
	})
	t.Run("should require animations message key", func(t *testing.T) {
		_, err := inbox.New(ctx, st, app.MessageKeys{})
		assert.Error(t, err)
	})
}

func TestServeHTTP(t *testing.T) {
	db, st, _ := testutil.New()
	defer db.Close()
	ctx := context.Background()
	t.Run("should acknowledge valid message", func(t *testing.T) {
		testutil.TruncateTables(db)
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/inbox", strings.NewReader(`{"transaction_id":4,"dictionary":{"0":0}}`))
		rec := httptest.NewRecorder()
		in.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"transaction_id":4}`, rec.Body.String())
		assert.False(t, in.ShowAnimations())
	})
	t.Run("should reject malformed message", func(t *testing.T) {
		testutil.TruncateTables(db)
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/inbox", strings.NewReader(`{"transaction_id":4,"dictionary":{"0":null}}`))
		rec := httptest.NewRecorder()
		in.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, in.ShowAnimations())
	})
	t.Run("should reject other methods", func(t *testing.T) {
		in, err := inbox.New(ctx, st, app.DefaultMessageKeys)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/inbox", nil)
		rec := httptest.NewRecorder()
		in.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
