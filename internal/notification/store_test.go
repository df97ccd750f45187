package notification

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStore_MarkRead_FirstWriterSetsReadAt(t *testing.T) {
	var gotQuery string
	var gotArgs []any
	db := &MockDB{
		ExecContextFunc: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			gotQuery = query
			gotArgs = args
			return MockResult{Affected: 1}, nil
		},
	}
	store := NewTestStore(db)

	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := store.MarkRead(context.Background(), "rec-1", at); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	if !strings.Contains(gotQuery, "state = $4") {
		t.Errorf("update must be guarded on the current state, got query %q", gotQuery)
	}
	if len(gotArgs) != 4 {
		t.Fatalf("expected 4 args, got %v", gotArgs)
	}
	if gotArgs[0] != StateRead || gotArgs[1] != at || gotArgs[2] != "rec-1" || gotArgs[3] != StatePending {
		t.Errorf("unexpected update args %v", gotArgs)
	}
}

func TestStore_MarkRead_ZeroAffected(t *testing.T) {
	tests := []struct {
		name        string
		lookupScan  func(dest ...any) error
		expectedErr error
	}{
		{
			name: "already read is a success no-op",
			lookupScan: func(dest ...any) error {
				*(dest[0].(*DeliveryState)) = StateRead
				return nil
			},
			expectedErr: nil,
		},
		{
			name: "unknown id reports not found",
			lookupScan: func(dest ...any) error {
				return sql.ErrNoRows
			},
			expectedErr: ErrRecipientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writes := 0
			db := &MockDB{
				ExecContextFunc: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
					writes++
					// Guard did not match: the row is untouched.
					return MockResult{Affected: 0}, nil
				},
				QueryRowContextFunc: func(ctx context.Context, query string, args ...any) Row {
					return &MockRow{ScanFunc: tt.lookupScan}
				},
			}
			store := NewTestStore(db)

			err := store.MarkRead(context.Background(), "rec-1", time.Now().UTC())
			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected %v, got %v", tt.expectedErr, err)
			}
			if writes != 1 {
				t.Errorf("a zero-affected update must not retry the write, got %d writes", writes)
			}
		})
	}
}

func TestStore_MarkRead_RepeatedCallKeepsReadAtStable(t *testing.T) {
	// After the first transition the guarded update never matches again,
	// so later calls succeed without issuing a second read_at write.
	updates := []time.Time{}
	affected := int64(1)
	db := &MockDB{
		ExecContextFunc: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			res := MockResult{Affected: affected}
			if affected > 0 {
				updates = append(updates, args[1].(time.Time))
			}
			affected = 0
			return res, nil
		},
		QueryRowContextFunc: func(ctx context.Context, query string, args ...any) Row {
			return &MockRow{ScanFunc: func(dest ...any) error {
				*(dest[0].(*DeliveryState)) = StateRead
				return nil
			}}
		},
	}
	store := NewTestStore(db)

	first := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := store.MarkRead(context.Background(), "rec-1", first); err != nil {
		t.Fatalf("first MarkRead: %v", err)
	}
	if err := store.MarkRead(context.Background(), "rec-1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}

	if len(updates) != 1 || !updates[0].Equal(first) {
		t.Errorf("only the first call may write read_at, recorded %v", updates)
	}
}

func listRow(id string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		return nil
	}
}

func TestStore_List_NewestFirstOrder(t *testing.T) {
	var gotQuery string
	db := &MockDB{
		QueryContextFunc: func(ctx context.Context, query string, args ...any) (Rows, error) {
			gotQuery = query
			return &MockRows{ScanFuncs: []func(dest ...any) error{
				listRow("n3"), listRow("n2"), listRow("n1"),
			}}, nil
		},
	}
	store := NewTestStore(db)

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if !strings.Contains(gotQuery, "ORDER BY n.created_at DESC, n.seq DESC") {
		t.Errorf("listing must order newest first with the seq tie-break, got query %q", gotQuery)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"n3", "n2", "n1"} {
		if items[i].ID != want {
			t.Errorf("item %d: expected %s, got %s", i, want, items[i].ID)
		}
	}
}

func TestStore_CreateBroadcast_AbortsWholeTransactionOnFailure(t *testing.T) {
	committed := false
	rolledBack := false
	db := &MockDB{
		BeginTxFunc: func(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
			return &MockTx{
				ExecContextFunc: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
					if strings.Contains(query, "notification_recipients") {
						return nil, errors.New("connection reset")
					}
					return MockResult{Affected: 1}, nil
				},
				CommitFunc: func() error {
					committed = true
					return nil
				},
				RollbackFunc: func() error {
					rolledBack = true
					return nil
				},
			}, nil
		},
	}
	store := NewTestStore(db)

	b := &Broadcast{
		Notification: Notification{ID: "n1", Title: "t", Body: "b", Category: "alert"},
		BaseIDs:      []string{"base-a"},
		Deliveries:   []RecipientDelivery{{ID: "d1", NotificationID: "n1", UserID: "u1", State: StatePending}},
	}
	err := store.CreateBroadcast(context.Background(), b)

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a PersistenceError, got %v", err)
	}
	if committed {
		t.Error("a failed broadcast must not commit")
	}
	if !rolledBack {
		t.Error("a failed broadcast must roll back")
	}
}

func TestStore_Detail_NotFound(t *testing.T) {
	store := NewTestStore(&MockDB{})

	_, err := store.Detail(context.Background(), "missing")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}
