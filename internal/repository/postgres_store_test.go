package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"quotadrop/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("невыполненные ожидания: %v", err)
		}
		db.Close()
	})

	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresStore_Create(t *testing.T) {
	s, mock := newMockStore(t)
	body := []byte(`{"id":"f1"}`)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO records")).
		WithArgs(KindFile, "f1", body).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	v, err := s.Create(context.Background(), KindFile, "f1", body)
	if err != nil || v != 1 {
		t.Fatalf("Create = %d, %v", v, err)
	}
}

func TestPostgresStore_CreateDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO records")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := s.Create(context.Background(), KindLink, "l1", []byte(`{}`))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("ожидался ErrAlreadyExists, получено %v", err)
	}
}

func TestPostgresStore_CreateTransportError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO records")).
		WillReturnError(errors.New("connection refused"))

	_, err := s.Create(context.Background(), KindLink, "l1", []byte(`{}`))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("ожидался ErrStoreUnavailable, получено %v", err)
	}
}

func TestPostgresStore_Read(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body, version FROM records")).
		WithArgs(KindFile, "f1").
		WillReturnRows(sqlmock.NewRows([]string{"body", "version"}).AddRow([]byte(`{"limit":2}`), 7))

	body, v, err := s.Read(context.Background(), KindFile, "f1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(body) != `{"limit":2}` || v != 7 {
		t.Errorf("Read = %s, %d", body, v)
	}
}

func TestPostgresStore_ReadNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body, version FROM records")).
		WithArgs(KindFile, "missing").
		WillReturnRows(sqlmock.NewRows([]string{"body", "version"}))

	_, _, err := s.Read(context.Background(), KindFile, "missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("ожидался ErrRecordNotFound, получено %v", err)
	}
}

func TestPostgresStore_ConditionalReplace(t *testing.T) {
	body := []byte(`{"downloaded":1}`)

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    int64
		wantErr error
	}{
		{
			name: "version matches",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE records")).
					WithArgs(body, KindFile, "f1", int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
			},
			want: 4,
		},
		{
			name: "version changed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE records")).
					WithArgs(body, KindFile, "f1", int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"version"}))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
					WithArgs(KindFile, "f1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: ErrVersionConflict,
		},
		{
			name: "record missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE records")).
					WithArgs(body, KindFile, "f1", int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"version"}))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
					WithArgs(KindFile, "f1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "transport error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE records")).
					WillReturnError(errors.New("broken pipe"))
			},
			wantErr: domain.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setup(mock)

			v, err := s.ConditionalReplace(context.Background(), KindFile, "f1", body, 3)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ожидался %v, получено %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || v != tt.want {
				t.Fatalf("ConditionalReplace = %d, %v; ожидалось %d", v, err, tt.want)
			}
		})
	}
}

func TestPostgresStore_ListIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM records")).
		WithArgs(KindLink).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("l1").AddRow("l2"))

	ids, err := s.ListIDs(context.Background(), KindLink)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "l1" || ids[1] != "l2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestPostgresStore_WithLedger(t *testing.T) {
	s, mock := newMockStore(t)
	ledger := NewLedger(s)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body, version FROM records")).
		WithArgs(KindFile, "f1").
		WillReturnRows(sqlmock.NewRows([]string{"body", "version"}).
			AddRow([]byte(`{"id":"f1","link_id":"l1","limit":2,"downloaded":1}`), 5))

	file, err := ledger.GetFile(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if file.Version != 5 || file.Downloaded != 1 || file.Limit != 2 || file.LinkID != "l1" {
		t.Errorf("file = %+v", file)
	}
}
