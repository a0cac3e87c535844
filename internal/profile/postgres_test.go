package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreCreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGStore(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := &Profile{
		UserID:      "u1",
		FirstName:   "Sam",
		LastName:    "Okoro",
		Email:       "sam@example.com",
		Role:        RoleVolunteer,
		Permissions: DefaultPermissions(RoleVolunteer),
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec("insert into profiles").
		WithArgs("u1", "Sam", "Okoro", "sam@example.com", "", "volunteer",
			sqlmock.AnyArg(), StatusActive, false, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{
		"user_id", "first_name", "last_name", "email", "phone",
		"role", "permissions", "status", "email_verified", "created_at", "updated_at",
	}).AddRow("u1", "Sam", "Okoro", "sam@example.com", "",
		"volunteer", []byte(`["volunteer","read_programs","update_own_profile"]`),
		StatusActive, false, now, now)

	mock.ExpectQuery("select user_id, first_name").WithArgs("u1").WillReturnRows(rows)

	got, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != RoleVolunteer {
		t.Fatalf("role=%q", got.Role)
	}
	if !got.HasPermission("read_programs") {
		t.Fatalf("permissions=%v", got.Permissions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select user_id, first_name").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	store := NewPGStore(db)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
