package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/platform/migrations"
	"github.com/R3E-Network/framestore/manifest"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := New(sqlx.NewDb(db, "postgres"))
	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

var frameCols = []string{"id", "user_id", "title", "description", "image_url", "button1_label",
	"button1_target", "json_full", "likes", "current_version_id", "created_at", "updated_at"}

func TestCreateFrameInsertsManifestJSON(t *testing.T) {
	store, mock := newMockStore(t)

	f := frame.Frame{UserID: "u1"}
	f.Apply(&manifest.Manifest{Version: manifest.Text("vNext"), Title: manifest.Text("Hello")})

	mock.ExpectExec("INSERT INTO frames").
		WithArgs(sqlmock.AnyArg(), "u1", "Hello", "", "", "", "",
			[]byte(`{"fc:frame":"vNext","og:title":"Hello"}`), 0, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.CreateFrame(context.Background(), f)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFrameMapsRows(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM frames WHERE id = \$1`).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(frameCols).
			AddRow("f1", "u1", "T", "D", "https://example.com/i.png", "Go", "", []byte(`{"fc:frame":"vNext","fc:frame:button:1":"Go"}`), 4, "v1", now, now))

	f, err := store.GetFrame(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 4, f.Likes)
	assert.Equal(t, "v1", f.CurrentVersionID)
	assert.Equal(t, "vNext", f.Manifest.Version.Value)
	assert.Equal(t, "Go", f.Manifest.Buttons[0].Label.Value)

	mock.ExpectQuery(`FROM frames WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = store.GetFrame(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	_, err := store.CreateUser(context.Background(), user.User{WalletAddress: "0xabc"})
	assert.True(t, errors.Is(err, storage.ErrConflict), "got %v", err)
}

func TestAddLike(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO likes").WithArgs("f1", "u2", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE frames SET likes = likes \+ 1`).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"likes"}).AddRow(3))
	mock.ExpectCommit()

	n, err := store.AddLike(context.Background(), "f1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO likes").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err = store.AddLike(context.Background(), "f1", "u2")
	assert.True(t, errors.Is(err, storage.ErrConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveLikeMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM likes").WithArgs("f1", "u2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.RemoveLike(context.Background(), "f1", "u2")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersionNumbersAfterHead(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM frames WHERE id = \$1 FOR UPDATE`).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("f1"))
	mock.ExpectQuery(`COALESCE\(MAX\(version_number\), 0\)`).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"max_number", "current_id"}).AddRow(2, "v2"))
	mock.ExpectExec("UPDATE frame_versions SET is_current = FALSE").WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO frame_versions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := store.CreateVersion(context.Background(), frame.NewVersion("f1", &manifest.Manifest{}))
	require.NoError(t, err)
	assert.Equal(t, 3, v.Number)
	assert.Equal(t, "v2", v.ParentVersionID)
	assert.True(t, v.IsCurrent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersionUnknownFrame(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.CreateVersion(context.Background(), frame.NewVersion("nope", &manifest.Manifest{}))
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTemplatesBuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "creator_id", "name", "description", "category", "tags", "preview_image",
		"template_data", "is_public", "is_featured", "price_cents", "downloads", "rating", "created_at"}
	mock.ExpectQuery(`WHERE is_public = TRUE AND category = \$1 AND is_featured = TRUE\s+ORDER BY downloads DESC`).
		WithArgs("nft").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("t1", "u1", "Mint", "", "nft", []byte("{mint,nft}"), "https://example.com/p.png",
				[]byte(`{"fc:frame":"vNext"}`), true, true, 0, 12, 4.5, now))

	list, err := store.ListTemplates(context.Background(), template.Filter{Category: "nft", FeaturedOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"mint", "nft"}, list[0].Tags)
	assert.Equal(t, 12, list[0].Downloads)
	assert.Equal(t, "vNext", list[0].Manifest.Version.Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := migrations.Up(db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := New(db)
	u, err := store.CreateUser(ctx, user.User{WalletAddress: "0x" + time.Now().Format("20060102150405.000000000")})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	f := frame.Frame{UserID: u.ID}
	f.Apply(&manifest.Manifest{Version: manifest.Text("vNext"), Title: manifest.Text("Integration")})
	f, err = store.CreateFrame(ctx, f)
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	v, err := store.CreateVersion(ctx, frame.NewVersion(f.ID, &f.Manifest))
	if err != nil || v.Number != 1 {
		t.Fatalf("create version: %+v %v", v, err)
	}
	if n, err := store.AddLike(ctx, f.ID, u.ID); err != nil || n != 1 {
		t.Fatalf("add like: %d %v", n, err)
	}
	if err := store.DeleteFrame(ctx, f.ID); err != nil {
		t.Fatalf("delete frame: %v", err)
	}
}
