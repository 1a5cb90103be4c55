package frames

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
	"github.com/R3E-Network/framestore/pkg/testutil"
)

type recordingNotifier struct {
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) (notification.Notification, error) {
	r.sent = append(r.sent, n)
	return n, nil
}

func newService(t *testing.T) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	notifier := &recordingNotifier{}
	return New(store, store, notifier, logger.Discard()), store, notifier
}

func TestValidate(t *testing.T) {
	svc, _, _ := newService(t)

	result := svc.Validate("not an object")
	if result.IsValid || len(result.Errors) != 1 || result.Errors[0] != "Frame must be an object" {
		t.Fatalf("unexpected result %+v", result)
	}

	raw := map[string]any{}
	for k, v := range testutil.ValidWire() {
		raw[k] = v
	}
	if result := svc.Validate(raw); !result.IsValid {
		t.Fatalf("expected valid manifest, got %v", result.Errors)
	}
}

func TestCreateStoresFirstVersion(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, "u1", testutil.ValidManifest(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Title != "Example Frame" || f.Button1Label != "Start" {
		t.Fatalf("listing columns not populated: %+v", f)
	}
	if f.CurrentVersionID == "" {
		t.Fatalf("expected current version id")
	}

	versions, err := svc.ListVersions(ctx, f.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Number != 1 || !versions[0].IsCurrent || versions[0].ID != f.CurrentVersionID {
		t.Fatalf("unexpected versions %+v", versions)
	}
}

func TestCreateRejectsInvalidManifest(t *testing.T) {
	svc, store, _ := newService(t)

	_, err := svc.Create(context.Background(), "u1", testutil.ValidManifest(t, "fc:frame:button:1", ""))
	var se *svcerrors.ServiceError
	if !errors.As(err, &se) || se.Code != svcerrors.CodeInvalidManifest {
		t.Fatalf("expected invalid manifest error, got %v", err)
	}
	problems, _ := se.Details["errors"].([]string)
	if len(problems) == 0 {
		t.Fatalf("expected problem list in details, got %+v", se.Details)
	}

	list, _ := store.ListFrames(context.Background(), 10, 0)
	if len(list) != 0 {
		t.Fatalf("invalid frame was stored")
	}

	if _, err := svc.Create(context.Background(), "", testutil.ValidManifest(t)); !svcerrors.IsCode(err, svcerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestListPaging(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		if _, err := svc.Create(ctx, "u1", testutil.ValidManifest(t, "og:title", fmt.Sprintf("Frame %d", i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 20 || page[0].Title != "Frame 24" {
		t.Fatalf("expected 20 newest first, got %d starting %q", len(page), page[0].Title)
	}

	page, err = svc.List(ctx, 500, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 5 || page[4].Title != "Frame 0" {
		t.Fatalf("unexpected second page %d", len(page))
	}

	if _, err := svc.List(ctx, 10, -1); err == nil {
		t.Fatalf("expected negative offset to fail")
	}

	mine, err := svc.ListByUser(ctx, "nobody")
	if err != nil || mine == nil || len(mine) != 0 {
		t.Fatalf("expected empty list, got %v %v", mine, err)
	}
}

func TestUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", testutil.ValidManifest(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	renamed := testutil.ValidManifest(t, "og:title", "Renamed")
	if _, err := svc.Update(ctx, "intruder", f.ID, renamed); !svcerrors.IsCode(err, svcerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := svc.Update(ctx, "owner", f.ID, renamed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" || updated.CurrentVersionID == f.CurrentVersionID {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := svc.Delete(ctx, "intruder", f.ID); !svcerrors.IsCode(err, svcerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "owner", f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, f.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", testutil.ValidManifest(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.ToggleLike(ctx, "fan", f.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !res.Liked || res.Likes != 1 {
		t.Fatalf("unexpected like result %+v", res)
	}

	events, _ := store.ListEvents(ctx, f.ID, f.CreatedAt)
	if len(events) != 1 || events[0].Type != analytics.EventLike {
		t.Fatalf("expected like event, got %+v", events)
	}

	res, err = svc.ToggleLike(ctx, "fan", f.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if res.Liked || res.Likes != 0 {
		t.Fatalf("unexpected unlike result %+v", res)
	}

	if _, err := svc.ToggleLike(ctx, "fan", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleLikeMilestones(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", testutil.ValidManifest(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 1; i <= 50; i++ {
		if _, err := svc.ToggleLike(ctx, fmt.Sprintf("fan-%d", i), f.ID); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected milestones at 10 and 50, got %d", len(notifier.sent))
	}
	for i, want := range []string{"10 likes!", "50 likes!"} {
		n := notifier.sent[i]
		if n.Title != want || n.UserID != "owner" || n.Type != notification.TypeMilestone || n.FrameID != f.ID {
			t.Fatalf("unexpected notification %+v", n)
		}
	}
}

func TestVersionsAndRestore(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	f, err := svc.Create(ctx, "owner", testutil.ValidManifest(t, "og:title", "One"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first := f.CurrentVersionID

	v2, err := svc.CreateVersion(ctx, "owner", f.ID, testutil.ValidManifest(t, "og:title", "Two"))
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if v2.Number != 2 || v2.ParentVersionID != first || !v2.IsCurrent {
		t.Fatalf("unexpected version %+v", v2)
	}

	got, _ := svc.Get(ctx, f.ID)
	if got.Title != "Two" || got.CurrentVersionID != v2.ID {
		t.Fatalf("frame did not follow version: %+v", got)
	}

	if _, err := svc.CreateVersion(ctx, "owner", f.ID, testutil.ValidManifest(t, "og:image", "nope")); !svcerrors.IsCode(err, svcerrors.CodeInvalidManifest) {
		t.Fatalf("expected invalid manifest, got %v", err)
	}
	if _, err := svc.SetCurrentVersion(ctx, "intruder", f.ID, first); !svcerrors.IsCode(err, svcerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	restored, err := svc.SetCurrentVersion(ctx, "owner", f.ID, first)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Number != 1 || !restored.IsCurrent {
		t.Fatalf("unexpected restored version %+v", restored)
	}
	got, _ = svc.Get(ctx, f.ID)
	if got.Title != "One" || got.CurrentVersionID != first {
		t.Fatalf("frame did not follow restore: %+v", got)
	}

	versions, _ := svc.ListVersions(ctx, f.ID)
	if len(versions) != 2 || versions[0].Number != 2 || versions[0].IsCurrent || !versions[1].IsCurrent {
		t.Fatalf("unexpected version list %+v", versions)
	}

	if _, err := svc.SetCurrentVersion(ctx, "owner", f.ID, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// failingStore fails the write steps that follow frame insertion.
type failingStore struct {
	*memory.Store
	failVersion bool
	failLink    bool
}

func (f *failingStore) CreateVersion(ctx context.Context, v frame.Version) (frame.Version, error) {
	if f.failVersion {
		return frame.Version{}, errors.New("version insert failed")
	}
	return f.Store.CreateVersion(ctx, v)
}

func (f *failingStore) UpdateFrame(ctx context.Context, fr frame.Frame) (frame.Frame, error) {
	if f.failLink {
		return frame.Frame{}, errors.New("frame update failed")
	}
	return f.Store.UpdateFrame(ctx, fr)
}

func TestCreateRemovesFrameWhenLaterWriteFails(t *testing.T) {
	tests := []struct {
		name  string
		store *failingStore
	}{
		{"version insert", &failingStore{Store: memory.New(), failVersion: true}},
		{"version link", &failingStore{Store: memory.New(), failLink: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := New(tt.store, tt.store.Store, nil, logger.Discard())

			if _, err := svc.Create(ctx, "u1", testutil.ValidManifest(t)); err == nil {
				t.Fatalf("expected create to fail")
			}
			frames, err := tt.store.ListFrames(ctx, 10, 0)
			if err != nil {
				t.Fatalf("list frames: %v", err)
			}
			if len(frames) != 0 {
				t.Fatalf("partially created frame left behind: %+v", frames)
			}
			if owned, _ := tt.store.ListFramesByUser(ctx, "u1"); len(owned) != 0 {
				t.Fatalf("partially created frame still listed for owner: %+v", owned)
			}
		})
	}
}
