package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/cache"
	"github.com/jonwraymond/opsgate/internal/store"
)

type fakeSource struct {
	calls atomic.Int32
	areas []string
	err   error
}

func (f *fakeSource) Stats(_ context.Context, area string) (store.Stats, error) {
	f.calls.Add(1)
	f.areas = append(f.areas, area)
	if f.err != nil {
		return store.Stats{}, f.err
	}
	n := 10
	if area != "" {
		n = 3
	}
	return store.Stats{
		Count:    n,
		ByStatus: map[store.Status]int{store.StatusCompleted: n},
		ByArea:   map[string]int{},
	}, nil
}

func TestScope(t *testing.T) {
	tests := []struct {
		name    string
		id      *auth.Identity
		want    string
		wantErr error
	}{
		{"admin sees all", &auth.Identity{PermissionGroups: []string{store.GroupAdmin}, Area: "north"}, "", nil},
		{"viewer sees own area", &auth.Identity{PermissionGroups: []string{store.GroupDashboardView}, Area: "north"}, "north", nil},
		{"viewer without area", &auth.Identity{PermissionGroups: []string{store.GroupDashboardView}}, "", ErrNoArea},
		{"nil identity", nil, "", ErrNoArea},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Scope(tt.id)
			if got != tt.want || !errors.Is(err, tt.wantErr) {
				t.Errorf("Scope() = (%q, %v), want (%q, %v)", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestService_CachesPerScope(t *testing.T) {
	src := &fakeSource{}
	svc := New(src, cache.NewMemoryCache(cache.DefaultPolicy()), time.Minute)
	ctx := context.Background()
	viewer := &auth.Identity{PermissionGroups: []string{store.GroupDashboardView}, Area: "north"}
	admin := &auth.Identity{PermissionGroups: []string{store.GroupAdmin}}

	v, err := svc.For(ctx, viewer)
	if err != nil {
		t.Fatalf("For(viewer) error = %v", err)
	}
	if v.Scope != "north" || v.Count != 3 || v.Cached {
		t.Errorf("first For(viewer) = %+v", v)
	}

	v, _ = svc.For(ctx, viewer)
	if !v.Cached || v.Count != 3 {
		t.Errorf("second For(viewer) = %+v, want cached", v)
	}

	v, _ = svc.For(ctx, admin)
	if v.Scope != AllAreas || v.Count != 10 || v.Cached {
		t.Errorf("For(admin) = %+v", v)
	}

	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
	if src.areas[0] != "north" || src.areas[1] != "" {
		t.Errorf("source areas = %v", src.areas)
	}
}

func TestService_Invalidate(t *testing.T) {
	src := &fakeSource{}
	svc := New(src, cache.NewMemoryCache(cache.DefaultPolicy()), time.Minute)
	ctx := context.Background()
	viewer := &auth.Identity{Area: "north"}
	admin := &auth.Identity{PermissionGroups: []string{store.GroupAdmin}}

	_, _ = svc.For(ctx, viewer)
	_, _ = svc.For(ctx, admin)
	if err := svc.Invalidate(ctx, "north"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	_, _ = svc.For(ctx, viewer)
	_, _ = svc.For(ctx, admin)

	if got := src.calls.Load(); got != 4 {
		t.Errorf("source calls = %d, want 4", got)
	}
}

func TestService_NoCache(t *testing.T) {
	src := &fakeSource{}
	svc := New(src, nil, time.Minute)
	id := &auth.Identity{Area: "south"}

	for range 3 {
		v, err := svc.For(context.Background(), id)
		if err != nil || v.Cached {
			t.Fatalf("For() = (%+v, %v)", v, err)
		}
	}
	if got := src.calls.Load(); got != 3 {
		t.Errorf("source calls = %d, want 3", got)
	}
	if err := svc.Invalidate(context.Background(), "south"); err != nil {
		t.Errorf("Invalidate() without cache error = %v", err)
	}
}

func TestService_SourceError(t *testing.T) {
	boom := errors.New("db down")
	src := &fakeSource{err: boom}
	svc := New(src, cache.NewMemoryCache(cache.DefaultPolicy()), time.Minute)
	id := &auth.Identity{Area: "north"}

	for range 2 {
		if _, err := svc.For(context.Background(), id); !errors.Is(err, boom) {
			t.Errorf("For() error = %v, want %v", err, boom)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("errors should not be cached: calls = %d, want 2", got)
	}
}

func TestService_RejectsAreaWithSeparator(t *testing.T) {
	svc := New(&fakeSource{}, cache.NewMemoryCache(cache.DefaultPolicy()), time.Minute)
	if _, err := svc.For(context.Background(), &auth.Identity{Area: "a:b"}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("For() error = %v, want cache.ErrInvalidKey", err)
	}
}
