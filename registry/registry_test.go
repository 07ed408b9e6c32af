package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/moyoez/speeder2raw-web/faults"
	"github.com/moyoez/speeder2raw-web/notify"
	"github.com/moyoez/speeder2raw-web/store"
	"github.com/moyoez/speeder2raw-web/types"
)

type fakeGateway struct {
	mu        sync.Mutex
	restarts  int
	outDir    string
	genErr    error
	generated []string
}

func (g *fakeGateway) NotifyChanged() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restarts++
}

func (g *fakeGateway) GenerateClientBundle(_ context.Context, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generated = append(g.generated, name)
	if g.genErr != nil {
		return "", g.genErr
	}
	return filepath.Join(g.outDir, name), nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeGateway, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "config.json"))
	gw := &fakeGateway{outDir: filepath.Join(dir, "client_out")}
	return New(st, gw), gw, st
}

func mustCreate(t *testing.T, r *Registry, name string) types.Group {
	t.Helper()
	g, err := r.Create(types.GroupInput{Name: name})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", name, err)
	}
	return g
}

func TestCreateAppliesDefaultsAndPorts(t *testing.T) {
	r, gw, _ := newTestRegistry(t)

	g := mustCreate(t, r, "A")
	want := types.Group{
		Name:         "A",
		SpeederPort:  10001,
		Udp2rawPort:  10002,
		FecConfig:    DefaultFecConfig,
		Mode:         DefaultMode,
		Timeout:      DefaultTimeout,
		Queue:        DefaultQueue,
		Interval:     DefaultInterval,
		Udp2rawExtra: DefaultUdp2rawExtra,
	}
	if g != want {
		t.Errorf("got %+v, want %+v", g, want)
	}
	if gw.restarts != 1 {
		t.Errorf("expected one restart, got %d", gw.restarts)
	}
}

func TestCreateKeepsCallerFields(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	g, err := r.Create(types.GroupInput{
		Name:         "B",
		SpeederPort:  1, // ignored
		Udp2rawPort:  2, // ignored
		FecConfig:    "20:10",
		Mode:         1,
		Timeout:      8,
		Queue:        40,
		Interval:     10,
		Udp2rawExtra: "--cipher-mode none",
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.SpeederPort != 10001 || g.Udp2rawPort != 10002 {
		t.Errorf("ports must come from the allocator, got (%d, %d)", g.SpeederPort, g.Udp2rawPort)
	}
	if g.FecConfig != "20:10" || g.Mode != 1 || g.Timeout != 8 || g.Queue != 40 || g.Interval != 10 || g.Udp2rawExtra != "--cipher-mode none" {
		t.Errorf("caller fields lost: %+v", g)
	}
}

func TestCreatePortsArePairwiseDisjoint(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	used := map[int]bool{}
	for i := 0; i < 8; i++ {
		g := mustCreate(t, r, "g")
		if used[g.SpeederPort] || used[g.Udp2rawPort] {
			t.Fatalf("port reused: %+v", g)
		}
		used[g.SpeederPort], used[g.Udp2rawPort] = true, true
		if g.SpeederPort != 10001+10*i || g.Udp2rawPort != 10002+10*i {
			t.Fatalf("allocation %d out of sequence: %+v", i, g)
		}
	}
}

func TestScenarioCreateCreateDelete(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	a := mustCreate(t, r, "A")
	b := mustCreate(t, r, "B")
	if a.SpeederPort != 10001 || a.Udp2rawPort != 10002 {
		t.Errorf("A got (%d, %d)", a.SpeederPort, a.Udp2rawPort)
	}
	if b.SpeederPort != 10011 || b.Udp2rawPort != 10012 {
		t.Errorf("B got (%d, %d)", b.SpeederPort, b.Udp2rawPort)
	}

	if err := r.Delete(0); err != nil {
		t.Fatal(err)
	}
	groups, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0] != b {
		t.Errorf("expected only B with its ports, got %+v", groups)
	}
}

func TestUpdateNeverChangesPorts(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	mustCreate(t, r, "A")
	mustCreate(t, r, "B")

	g, err := r.Update(1, types.GroupInput{
		Name:        "B2",
		SpeederPort: 10001,
		Udp2rawPort: 10002,
		FecConfig:   "1:1",
		Timeout:     6,
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.SpeederPort != 10011 || g.Udp2rawPort != 10012 {
		t.Errorf("ports changed: %+v", g)
	}
	if g.Name != "B2" || g.FecConfig != "1:1" || g.Timeout != 6 {
		t.Errorf("fields not replaced: %+v", g)
	}
	// replacement is wholesale, no defaults are filled in
	if g.Queue != 0 || g.Udp2rawExtra != "" {
		t.Errorf("update should not apply create defaults: %+v", g)
	}

	groups, _ := r.List()
	if groups[1] != g {
		t.Errorf("stored group %+v differs from returned %+v", groups[1], g)
	}
	if gw.restarts != 3 {
		t.Errorf("expected 3 restarts, got %d", gw.restarts)
	}
}

func TestDeletePreservesOrder(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	for _, name := range []string{"A", "B", "C", "D"} {
		mustCreate(t, r, name)
	}
	if err := r.Delete(1); err != nil {
		t.Fatal(err)
	}
	groups, _ := r.List()
	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if len(names) != 3 || names[0] != "A" || names[1] != "C" || names[2] != "D" {
		t.Errorf("unexpected order %v", names)
	}
}

func TestOutOfRangeIndex(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	mustCreate(t, r, "A")
	restarts := gw.restarts

	for _, index := range []int{-1, 1, 100} {
		if _, err := r.Update(index, types.GroupInput{Name: "x"}); !faults.Is(err, faults.KindNotFound) {
			t.Errorf("Update(%d): expected not found, got %v", index, err)
		}
		if err := r.Delete(index); !faults.Is(err, faults.KindNotFound) {
			t.Errorf("Delete(%d): expected not found, got %v", index, err)
		}
		if _, err := r.ExportClientBundle(context.Background(), index); !faults.Is(err, faults.KindNotFound) {
			t.Errorf("ExportClientBundle(%d): expected not found, got %v", index, err)
		}
		if _, _, err := r.Get(index); !faults.Is(err, faults.KindNotFound) {
			t.Errorf("Get(%d): expected not found, got %v", index, err)
		}
	}
	if gw.restarts != restarts {
		t.Error("failed operations must not trigger a restart")
	}
	groups, _ := r.List()
	if len(groups) != 1 {
		t.Errorf("failed operations must not change the list: %+v", groups)
	}
}

func TestUpdateGlobal(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "A")

	global := types.GlobalConfig{RemoteHost: "203.0.113.7", Password: "s3cret"}
	if err := r.UpdateGlobal(global); err != nil {
		t.Fatal(err)
	}
	doc, err := r.Document()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Global != global {
		t.Errorf("global not replaced: %+v", doc.Global)
	}
	if len(doc.Groups) != 1 {
		t.Errorf("groups must survive a global update: %+v", doc.Groups)
	}
}

func TestReadErrorPropagates(t *testing.T) {
	r, gw, st := newTestRegistry(t)
	if err := os.WriteFile(st.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create(types.GroupInput{Name: "A"}); !faults.Is(err, faults.KindConfigRead) {
		t.Errorf("expected config read fault, got %v", err)
	}
	if gw.restarts != 0 {
		t.Error("no restart when nothing was written")
	}
}

func TestExportClientBundle(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	mustCreate(t, r, "tokyo")

	out := filepath.Join(gw.outDir, "tokyo")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "client.conf"), []byte("remote=1.2.3.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := r.ExportClientBundle(context.Background(), 0)
	if err != nil {
		t.Fatalf("ExportClientBundle failed: %v", err)
	}
	if b.FileName() != "tokyo_client.zip" {
		t.Errorf("unexpected file name %s", b.FileName())
	}

	var buf bytes.Buffer
	if err := b.WriteZip(&buf); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "client.conf" {
		t.Errorf("unexpected archive entries: %v", zr.File)
	}
}

func TestExportGenerationFailure(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	mustCreate(t, r, "tokyo")
	gw.genErr = errors.New("generateClient.sh: exit status 1")

	_, err := r.ExportClientBundle(context.Background(), 0)
	if !faults.Is(err, faults.KindGeneration) {
		t.Errorf("expected generation fault, got %v", err)
	}
	if errors.Is(err, ErrBundleMissing) {
		t.Error("generator failure is not a missing bundle")
	}
}

func TestExportMissingOutput(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "tokyo")

	_, err := r.ExportClientBundle(context.Background(), 0)
	if !faults.Is(err, faults.KindGeneration) {
		t.Errorf("expected generation fault for missing output, got %v", err)
	}
	if !errors.Is(err, ErrBundleMissing) {
		t.Errorf("expected ErrBundleMissing in chain, got %v", err)
	}
}

// stuckHub blocks every broadcast until release is closed.
type stuckHub struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *stuckHub) Broadcast(*types.Notification) {
	h.once.Do(func() { close(h.entered) })
	<-h.release
}

func TestBlockedEventDeliveryDoesNotHoldRegistry(t *testing.T) {
	r, gw, _ := newTestRegistry(t)
	mustCreate(t, r, "A")

	hub := &stuckHub{entered: make(chan struct{}), release: make(chan struct{})}
	notify.SetHub(hub)
	defer notify.SetHub(nil)

	created := make(chan error, 1)
	go func() {
		_, err := r.Create(types.GroupInput{Name: "B"})
		created <- err
	}()
	select {
	case <-hub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("Create never published its event")
	}

	listed := make(chan []types.Group, 1)
	go func() {
		groups, err := r.List()
		if err != nil {
			t.Errorf("List failed: %v", err)
		}
		listed <- groups
	}()
	select {
	case groups := <-listed:
		if len(groups) != 2 {
			t.Errorf("B is persisted before its event is sent, got %+v", groups)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("List blocked behind an undelivered event")
	}

	deleted := make(chan error, 1)
	go func() { deleted <- r.Delete(0) }()
	// Delete publishes too; it must have persisted before reaching the stuck hub
	deadline := time.Now().Add(2 * time.Second)
	for {
		groups, err := r.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(groups) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Delete blocked behind an undelivered event")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(hub.release)
	if err := <-created; err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.restarts != 3 {
		t.Errorf("expected 3 restarts, got %d", gw.restarts)
	}
}
