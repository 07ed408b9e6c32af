// Package registry implements CRUD over the ordered list of tunnel groups.
//
// Groups are addressed by their index in the list. Deleting a group shifts every later index down
// by one, so callers must not reuse an index across mutating calls.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/moyoez/speeder2raw-web/bundle"
	"github.com/moyoez/speeder2raw-web/faults"
	"github.com/moyoez/speeder2raw-web/notify"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

// Group defaults applied by Create when the caller leaves a field at its zero value.
const (
	DefaultFecConfig    = "1:1,2:1,10:3,20:5"
	DefaultMode         = 0 // zero value, nothing to fill
	DefaultTimeout      = 4
	DefaultQueue        = 20
	DefaultInterval     = 5
	DefaultUdp2rawExtra = "--fix-gro"
)

// ErrBundleMissing is wrapped into the generation fault when the generator exits cleanly but
// leaves no output directory behind.
var ErrBundleMissing = errors.New("client bundle directory missing")

// DocumentStore loads and persists the whole document.
type DocumentStore interface {
	Read() (*types.RootDocument, error)
	Write(doc *types.RootDocument) error
}

// Gateway is the external process side of the console.
type Gateway interface {
	// NotifyChanged asks the tunnel services to restart. It returns immediately.
	NotifyChanged()
	// GenerateClientBundle runs the bundle generator for name and returns its output directory.
	GenerateClientBundle(ctx context.Context, name string) (string, error)
}

// Registry serializes its own read-modify-write cycles. It does not protect against other
// processes or other stores writing the same file.
type Registry struct {
	mu      sync.Mutex
	store   DocumentStore
	gateway Gateway
}

// New creates a registry over store, signalling gateway after every mutation.
func New(store DocumentStore, gateway Gateway) *Registry {
	return &Registry{store: store, gateway: gateway}
}

// Document returns the whole persisted document.
func (r *Registry) Document() (*types.RootDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Read()
}

// UpdateGlobal replaces the global settings wholesale.
func (r *Registry) UpdateGlobal(global types.GlobalConfig) error {
	err := r.mutate(func(doc *types.RootDocument) error {
		doc.Global = global
		return nil
	})
	if err != nil {
		return err
	}
	tool.DefaultLogger.Infof("[Registry] Global config updated: remote_host=%s", global.RemoteHost)
	notify.Send(types.NotifyTypeGlobalUpdated, "Global config updated", map[string]any{
		"remote_host": global.RemoteHost,
	})
	return nil
}

// List returns the groups in insertion order.
func (r *Registry) List() ([]types.Group, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	return doc.Groups, nil
}

// Get returns the group at index together with the global settings.
func (r *Registry) Get(index int) (types.Group, types.GlobalConfig, error) {
	doc, err := r.Document()
	if err != nil {
		return types.Group{}, types.GlobalConfig{}, err
	}
	if err := checkIndex(doc, index); err != nil {
		return types.Group{}, types.GlobalConfig{}, err
	}
	return doc.Groups[index], doc.Global, nil
}

// Create appends a new group with freshly allocated ports.
func (r *Registry) Create(input types.GroupInput) (types.Group, error) {
	var (
		group types.Group
		index int
	)
	err := r.mutate(func(doc *types.RootDocument) error {
		speederPort, udp2rawPort := NextPorts(doc.Groups)
		group = withDefaults(input)
		group.SpeederPort = speederPort
		group.Udp2rawPort = udp2rawPort
		doc.Groups = append(doc.Groups, group)
		index = len(doc.Groups) - 1
		return nil
	})
	if err != nil {
		return types.Group{}, err
	}
	tool.DefaultLogger.Infof("[Registry] Group created: name=%s, speeder_port=%d, udp2raw_port=%d",
		group.Name, group.SpeederPort, group.Udp2rawPort)
	r.changed(types.NotifyTypeGroupCreated, fmt.Sprintf("Group %s created", group.Name), map[string]any{
		"index": index,
		"group": group,
	})
	return group, nil
}

// Update replaces the group at index. The existing ports always win over the input.
func (r *Registry) Update(index int, input types.GroupInput) (types.Group, error) {
	var group types.Group
	err := r.mutate(func(doc *types.RootDocument) error {
		if err := checkIndex(doc, index); err != nil {
			return err
		}
		current := doc.Groups[index]
		group = fromInput(input)
		group.SpeederPort = current.SpeederPort
		group.Udp2rawPort = current.Udp2rawPort
		doc.Groups[index] = group
		return nil
	})
	if err != nil {
		return types.Group{}, err
	}
	tool.DefaultLogger.Infof("[Registry] Group updated: index=%d, name=%s", index, group.Name)
	r.changed(types.NotifyTypeGroupUpdated, fmt.Sprintf("Group %s updated", group.Name), map[string]any{
		"index": index,
		"group": group,
	})
	return group, nil
}

// Delete removes the group at index, preserving the order of the rest.
func (r *Registry) Delete(index int) error {
	var removed types.Group
	err := r.mutate(func(doc *types.RootDocument) error {
		if err := checkIndex(doc, index); err != nil {
			return err
		}
		removed = doc.Groups[index]
		doc.Groups = append(doc.Groups[:index], doc.Groups[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	tool.DefaultLogger.Infof("[Registry] Group deleted: index=%d, name=%s", index, removed.Name)
	r.changed(types.NotifyTypeGroupDeleted, fmt.Sprintf("Group %s deleted", removed.Name), map[string]any{
		"index": index,
		"name":  removed.Name,
	})
	return nil
}

// mutate reads the document, applies fn and writes the result, all under the registry lock.
// Nothing is written when fn fails.
func (r *Registry) mutate(fn func(doc *types.RootDocument) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return r.store.Write(doc)
}

// changed publishes a group event and asks for a restart. Callers must not hold r.mu.
func (r *Registry) changed(eventType, message string, data map[string]any) {
	notify.Send(eventType, message, data)
	r.gateway.NotifyChanged()
}

// ClientBundle is a generated client configuration directory ready to be archived.
type ClientBundle struct {
	Group types.Group
	Dir   string
}

// FileName is the download name of the archive.
func (b *ClientBundle) FileName() string {
	return b.Group.Name + "_client.zip"
}

// WriteZip streams the bundle directory as a flat zip archive.
func (b *ClientBundle) WriteZip(w io.Writer) error {
	return bundle.ZipDir(w, b.Dir)
}

// ExportClientBundle runs the generator for the group at index and checks its output directory.
func (r *Registry) ExportClientBundle(ctx context.Context, index int) (*ClientBundle, error) {
	group, _, err := r.Get(index)
	if err != nil {
		return nil, err
	}

	dir, err := r.gateway.GenerateClientBundle(ctx, group.Name)
	if err != nil {
		return nil, faults.New(faults.KindGeneration, err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		tool.DefaultLogger.Errorf("[Registry] Client output missing for %s: %s", group.Name, dir)
		return nil, faults.New(faults.KindGeneration, fmt.Errorf("%w: %s", ErrBundleMissing, dir))
	}
	return &ClientBundle{Group: group, Dir: dir}, nil
}

func checkIndex(doc *types.RootDocument, index int) error {
	if index < 0 || index >= len(doc.Groups) {
		return faults.Newf(faults.KindNotFound, "group index %d out of range [0, %d)", index, len(doc.Groups))
	}
	return nil
}

func fromInput(input types.GroupInput) types.Group {
	return types.Group{
		Name:         input.Name,
		FecConfig:    input.FecConfig,
		Mode:         input.Mode,
		Timeout:      input.Timeout,
		Queue:        input.Queue,
		Interval:     input.Interval,
		Udp2rawExtra: input.Udp2rawExtra,
	}
}

func withDefaults(input types.GroupInput) types.Group {
	g := fromInput(input)
	if g.FecConfig == "" {
		g.FecConfig = DefaultFecConfig
	}
	if g.Timeout == 0 {
		g.Timeout = DefaultTimeout
	}
	if g.Queue == 0 {
		g.Queue = DefaultQueue
	}
	if g.Interval == 0 {
		g.Interval = DefaultInterval
	}
	if g.Udp2rawExtra == "" {
		g.Udp2rawExtra = DefaultUdp2rawExtra
	}
	return g
}
