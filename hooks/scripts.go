// Package hooks runs the external lifecycle scripts of the tunnel toolchain.
//
// Scripts live in one directory and are executed with that directory as their working
// directory. No timeout is applied to them, and a script that has started is never killed
// because its caller went away.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/moyoez/speeder2raw-web/notify"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

const (
	RestartScript            = "restart.sh"
	GenerateClientScript     = "generateClient.sh"
	StartMappingServerScript = "start_mapping_server.sh"
	StopMappingServerScript  = "stop_mapping_server.sh"

	// ClientOutDirEnv tells generateClient.sh where to write its output.
	ClientOutDirEnv = "CLIENT_OUT_DIR"
)

// Scripts is the script-backed process control gateway.
type Scripts struct {
	dir          string
	clientOutDir string
	pending      sync.WaitGroup
}

// New returns a gateway running scripts from dir. Generated bundles are expected under
// clientOutDir/<group name>.
func New(dir, clientOutDir string) *Scripts {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if abs, err := filepath.Abs(clientOutDir); err == nil {
		clientOutDir = abs
	}
	return &Scripts{dir: dir, clientOutDir: clientOutDir}
}

// NotifyChanged restarts the tunnel services in the background. The outcome is only logged.
func (s *Scripts) NotifyChanged() {
	s.goRun(RestartScript,
		func() {
			tool.DefaultLogger.Infof("[Hooks] Services restarted")
			notify.Send(types.NotifyTypeRestartDone, "Services restarted", nil)
		},
		func(err error) {
			tool.DefaultLogger.Errorf("[Hooks] Failed to restart services: %v", err)
			notify.Send(types.NotifyTypeRestartFailed, err.Error(), nil)
		})
}

// StartMappingServer launches the mapping server in the background.
func (s *Scripts) StartMappingServer() {
	s.goRun(StartMappingServerScript,
		func() {
			tool.DefaultLogger.Infof("[Hooks] Mapping server started")
			notify.Send(types.NotifyTypeMappingServerStarted, "Mapping server started", nil)
		},
		func(err error) {
			tool.DefaultLogger.Errorf("[Hooks] Failed to start mapping server: %v", err)
			notify.Send(types.NotifyTypeMappingServerFailed, err.Error(), nil)
		})
}

// StopMappingServer stops the mapping server and waits for the script to exit.
func (s *Scripts) StopMappingServer(ctx context.Context) error {
	if err := s.run(ctx, StopMappingServerScript); err != nil {
		tool.DefaultLogger.Errorf("[Hooks] Failed to stop mapping server: %v", err)
		return err
	}
	tool.DefaultLogger.Infof("[Hooks] Mapping server stopped")
	return nil
}

// GenerateClientBundle runs the generator for name and returns the directory it should have
// written. The caller checks that the directory exists. The generator runs to completion even
// when ctx is cancelled so it never leaves a half-written directory behind.
func (s *Scripts) GenerateClientBundle(ctx context.Context, name string) (string, error) {
	if !isPlainName(name) {
		return "", fmt.Errorf("group name %q cannot be used as a directory name", name)
	}
	if err := s.run(context.WithoutCancel(ctx), GenerateClientScript, name); err != nil {
		tool.DefaultLogger.Errorf("[Hooks] Failed to generate client bundle for %s: %v", name, err)
		return "", err
	}
	return filepath.Join(s.clientOutDir, name), nil
}

// Wait blocks until every background script started so far has exited or ctx is done.
func (s *Scripts) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scripts) goRun(script string, onSuccess func(), onFailure func(error)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.run(context.Background(), script); err != nil {
			onFailure(err)
			return
		}
		onSuccess()
	}()
}

func (s *Scripts) run(ctx context.Context, script string, args ...string) error {
	cmd := exec.CommandContext(ctx, filepath.Join(s.dir, script), args...)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), ClientOutDirEnv+"="+s.clientOutDir)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	tool.DefaultLogger.Debugf("[Hooks] Running %s %s", script, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if out := strings.TrimSpace(output.String()); out != "" {
			return fmt.Errorf("%s: %w: %s", script, err, out)
		}
		return fmt.Errorf("%s: %w", script, err)
	}
	return nil
}

// isPlainName reports whether name is a single, non-special path element.
func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}
