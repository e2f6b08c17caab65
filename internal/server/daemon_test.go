package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

type countingProcessor struct {
	mu    sync.Mutex
	paths []string
}

func (p *countingProcessor) ProcessFile(_ context.Context, path string) (*entity.ExtractionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return &entity.ExtractionResult{Success: true}, nil
}

func (p *countingProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func TestDaemonProcessesInboxAndReportsHealth(t *testing.T) {
	inbox := t.TempDir()
	existing := filepath.Join(inbox, "existing.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("one"), 0o644))
	duplicate := filepath.Join(inbox, "duplicate.pdf")
	require.NoError(t, os.WriteFile(duplicate, []byte("one"), 0o644))

	proc := &countingProcessor{}
	d := NewDaemon(Config{
		InboxDir:    inbox,
		Debounce:    20 * time.Millisecond,
		InitialScan: true,
		Workers:     1,
	}, proc, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 20*time.Millisecond)

	fresh := filepath.Join(inbox, "fresh.pdf")
	require.NoError(t, os.WriteFile(fresh, []byte("two"), 0o644))

	require.Eventually(t, func() bool {
		return len(proc.seen()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}

	paths := proc.seen()
	assert.Contains(t, paths, fresh)
	assert.Len(t, paths, 2, "identical content is processed once")
	assert.Equal(t, int64(2), d.Stats().Processed)
}

func TestDaemonFailsWithoutInbox(t *testing.T) {
	d := NewDaemon(Config{InboxDir: filepath.Join(t.TempDir(), "missing")}, &countingProcessor{}, nil)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Error(t, d.Serve(context.Background(), lis))
}
