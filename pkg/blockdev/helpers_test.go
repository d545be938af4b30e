package blockdev

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/rotdisk/pkg/bufpool"
	"github.com/marmos91/rotdisk/pkg/store/backing/memory"
	"github.com/marmos91/rotdisk/pkg/transform"
)

const testSectors = 100

// newTestDevice returns a 100-sector, key 3 device over a memory store.
func newTestDevice(t *testing.T, pool *bufpool.Pool, m Metrics) (*Device, *memory.Store) {
	t.Helper()
	store := memory.New(testSectors * SectorSize)
	dev, err := NewDevice(store, DeviceConfig{
		Geometry: Geometry{SectorSize: SectorSize, Sectors: testSectors, Partitions: DefaultPartitions},
		Codec:    transform.NewRotation(3),
		Pool:     pool,
		Metrics:  m,
		Path:     "mem",
	})
	require.NoError(t, err)
	return dev, store
}

// sectorOf returns one sector filled with pattern repeated.
func sectorOf(pattern string) []byte {
	return bytes.Repeat([]byte(pattern), SectorSize/len(pattern)+1)[:SectorSize]
}

// waitDone receives the status of req or fails the test after a timeout.
func waitDone(t *testing.T, req *Request) error {
	t.Helper()
	select {
	case err := <-req.Done():
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("request %s did not complete", req.ID)
		return nil
	}
}

// fakeMetrics records observations for assertions.
type fakeMetrics struct {
	mu         sync.Mutex
	requests   map[string]int // "op/status" -> count
	bytes      int64
	waits      int
	rejected   map[string]int
	lastPins   int64
	queueDepth int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{requests: map[string]int{}, rejected: map[string]int{}}
}

func (f *fakeMetrics) ObserveRequest(op, status string, n int64, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[op+"/"+status]++
	f.bytes += n
}

func (f *fakeMetrics) ObserveQueueWait(time.Duration) {
	f.mu.Lock()
	f.waits++
	f.mu.Unlock()
}

func (f *fakeMetrics) SetQueueDepth(n int) {
	f.mu.Lock()
	f.queueDepth = n
	f.mu.Unlock()
}

func (f *fakeMetrics) SetPins(n int64) {
	f.mu.Lock()
	f.lastPins = n
	f.mu.Unlock()
}

func (f *fakeMetrics) RecordRejected(reason string) {
	f.mu.Lock()
	f.rejected[reason]++
	f.mu.Unlock()
}

func (f *fakeMetrics) snapshot() (requests, rejected map[string]int, pins int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests = make(map[string]int, len(f.requests))
	for k, v := range f.requests {
		requests[k] = v
	}
	rejected = make(map[string]int, len(f.rejected))
	for k, v := range f.rejected {
		rejected[k] = v
	}
	return requests, rejected, f.lastPins
}
