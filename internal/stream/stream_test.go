package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// chunkReader yields one preset chunk per Read call regardless of the buffer
// size, so tests control fragmentation exactly.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	if len(chunk) > len(p) {
		panic("test chunk larger than read buffer")
	}
	return copy(p, chunk), nil
}

type eventLog struct {
	events []string
}

func (l *eventLog) handlers() Handlers {
	return Handlers{
		OnHeader: func(h models.BuildingHeader) {
			l.events = append(l.events, "header:"+h.BuildingID)
		},
		OnRecord: func(b *models.RawBuilding) {
			l.events = append(l.events, "record:"+b.BuildingID)
		},
		OnRecordError: func(err error) {
			l.events = append(l.events, "error")
		},
	}
}

func TestBuildingsDeliversHeadersThenRecords(t *testing.T) {
	input := `[{"buildingId":"b1","name":"One"},{"buildingId":"b2","name":"Two"}]`
	var log eventLog
	r := &chunkReader{chunks: [][]byte{[]byte(input)}}
	if err := Buildings(context.Background(), r, log.handlers()); err != nil {
		t.Fatalf("Buildings: %v", err)
	}
	want := []string{"header:b1", "record:b1", "header:b2", "record:b2"}
	assertEvents(t, log.events, want)
}

func TestBuildingsSniffsLargeObjectMidFlight(t *testing.T) {
	// The object header arrives in the first chunk; the bulk and the closing
	// brace arrive later. The header must be announced before the record,
	// and only once.
	pad := strings.Repeat("y", headerScanThreshold)
	first := fmt.Sprintf(`[{"buildingId":"big","name":"Depot","note":"%s`, pad)
	r := &chunkReader{chunks: [][]byte{
		[]byte(first),
		[]byte(`more"},{"buildingId":"b2"}]`),
	}}

	var log eventLog
	if err := Buildings(context.Background(), r, log.handlers()); err != nil {
		t.Fatalf("Buildings: %v", err)
	}
	want := []string{"header:big", "record:big", "header:b2", "record:b2"}
	assertEvents(t, log.events, want)
}

func TestBuildingsSniffRetriesUntilIDArrives(t *testing.T) {
	// First chunk crosses the sniff threshold without the identity field, so
	// the sniff fails; a later chunk supplies it and the sniff succeeds on
	// the retry before the object closes.
	pad := strings.Repeat("z", headerScanThreshold)
	r := &chunkReader{chunks: [][]byte{
		[]byte(fmt.Sprintf(`[{"note":"%s",`, pad)),
		[]byte(fmt.Sprintf(`"buildingId":"slow","pad":"%s`, pad)),
		[]byte(`"}]`),
	}}

	var log eventLog
	if err := Buildings(context.Background(), r, log.handlers()); err != nil {
		t.Fatalf("Buildings: %v", err)
	}
	want := []string{"header:slow", "record:slow"}
	assertEvents(t, log.events, want)
}

func TestBuildingsSkipsMalformedRecord(t *testing.T) {
	// The middle object has balanced braces but is not valid JSON; it must
	// produce one error event without stopping the stream.
	input := `[{"buildingId":"b1"},{"buildingId" "broken"},{"buildingId":"b3"}]`
	var log eventLog
	r := &chunkReader{chunks: [][]byte{[]byte(input)}}
	if err := Buildings(context.Background(), r, log.handlers()); err != nil {
		t.Fatalf("Buildings: %v", err)
	}
	want := []string{"header:b1", "record:b1", "error", "header:b3", "record:b3"}
	assertEvents(t, log.events, want)
}

func TestBuildingsSkipsRecordWithoutID(t *testing.T) {
	input := `[{"name":"anonymous"},{"buildingId":"b2"}]`
	var log eventLog
	r := &chunkReader{chunks: [][]byte{[]byte(input)}}
	if err := Buildings(context.Background(), r, log.handlers()); err != nil {
		t.Fatalf("Buildings: %v", err)
	}
	want := []string{"error", "header:b2", "record:b2"}
	assertEvents(t, log.events, want)
}

func TestBuildingsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &chunkReader{chunks: [][]byte{[]byte(`[{"buildingId":"b1"}]`)}}
	err := Buildings(ctx, r, Handlers{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBuildingsReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader(`[{"buildingId":"b1"}`),
		&failingReader{err: boom},
	)
	var log eventLog
	err := Buildings(context.Background(), r, log.handlers())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	assertEvents(t, log.events, []string{"header:b1", "record:b1"})
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func assertEvents(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q\nall: %q", i, got[i], want[i], got)
		}
	}
}
