package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// Handlers receives ingestion events from Buildings. Any handler may be nil.
// OnHeader fires at most once per object, either mid-flight via the sniffer
// or when the object completes; OnRecord fires for every object that decodes.
// OnRecordError observes record-local decode failures, which never abort the
// stream.
type Handlers struct {
	OnHeader      func(models.BuildingHeader)
	OnRecord      func(*models.RawBuilding)
	OnRecordError func(err error)
}

const readChunkSize = 32 * 1024

// Buildings reads r to completion, feeding each chunk through the scanner
// and delivering sniffed headers and decoded records to h. Chunks are
// processed synchronously: the next read is not issued until the previous
// chunk's events have been handled. Returns the context error if ctx is
// cancelled mid-stream.
func Buildings(ctx context.Context, r io.Reader, h Handlers) error {
	var sc Scanner
	sniffed := false // header already emitted for the in-flight object
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			spans := sc.Push(buf[:n])
			for i, span := range spans {
				// Only the first completed span can be the object the
				// sniffer already announced; later ones both started and
				// finished inside this chunk.
				deliver(span, i == 0 && sniffed, h)
			}
			if len(spans) > 0 {
				sniffed = false
			}
			if h.OnHeader != nil && !sniffed {
				if pending := sc.Pending(); len(pending) >= headerScanThreshold {
					if header, ok := SniffHeader(pending); ok {
						sniffed = true
						h.OnHeader(header)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read source stream: %w", err)
		}
	}

	sc.Finish()
	return nil
}

func deliver(span []byte, headerAlreadySent bool, h Handlers) {
	if h.OnHeader != nil && !headerAlreadySent {
		if header, ok := SniffHeader(span); ok {
			h.OnHeader(header)
		}
	}
	if h.OnRecord == nil && h.OnRecordError == nil {
		return
	}
	record, err := ParseBuilding(span)
	if err != nil {
		if h.OnRecordError != nil {
			h.OnRecordError(err)
		}
		return
	}
	if h.OnRecord != nil {
		h.OnRecord(record)
	}
}
