// Package capture persists built COPY BINARY streams to object storage so a
// run can be replayed against a database without regenerating data. Each run
// writes its batches under a uuid run id plus a JSON manifest carrying
// murmur3 fingerprints for integrity checks on replay.
package capture

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/internal/storage"
)

// ManifestObject is the manifest's object name within a run prefix.
const ManifestObject = "manifest.json"

// Manifest describes one captured run.
type Manifest struct {
	RunID     string        `json:"run_id"`
	Table     string        `json:"table"`
	CreatedAt time.Time     `json:"created_at"`
	Compress  bool          `json:"compress"`
	Batches   []BatchRecord `json:"batches"`
}

// BatchRecord describes one captured batch stream.
type BatchRecord struct {
	Sequence    int    `json:"sequence"`
	Object      string `json:"object"`
	Rows        int    `json:"rows"`
	RawBytes    int    `json:"raw_bytes"`
	StoredBytes int    `json:"stored_bytes"`
	Fingerprint string `json:"fingerprint"`
}

// Capturer accumulates batch records for a single run.
type Capturer struct {
	store    storage.ObjectStorage
	prefix   string
	manifest Manifest
}

// NewCapturer starts a capture run for the given table. The prefix scopes
// all runs within the store (empty for the store root).
func NewCapturer(store storage.ObjectStorage, prefix, table string, compress bool) *Capturer {
	return &Capturer{
		store:  store,
		prefix: prefix,
		manifest: Manifest{
			RunID:     uuid.NewString(),
			Table:     table,
			CreatedAt: time.Now().UTC(),
			Compress:  compress,
		},
	}
}

// RunID returns the run's identifier.
func (c *Capturer) RunID() string {
	return c.manifest.RunID
}

// Batches returns the number of batches captured so far.
func (c *Capturer) Batches() int {
	return len(c.manifest.Batches)
}

// CaptureBatch stores one built stream and records it in the manifest.
func (c *Capturer) CaptureBatch(ctx context.Context, rows int, stream []byte) error {
	seq := len(c.manifest.Batches) + 1
	object := path.Join(c.prefix, c.manifest.RunID, fmt.Sprintf("batch_%06d.pgcopy", seq))

	data := stream
	if c.manifest.Compress {
		object += ".sz"
		data = snappy.Encode(nil, stream)
	}

	if err := c.store.Put(ctx, object, data); err != nil {
		return apperrors.NewStorageError(apperrors.CodeUploadFailed, "failed to store batch "+object, err)
	}

	c.manifest.Batches = append(c.manifest.Batches, BatchRecord{
		Sequence:    seq,
		Object:      object,
		Rows:        rows,
		RawBytes:    len(stream),
		StoredBytes: len(data),
		Fingerprint: fingerprint(stream),
	})
	return nil
}

// Finish writes the run manifest. The capturer must not be reused after.
func (c *Capturer) Finish(ctx context.Context) error {
	data, err := json.MarshalIndent(&c.manifest, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to marshal capture manifest", err)
	}

	object := path.Join(c.prefix, c.manifest.RunID, ManifestObject)
	if err := c.store.Put(ctx, object, data); err != nil {
		return apperrors.NewStorageError(apperrors.CodeUploadFailed, "failed to store manifest "+object, err)
	}
	return nil
}

// LoadManifest reads the manifest of a captured run.
func LoadManifest(ctx context.Context, store storage.ObjectStorage, prefix, runID string) (*Manifest, error) {
	object := path.Join(prefix, runID, ManifestObject)
	data, err := store.Get(ctx, object)
	if err != nil {
		return nil, apperrors.NewStorageError(apperrors.CodeDownloadFailed, "failed to read manifest "+object, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewInternalError("failed to parse capture manifest", err)
	}
	return &m, nil
}

// Replay reads every batch of a captured run in sequence order, verifies its
// fingerprint, and hands the raw stream to fn. A fingerprint mismatch stops
// the replay: a corrupted stream must never reach the database.
func Replay(ctx context.Context, store storage.ObjectStorage, prefix, runID string, fn func(record BatchRecord, stream []byte) error) (*Manifest, error) {
	m, err := LoadManifest(ctx, store, prefix, runID)
	if err != nil {
		return nil, err
	}

	for _, record := range m.Batches {
		data, err := store.Get(ctx, record.Object)
		if err != nil {
			return nil, apperrors.NewStorageError(apperrors.CodeDownloadFailed, "failed to read batch "+record.Object, err)
		}

		stream := data
		if m.Compress {
			stream, err = snappy.Decode(nil, data)
			if err != nil {
				return nil, apperrors.NewStorageError(apperrors.CodeDownloadFailed, "failed to decompress batch "+record.Object, err)
			}
		}

		if fp := fingerprint(stream); fp != record.Fingerprint {
			return nil, apperrors.New(apperrors.ErrCategoryStorage, apperrors.CodeFingerprintMismatch,
				fmt.Sprintf("batch %s fingerprint %s does not match recorded %s", record.Object, fp, record.Fingerprint))
		}

		if err := fn(record, stream); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// fingerprint returns the hex murmur3 128-bit hash of a stream.
func fingerprint(stream []byte) string {
	h1, h2 := murmur3.Sum128(stream)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(h1 >> (56 - 8*i))
		buf[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:])
}
