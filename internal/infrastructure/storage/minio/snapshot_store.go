package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

const snapshotPrefix = "pathways/"

// SnapshotKey is the object key of one pathway version.
func SnapshotKey(pathwayID string, version int) string {
	return fmt.Sprintf("%s%s/v%06d.json", snapshotPrefix, pathwayID, version)
}

// SnapshotStore writes one JSON object per pathway version. Writing the same
// version twice overwrites it with identical content.
type SnapshotStore struct {
	client *Client
	now    func() time.Time
}

func NewSnapshotStore(client *Client) *SnapshotStore {
	return &SnapshotStore{client: client, now: time.Now}
}

func (s *SnapshotStore) Put(ctx context.Context, doc *chem.PathwayDTO) (*chem.SnapshotInfo, error) {
	if doc == nil || doc.ID == "" {
		return nil, errors.InvalidParam("snapshot requires a pathway id")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode snapshot")
	}

	key := SnapshotKey(doc.ID, doc.Version)
	_, err = s.client.api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserTags: map[string]string{
			"pathway":   doc.ID,
			"version":   strconv.Itoa(doc.Version),
			"reactions": strconv.Itoa(len(doc.Reactions)),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to store snapshot").WithDetail("key=" + key)
	}
	s.client.logger.Debug("snapshot written", logging.String("key", key), logging.Int("bytes", len(body)))
	return &chem.SnapshotInfo{
		PathwayID: doc.ID,
		Version:   doc.Version,
		Key:       key,
		Size:      int64(len(body)),
		CreatedAt: s.now().UTC(),
	}, nil
}

func (s *SnapshotStore) Get(ctx context.Context, pathwayID string, version int) (*chem.PathwayDTO, error) {
	key := SnapshotKey(pathwayID, version)
	rc, err := s.client.api.GetObject(ctx, s.client.bucket, key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.New(errors.ErrCodeSnapshotNotFound, "snapshot not found").WithDetail("key=" + key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch snapshot").WithDetail("key=" + key)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read snapshot").WithDetail("key=" + key)
	}
	var doc chem.PathwayDTO
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "stored snapshot is not a pathway document").WithDetail("key=" + key)
	}
	return &doc, nil
}

// List returns the snapshots of a pathway ordered by version. Objects under
// the prefix whose names do not parse as versions are skipped.
func (s *SnapshotStore) List(ctx context.Context, pathwayID string) ([]chem.SnapshotInfo, error) {
	prefix := snapshotPrefix + pathwayID + "/"
	out := []chem.SnapshotInfo{}
	for obj := range s.client.api.ListObjects(ctx, s.client.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "failed to list snapshots")
		}
		v, ok := parseVersion(strings.TrimPrefix(obj.Key, prefix))
		if !ok {
			continue
		}
		out = append(out, chem.SnapshotInfo{
			PathwayID: pathwayID,
			Version:   v,
			Key:       obj.Key,
			Size:      obj.Size,
			CreatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseVersion(name string) (int, bool) {
	if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "v"), ".json"))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
