package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultPresignTTL = time.Hour

// Fetcher downloads audio produced by the synthesis backend.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, string, error)
}

// ArchiveConfig places archived audio inside a bucket.
type ArchiveConfig struct {
	Bucket     string
	KeyPrefix  string
	PresignTTL time.Duration
}

// ArchivedFile is one stored audio object of a user.
type ArchivedFile struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Archive copies generated audio into the bucket under a per-user prefix and
// hands out presigned playback links for stored locations.
type Archive struct {
	store   Service
	fetcher Fetcher
	bucket  string
	prefix  string
	ttl     time.Duration
}

func NewArchive(store Service, fetcher Fetcher, cfg ArchiveConfig) (*Archive, error) {
	if store == nil || fetcher == nil {
		return nil, fmt.Errorf("archive requires a store and a fetcher")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &Archive{
		store:   store,
		fetcher: fetcher,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
		ttl:     ttl,
	}, nil
}

// Archive downloads sourceURL and stores it, returning the s3:// location.
func (a *Archive) Archive(ctx context.Context, userID int64, sourceURL string) (string, error) {
	body, contentType, err := a.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	defer body.Close()

	key := path.Join(a.userPrefix(userID), uuid.NewString()+".wav")
	return a.store.Upload(ctx, a.bucket, key, body, contentType)
}

// PlaybackURL turns a stored location into something a browser can play.
// Locations that are not in this archive's bucket are returned unchanged.
func (a *Archive) PlaybackURL(ctx context.Context, location string) (string, error) {
	bucket, key, ok := parseS3Location(location)
	if !ok || bucket != a.bucket {
		return location, nil
	}
	return a.store.PresignGet(ctx, bucket, key, a.ttl)
}

// List returns the archived files of a user.
func (a *Archive) List(ctx context.Context, userID int64) ([]ArchivedFile, error) {
	objects, err := a.store.ListObjects(ctx, a.bucket, a.userPrefix(userID)+"/")
	if err != nil {
		return nil, err
	}
	files := make([]ArchivedFile, 0, len(objects))
	for _, obj := range objects {
		file := ArchivedFile{Key: obj.Key, Size: obj.Size}
		if obj.LastModified != nil {
			file.LastModified = obj.LastModified.UTC()
		}
		files = append(files, file)
	}
	return files, nil
}

// Purge removes every archived file of a user.
func (a *Archive) Purge(ctx context.Context, userID int64) error {
	return a.store.DeletePrefix(ctx, a.bucket, a.userPrefix(userID)+"/")
}

func (a *Archive) userPrefix(userID int64) string {
	return path.Join(a.prefix, "users", strconv.FormatInt(userID, 10))
}

// IsLocation reports whether s points into object storage.
func IsLocation(s string) bool {
	_, _, ok := parseS3Location(s)
	return ok
}

func parseS3Location(location string) (bucket, key string, ok bool) {
	trimmed := strings.TrimSpace(location)
	if !strings.HasPrefix(trimmed, "s3://") {
		return "", "", false
	}
	rest := strings.TrimPrefix(trimmed, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
