package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCS reads and archives spreadsheets in Google Cloud Storage. It assumes
// Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewGCS wraps client. bucket and prefix are used by UploadBytes only.
func NewGCS(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Fetch implements Source for refs of the form "bucket/object".
func (g *GCS) Fetch(ctx context.Context, ref string) (File, error) {
	bucketName, objectPath, err := SplitObject(ref)
	if err != nil {
		return File{}, err
	}

	rc, err := g.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return File{}, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, bucketName, objectPath)
		}
		return File{}, fmt.Errorf("reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return File{}, fmt.Errorf("reading bytes: %w", err)
	}

	return File{
		Name:        path.Base(objectPath),
		ContentType: rc.Attrs.ContentType,
		Data:        data,
	}, nil
}

// UploadBytes archives an uploaded spreadsheet and returns its gs:// URI.
// Objects are named prefix/YYYY/MM/DD/<uuid>-<name>.
func (g *GCS) UploadBytes(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if g.bucket == "" {
		return "", fmt.Errorf("UploadBytes: no bucket configured")
	}
	objectName := ObjectName(g.prefix, name, g.now(), uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadBytes: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadBytes: finalize upload: %w", err)
	}
	return "gs://" + g.bucket + "/" + objectName, nil
}

// SplitObject splits "bucket/path/to/object".
func SplitObject(ref string) (bucket, object string, err error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS reference (want bucket/object): %q", ref)
	}
	return parts[0], parts[1], nil
}

// ObjectName builds the archive object path for an upload.
func ObjectName(prefix, name string, at time.Time, id string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	p := path.Join(at.UTC().Format("2006/01/02"), id+"-"+base)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		p = prefix + "/" + p
	}
	return p
}
