/*
Package publish uploads a generated dataset directory to S3 with the
multipart upload manager.
*/
package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type Config struct {
	Bucket      string `json:"bucket"`
	Prefix      string `json:"prefix"`
	Region      string `json:"region"`
	Concurrency int    `json:"concurrency"`
	PartSizeMB  int64  `json:"part_size_mb"`
}

func DefaultValueConfig() Config {
	return Config{
		Region:      "us-east-1",
		Concurrency: 5,
		PartSizeMB:  8,
	}
}

type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

type Result struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
	// Keys are the uploaded object keys in upload order.
	Keys []string `json:"keys"`
}

// NewUploader builds an s3manager uploader from the default credential chain.
func NewUploader(cfg Config) (*s3manager.Uploader, *xerr.Error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, xerr.NewError(err, "create AWS session", cfg.Region)
	}
	return s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		if cfg.PartSizeMB > 0 {
			u.PartSize = cfg.PartSizeMB * 1024 * 1024
		}
	}), nil
}

/*
Dir uploads every regular file under dir (recursively, in name order) to
cfg.Bucket, keyed as cfg.Prefix joined with the path relative to dir.
*/
func Dir(ctx context.Context, uploader Uploader, cfg Config, dir string) (res Result, e *xerr.Error) {
	if cfg.Bucket == "" {
		return res, xerr.NewError(fmt.Errorf("bucket not set"), "publish dataset", dir)
	}

	files, e := listFiles(dir)
	if e != nil {
		return res, e
	}
	tl.Log(tl.Notice, palette.BlueBold, "Uploading %d files from '%s' to s3://%s/%s", len(files), dir, cfg.Bucket, cfg.Prefix)

	for i, rel := range files {
		key := ObjectKey(cfg.Prefix, rel)
		size, e := uploadFile(ctx, uploader, cfg.Bucket, key, filepath.Join(dir, rel))
		if e != nil {
			return res, e
		}
		res.Files++
		res.Bytes += size
		res.Keys = append(res.Keys, key)
		if (i+1)%100 == 0 {
			tl.Log(tl.Info, palette.Cyan, "Uploaded %d/%d files", i+1, len(files))
		}
	}

	tl.Log(tl.Notice1, palette.GreenBold, "Uploaded %d files (%d bytes) to s3://%s", res.Files, res.Bytes, cfg.Bucket)
	return res, nil
}

func uploadFile(ctx context.Context, uploader Uploader, bucket, key, filePath string) (int64, *xerr.Error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, xerr.NewError(err, "open file for upload", filePath)
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return 0, xerr.NewError(err, "stat file for upload", filePath)
	}

	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(ContentType(filePath)),
	})
	if err != nil {
		return 0, xerr.NewError(err, "upload file", fmt.Sprintf("%s -> s3://%s/%s", filePath, bucket, key))
	}
	tl.Log(tl.Verbose, palette.Green, "Uploaded '%s'", key)
	return info.Size(), nil
}

// ObjectKey joins prefix and a relative file path with forward slashes.
func ObjectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// ContentType guesses the MIME type of a dataset file.
func ContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".gt.txt"), strings.HasSuffix(name, ".box"):
		return "text/plain; charset=utf-8"
	case strings.HasSuffix(name, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(name, ".br"):
		return "application/octet-stream"
	case strings.HasSuffix(name, ".tif"):
		return "image/tiff"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func listFiles(dir string) ([]string, *xerr.Error) {
	var files []string
	walkErr := filepath.WalkDir(dir, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, xerr.NewErrorEC(walkErr, "walk dataset directory", "dir", dir, false)
	}
	sort.Strings(files)
	return files, nil
}
