package acquire

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

const s3PartSize = 5 * 1024 * 1024 // 5MiB, S3's minimum multipart part size

// RemoteCache mirrors a DumpCache entry to a shared S3 bucket keyed by
// the same source-image hash, so a teammate who already extracted an
// image doesn't have to run the probe/extract chain again. Grounded on
// notarize/worker/worker_upload.go's multipart upload loop; unlike that
// worker, credentials come from the default AWS provider chain rather
// than a bespoke API-issued token, since there is no equivalent signing
// service in this domain.
type RemoteCache struct {
	Bucket string
	Prefix string

	client *s3.Client
	logger zerolog.Logger
}

// NewRemoteCache resolves AWS credentials via the default provider chain
// (environment, shared config, IAM role) and constructs a client scoped
// to region.
func NewRemoteCache(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (*RemoteCache, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &RemoteCache{
		Bucket: bucket,
		Prefix: prefix,
		client: s3.NewFromConfig(cfg),
		logger: logger,
	}, nil
}

func (r *RemoteCache) key(hash string) string {
	if r.Prefix == "" {
		return hash + ".tar.gz"
	}
	return r.Prefix + "/" + hash + ".tar.gz"
}

// Fetch downloads and unpacks a cached dump tree for hash into dir. ok is
// false, with a nil error, on a plain cache miss.
func (r *RemoteCache) Fetch(ctx context.Context, hash, dir string) (ok bool, err error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.key(hash)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, fmt.Errorf("get remote cache object: %w", err)
	}
	defer out.Body.Close()

	if err := extractTarGz(out.Body, dir); err != nil {
		return false, fmt.Errorf("unpack remote cache object: %w", err)
	}

	r.logger.Info().Str("hash", hash).Msg("restored dump dir from remote cache")
	return true, nil
}

// Push archives dir and multipart-uploads it to the shared bucket keyed
// by hash, so later runs against the same image hit Fetch instead of
// re-extracting.
func (r *RemoteCache) Push(ctx context.Context, hash, dir string) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(archiveTarGz(dir, pw))
	}()

	multiPart, err := r.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.key(hash)),
	})
	if err != nil {
		return fmt.Errorf("start multipart upload: %w", err)
	}

	buffer := make([]byte, s3PartSize)
	var completed s3types.CompletedMultipartUpload

	for part := int32(1); ; part++ {
		n, readErr := io.ReadFull(pr, buffer)
		if n > 0 {
			resp, uploadErr := r.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:        multiPart.Bucket,
				Key:           multiPart.Key,
				PartNumber:    aws.Int32(part),
				UploadId:      multiPart.UploadId,
				Body:          bytes.NewReader(buffer[:n]),
				ContentLength: aws.Int64(int64(n)),
			})
			if uploadErr != nil {
				r.abortUpload(multiPart)
				return fmt.Errorf("upload part %d: %w", part, uploadErr)
			}

			completed.Parts = append(completed.Parts, s3types.CompletedPart{
				ETag:       resp.ETag,
				PartNumber: aws.Int32(part),
			})
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			r.abortUpload(multiPart)
			return fmt.Errorf("read archive stream: %w", readErr)
		}
	}

	if _, err := r.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          multiPart.Bucket,
		Key:             multiPart.Key,
		UploadId:        multiPart.UploadId,
		MultipartUpload: &completed,
	}); err != nil {
		return fmt.Errorf("finalize multipart upload: %w", err)
	}

	r.logger.Info().Str("hash", hash).Msg("uploaded dump dir to remote cache")
	return nil
}

func (r *RemoteCache) abortUpload(multiPart *s3.CreateMultipartUploadOutput) {
	_, _ = r.client.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   multiPart.Bucket,
		Key:      multiPart.Key,
		UploadId: multiPart.UploadId,
	})
}

func archiveTarGz(dir string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func extractTarGz(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		targetPath := filepath.Join(dir, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, targetPath); err != nil {
				return err
			}
		}
	}
}
