package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/lead-verifier/internal/domain"
)

// ObjectPutter is the subset of the S3 client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ResultArchive keeps a copy of the parsed provider result lists in S3 so a
// batch can be audited after the provider links expire.
type ResultArchive struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// Manifest summarizes one archived batch.
type Manifest struct {
	BatchID    string         `json:"batch_id"`
	CampaignID string         `json:"campaign_id"`
	FileID     string         `json:"file_id"`
	Status     string         `json:"status"`
	Links      []string       `json:"links"`
	Rows       []int          `json:"rows"`
	Categories map[string]int `json:"categories"`
	ArchivedAt time.Time      `json:"archived_at"`
}

// NewS3ResultArchive loads the default AWS config for region, optionally
// with a shared profile, and returns an archive writing to bucket.
func NewS3ResultArchive(ctx context.Context, bucket, prefix, region, profile string) (*ResultArchive, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewResultArchive(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewResultArchive creates an archive over an existing client.
func NewResultArchive(client ObjectPutter, bucket, prefix string) *ResultArchive {
	return &ResultArchive{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// BatchPrefix returns the key prefix all objects of a batch share.
func (a *ResultArchive) BatchPrefix(b domain.VerificationBatch) string {
	return path.Join(a.prefix, b.CampaignID, b.ID) + "/"
}

// ArchiveResults writes one CSV per result list plus a JSON manifest. A
// failed put does not stop the remaining objects.
func (a *ResultArchive) ArchiveResults(ctx context.Context, b domain.VerificationBatch, lists [][]domain.ClassifiedPair) error {
	base := a.BatchPrefix(b)
	links := []string{b.ResultLink1, b.ResultLink2}
	m := Manifest{
		BatchID:    b.ID,
		CampaignID: b.CampaignID,
		FileID:     b.FileID,
		Status:     b.Status,
		Categories: map[string]int{},
		ArchivedAt: a.now().UTC(),
	}

	var errs []error
	for i, list := range lists {
		link := ""
		if i < len(links) {
			link = links[i]
		}
		m.Links = append(m.Links, link)
		m.Rows = append(m.Rows, len(list))
		for _, p := range list {
			m.Categories[p.Category]++
		}

		body, err := encodePairs(list)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := fmt.Sprintf("%slink%d.csv", base, i+1)
		if err := a.put(ctx, key, body, "text/csv"); err != nil {
			errs = append(errs, err)
		}
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("marshaling manifest: %w", err))...)
	}
	if err := a.put(ctx, base+"manifest.json", manifest, "application/json"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *ResultArchive) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s to S3: %w", key, err)
	}
	return nil
}

func encodePairs(list []domain.ClassifiedPair) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"category", "email"}); err != nil {
		return nil, err
	}
	for _, p := range list {
		if err := w.Write([]string{p.Category, p.Email}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding result csv: %w", err)
	}
	return buf.Bytes(), nil
}
