// Package services holds the external-facing helpers shared by both
// hosts: the Spaces icon store.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// IconService serves title icon images out of a DigitalOcean Spaces
// bucket. Icons are uploaded out of band; the service builds public CDN
// URLs and can verify the catalog's objects exist at startup.
type IconService struct {
	client   *s3.Client
	bucket   string
	region   string
	iconRoot string
}

func NewIconService(key, secret, region, bucket, iconRoot string) *IconService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	return &IconService{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		iconRoot: strings.Trim(iconRoot, "/"),
	}
}

// IconURL resolves an icon reference to a public CDN URL. Local-style
// references ("/static/icons/general.png") are mapped into the bucket
// by file name; absolute URLs pass through untouched.
func (s *IconService) IconURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	key := s.iconKey(ref)
	return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.bucket, s.region, key)
}

func (s *IconService) iconKey(ref string) string {
	name := path.Base(ref)
	if s.iconRoot == "" {
		return name
	}
	return s.iconRoot + "/" + name
}

// VerifyIcons heads every referenced object and logs the missing ones.
// Missing icons are cosmetic, so this never fails startup.
func (s *IconService) VerifyIcons(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			continue
		}
		key := s.iconKey(ref)
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: &s.bucket,
			Key:    &key,
		})
		if err != nil {
			slog.Warn("Title icon missing from Spaces",
				slog.String("type", "sys"),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
