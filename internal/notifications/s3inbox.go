/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by S3Inbox.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config locates the mailbox bucket.
type S3Config struct {
	Region          string
	Endpoint        string // For S3-compatible services (MinIO, etc.)
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string // where the SES receipt rule writes raw mail
	ProcessedPrefix string // where read mail is moved
	MaxPerPoll      int
}

// S3Inbox reads replies that an SES receipt rule stored as raw MIME objects.
// Unread messages live under Prefix; MarkRead moves them to ProcessedPrefix.
type S3Inbox struct {
	client S3API
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Client builds an S3 client from static or default credentials.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Inbox creates an Inbox over client.
func NewS3Inbox(client S3API, cfg S3Config, logger zerolog.Logger) *S3Inbox {
	if cfg.MaxPerPoll <= 0 {
		cfg.MaxPerPoll = 100
	}
	if cfg.ProcessedPrefix == "" {
		cfg.ProcessedPrefix = "processed/"
	}
	return &S3Inbox{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "s3_inbox").Logger(),
	}
}

// PollUnreadReplies implements Inbox. Messages whose subject does not contain
// subjectFilter (case-insensitive) are left in place. Unparseable objects are
// logged and skipped.
func (in *S3Inbox) PollUnreadReplies(ctx context.Context, subjectFilter string) ([]Reply, error) {
	filter := strings.ToLower(subjectFilter)
	var (
		replies []Reply
		token   *string
	)

	for len(replies) < in.cfg.MaxPerPoll {
		out, err := in.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(in.cfg.Bucket),
			Prefix:            aws.String(in.cfg.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list inbox: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}

			reply, err := in.fetch(ctx, key, aws.ToTime(obj.LastModified))
			if err != nil {
				in.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable inbound message")
				continue
			}
			if filter != "" && !strings.Contains(strings.ToLower(reply.Subject), filter) {
				continue
			}

			replies = append(replies, reply)
			if len(replies) >= in.cfg.MaxPerPoll {
				break
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	return replies, nil
}

func (in *S3Inbox) fetch(ctx context.Context, key string, modified time.Time) (Reply, error) {
	obj, err := in.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(in.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("get object: %w", err)
	}
	defer obj.Body.Close()

	return parseReply(key, obj.Body, modified.UTC())
}

// MarkRead implements Inbox by moving the object out of the unread prefix.
func (in *S3Inbox) MarkRead(ctx context.Context, id string) error {
	dest := in.cfg.ProcessedPrefix + strings.TrimPrefix(id, in.cfg.Prefix)
	source := (&url.URL{Path: in.cfg.Bucket + "/" + id}).EscapedPath()

	if _, err := in.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(in.cfg.Bucket),
		CopySource: aws.String(source),
		Key:        aws.String(dest),
	}); err != nil {
		return fmt.Errorf("copy %s to processed: %w", id, err)
	}

	if _, err := in.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(in.cfg.Bucket),
		Key:    aws.String(id),
	}); err != nil {
		return fmt.Errorf("delete %s from inbox: %w", id, err)
	}
	return nil
}
