package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/provider/session"
	"github.com/stackforge/stackctl/pkg/stack"
)

// RegisterAWS adds the AWS-backed resolvers to a registry, sharing one
// session cache across all instances.
func RegisterAWS(r *Registry, sessions *session.Cache) {
	r.Register("s3", func(arg interface{}) (stack.Resolver, error) {
		return NewS3Object(arg, sessions)
	})
	r.Register("secret", func(arg interface{}) (stack.Resolver, error) {
		return NewSecret(arg, sessions)
	})
}

// S3Object resolves to the contents of an S3 object, referenced as
// "s3://bucket/key".
type S3Object struct {
	base
	Bucket   string
	Key      string
	sessions *session.Cache
}

// NewS3Object is the factory for the "s3" tag.
func NewS3Object(arg interface{}, sessions *session.Cache) (stack.Resolver, error) {
	ref, err := stringArg("s3", arg)
	if err != nil {
		return nil, err
	}
	bucket, key, err := parseS3URL(ref)
	if err != nil {
		return nil, err
	}
	return &S3Object{Bucket: bucket, Key: key, sessions: sessions}, nil
}

func (r *S3Object) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	cfg, err := r.sessions.Config(ctx, session.Options{})
	if err != nil {
		return nil, errors.ResolutionError("s3", "loading AWS config", err)
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.Key),
	})
	if err != nil {
		return nil, errors.ResolutionError("s3", fmt.Sprintf("fetching s3://%s/%s", r.Bucket, r.Key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.ResolutionError("s3", fmt.Sprintf("reading s3://%s/%s", r.Bucket, r.Key), err)
	}
	return string(data), nil
}

// Secret resolves to a Secrets Manager secret value by id or ARN.
type Secret struct {
	base
	ID       string
	sessions *session.Cache
}

// NewSecret is the factory for the "secret" tag.
func NewSecret(arg interface{}, sessions *session.Cache) (stack.Resolver, error) {
	id, err := stringArg("secret", arg)
	if err != nil {
		return nil, err
	}
	return &Secret{ID: id, sessions: sessions}, nil
}

func (r *Secret) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	cfg, err := r.sessions.Config(ctx, session.Options{})
	if err != nil {
		return nil, errors.ResolutionError("secret", "loading AWS config", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(r.ID),
	})
	if err != nil {
		return nil, errors.ResolutionError("secret", fmt.Sprintf("fetching secret %q", r.ID), err)
	}

	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}

func parseS3URL(ref string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(ref, "s3://")
	if trimmed == ref {
		return "", "", fmt.Errorf("s3 reference must start with s3://, got %q", ref)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("s3 reference must be s3://bucket/key, got %q", ref)
	}
	return parts[0], parts[1], nil
}
