package template

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/stackforge/stackctl/pkg/provider/session"
)

// FileSource reads templates from the local filesystem, optionally rooted
// at a base directory.
type FileSource struct {
	BaseDir string
}

func (f *FileSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	path := ref
	if f.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %q: %w", ref, err)
	}
	return data, nil
}

// S3Source reads templates from S3 via the shared session cache.
type S3Source struct {
	Sessions *session.Cache
}

func (s *S3Source) Fetch(ctx context.Context, ref string) ([]byte, error) {
	trimmed := strings.TrimPrefix(ref, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("template reference must be s3://bucket/key, got %q", ref)
	}

	cfg, err := s.Sessions.Config(ctx, session.Options{})
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(parts[0]),
		Key:    aws.String(parts[1]),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching template %q: %w", ref, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// GitSource reads templates from a git repository. References look like
// git::https://github.com/org/repo.git//path/to/template.yml?ref=branch
// and are cloned shallowly into a per-repo cache directory.
type GitSource struct {
	CacheDir string
}

func (g *GitSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	parts := strings.SplitN(ref, "::", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid git template reference %q", ref)
	}

	gitURL := parts[1]
	subPath := ""
	gitRef := "main"

	if idx := strings.Index(gitURL, "//"); idx != -1 {
		// Skip the scheme's own "//" when present.
		if schemeEnd := strings.Index(gitURL, "://"); schemeEnd != -1 {
			idx = strings.Index(gitURL[schemeEnd+3:], "//")
			if idx == -1 {
				return nil, fmt.Errorf("git template reference %q missing //path", ref)
			}
			idx += schemeEnd + 3
		}
		subPath = gitURL[idx+2:]
		gitURL = gitURL[:idx]

		if qIdx := strings.Index(subPath, "?"); qIdx != -1 {
			query := subPath[qIdx+1:]
			subPath = subPath[:qIdx]
			for _, param := range strings.Split(query, "&") {
				kv := strings.SplitN(param, "=", 2)
				if len(kv) == 2 && kv[0] == "ref" {
					gitRef = kv[1]
				}
			}
		}
	}
	if subPath == "" {
		return nil, fmt.Errorf("git template reference %q missing //path", ref)
	}

	cacheDir := g.CacheDir
	if cacheDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cacheDir = filepath.Join(homeDir, ".stackctl", "cache", "templates")
	}

	cacheKey := strings.NewReplacer("/", "_", ":", "_", ".", "_").Replace(gitURL)
	repoDir := filepath.Join(cacheDir, cacheKey, gitRef)

	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		if err := gitClone(ctx, gitURL, gitRef, repoDir); err != nil {
			return nil, fmt.Errorf("failed to clone repository: %w", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(repoDir, subPath))
	if err != nil {
		return nil, fmt.Errorf("reading template %q: %w", ref, err)
	}
	return data, nil
}

func gitClone(ctx context.Context, url, ref, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	cloneOpts := &git.CloneOptions{
		URL:           url,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
	}

	// Try as a branch first, then as a tag.
	_, err := git.PlainCloneContext(ctx, dest, false, cloneOpts)
	if err != nil {
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(ref)
		_, err = git.PlainCloneContext(ctx, dest, false, cloneOpts)
		if err != nil {
			return fmt.Errorf("git clone failed: %w", err)
		}
	}
	return nil
}

// DefaultRegistry returns a registry with the file, s3, and git sources.
func DefaultRegistry(baseDir string, sessions *session.Cache) *Registry {
	r := NewRegistry()
	r.Register("file", &FileSource{BaseDir: baseDir})
	r.Register("s3", &S3Source{Sessions: sessions})
	r.Register("git", &GitSource{})
	return r
}
