package imagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	gcr "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	gcrtarball "github.com/google/go-containerregistry/pkg/v1/tarball"

	"infometis/internal/api"
	"infometis/internal/containerizer"
	"infometis/pkg/logging"
)

const (
	subsystem = "ImageCache"
	indexFile = "images.json"

	// DefaultTimeout bounds a single fetch or transfer. Images such as NiFi
	// and Elasticsearch are several hundred megabytes.
	DefaultTimeout = 30 * time.Minute
)

// Fetcher retrieves an image from a registry.
type Fetcher interface {
	Fetch(ctx context.Context, ref name.Reference) (gcr.Image, error)
}

// RemoteFetcher pulls from the registry named by the reference using the
// local docker credentials.
type RemoteFetcher struct{}

func (RemoteFetcher) Fetch(ctx context.Context, ref name.Reference) (gcr.Image, error) {
	return remote.Image(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

// Config configures the cache.
type Config struct {
	// Dir holds the image tarballs and the index.
	Dir string
	// ClusterContainer is the k0s container images are transferred into.
	ClusterContainer string
	FetchTimeout     time.Duration
	TransferTimeout  time.Duration
}

// Entry describes one cached image.
type Entry struct {
	Image    string    `json:"image"`
	File     string    `json:"file"`
	Digest   string    `json:"digest,omitempty"`
	Size     int64     `json:"size"`
	CachedAt time.Time `json:"cachedAt"`
}

// Cache keeps image tarballs on disk so the platform can be deployed
// without registry access, and loads them into the cluster's containerd.
type Cache struct {
	cfg     Config
	fetcher Fetcher
	runtime containerizer.ContainerRuntime

	mu sync.Mutex
}

// Option customises a Cache.
type Option func(*Cache)

// WithFetcher replaces the registry fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) { c.fetcher = f }
}

// New creates a cache rooted at cfg.Dir.
func New(cfg Config, runtime containerizer.ContainerRuntime, opts ...Option) *Cache {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultTimeout
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = DefaultTimeout
	}
	c := &Cache{cfg: cfg, fetcher: RemoteFetcher{}, runtime: runtime}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileName maps an image reference onto its tarball name.
func FileName(image string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "@", "_")
	return r.Replace(image) + ".tar"
}

// Has reports whether the image tarball is present in the cache.
func (c *Cache) Has(image string) bool {
	_, ok := c.Path(image)
	return ok
}

// Path returns the tarball of image when it is cached. The tarball is in
// the format docker load accepts.
func (c *Cache) Path(image string) (string, bool) {
	path := filepath.Join(c.cfg.Dir, FileName(image))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Ensure makes sure the image is cached, fetching it if needed. A reference
// that does not parse or cannot be fetched yields api.ImageUnavailableError.
func (c *Cache) Ensure(ctx context.Context, image string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.readIndex()
	if err != nil {
		return nil, err
	}
	if e, ok := index[image]; ok && c.Has(image) {
		return &e, nil
	}

	ref, err := name.ParseReference(image)
	if err != nil {
		return nil, &api.ImageUnavailableError{Image: image, Err: err}
	}

	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	logging.Info(subsystem, "Fetching %s", image)
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	img, err := c.fetcher.Fetch(fetchCtx, ref)
	if err != nil {
		entry, saveErr := c.saveLocal(fetchCtx, image)
		if saveErr != nil {
			logging.Debug(subsystem, "No local copy of %s: %v", image, saveErr)
			return nil, &api.ImageUnavailableError{Image: image, Err: err}
		}
		logging.Warn(subsystem, "Registry fetch of %s failed, cached the local copy: %v", image, err)
		index[image] = *entry
		if err := c.writeIndex(index); err != nil {
			return nil, err
		}
		return entry, nil
	}

	final := filepath.Join(c.cfg.Dir, FileName(image))
	tmp := final + ".partial"
	if err := gcrtarball.WriteToFile(tmp, ref, img); err != nil {
		_ = os.Remove(tmp)
		if ctxErr := fetchCtx.Err(); ctxErr != nil {
			return nil, &api.ImageUnavailableError{Image: image, Err: ctxErr}
		}
		return nil, &api.ImageUnavailableError{Image: image, Err: err}
	}
	if err := os.Rename(tmp, final); err != nil {
		return nil, fmt.Errorf("store %s: %w", image, err)
	}

	entry := Entry{Image: image, File: FileName(image), CachedAt: time.Now().UTC()}
	if digest, err := img.Digest(); err == nil {
		entry.Digest = digest.String()
	}
	if info, err := os.Stat(final); err == nil {
		entry.Size = info.Size()
	}

	index[image] = entry
	if err := c.writeIndex(index); err != nil {
		return nil, err
	}
	logging.Info(subsystem, "Cached %s (%d bytes)", image, entry.Size)
	return &entry, nil
}

// saveLocal writes an image from the container runtime's local store into
// the cache, for images built locally or pulled before going offline.
func (c *Cache) saveLocal(ctx context.Context, image string) (*Entry, error) {
	if c.runtime == nil {
		return nil, errors.New("no container runtime")
	}
	exists, err := c.runtime.ImageExists(ctx, image)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("image %s not in the local store", image)
	}

	final := filepath.Join(c.cfg.Dir, FileName(image))
	tmp := final + ".partial"
	if err := c.runtime.SaveImage(ctx, image, tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", image, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return nil, fmt.Errorf("store %s: %w", image, err)
	}
	return &Entry{Image: image, File: FileName(image), Size: info.Size(), CachedAt: time.Now().UTC()}, nil
}

// CacheAll ensures every image, continuing past failures. The returned
// error joins every failure.
func (c *Cache) CacheAll(ctx context.Context, images []string) error {
	var errs []error
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Ensure(ctx, image); err != nil {
			logging.Error(subsystem, err, "Failed to cache %s", image)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Transfer imports a cached image into the cluster container's containerd,
// caching it first when needed.
func (c *Cache) Transfer(ctx context.Context, image string) error {
	entry, err := c.Ensure(ctx, image)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TransferTimeout)
	defer cancel()

	src := filepath.Join(c.cfg.Dir, entry.File)
	dst := "/tmp/" + entry.File
	logging.Info(subsystem, "Transferring %s into %s", image, c.cfg.ClusterContainer)

	if err := c.runtime.CopyTo(ctx, c.cfg.ClusterContainer, src, dst); err != nil {
		return fmt.Errorf("transfer %s: %w", image, err)
	}
	defer func() {
		// best effort, the tarball in /tmp is only a staging copy
		_, _ = c.runtime.Exec(context.WithoutCancel(ctx), c.cfg.ClusterContainer, "rm", "-f", dst)
	}()

	if _, err := c.runtime.Exec(ctx, c.cfg.ClusterContainer, "k0s", "ctr", "-n", "k8s.io", "images", "import", dst); err != nil {
		return fmt.Errorf("import %s into cluster: %w", image, err)
	}
	return nil
}

// TransferAll imports every cached image into the cluster.
func (c *Cache) TransferAll(ctx context.Context) error {
	entries, err := c.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Transfer(ctx, e.Image); err != nil {
			logging.Error(subsystem, err, "Failed to transfer %s", e.Image)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InCluster reports whether containerd inside the cluster container already
// has the image.
func (c *Cache) InCluster(ctx context.Context, image string) (bool, error) {
	out, err := c.runtime.Exec(ctx, c.cfg.ClusterContainer, "k0s", "ctr", "-n", "k8s.io", "images", "ls", "-q")
	if err != nil {
		return false, err
	}
	want := clusterSuffix(image)
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), want) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureInCluster makes the image available to the cluster, loading it
// from the cache (and fetching into the cache) when containerd lacks it.
func (c *Cache) EnsureInCluster(ctx context.Context, image string) error {
	present, err := c.InCluster(ctx, image)
	if err != nil {
		logging.Warn(subsystem, "Could not list cluster images, transferring %s anyway: %v", image, err)
	}
	if present {
		logging.Debug(subsystem, "Image %s already present in cluster", image)
		return nil
	}
	return c.Transfer(ctx, image)
}

// List returns every cached image sorted by reference.
func (c *Cache) List() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.readIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(index))
	for _, e := range index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Image < entries[j].Image })
	return entries, nil
}

// clusterSuffix returns the repository:tag (or @digest) form containerd
// lists, without the registry host.
func clusterSuffix(image string) string {
	ref, err := name.ParseReference(image)
	if err != nil {
		return image
	}
	repo := ref.Context().RepositoryStr()
	switch r := ref.(type) {
	case name.Tag:
		return repo + ":" + r.TagStr()
	case name.Digest:
		return repo + "@" + r.DigestStr()
	}
	return repo
}

func (c *Cache) readIndex() (map[string]Entry, error) {
	index := make(map[string]Entry)
	data, err := os.ReadFile(filepath.Join(c.cfg.Dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image index: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse image index: %w", err)
	}
	for _, e := range entries {
		index[e.Image] = e
	}
	return index, nil
}

func (c *Cache) writeIndex(index map[string]Entry) error {
	entries := make([]Entry, 0, len(index))
	for _, e := range index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Image < entries[j].Image })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode image index: %w", err)
	}
	path := filepath.Join(c.cfg.Dir, indexFile)
	if err := os.WriteFile(path+".tmp", data, 0o644); err != nil {
		return fmt.Errorf("write image index: %w", err)
	}
	return os.Rename(path+".tmp", path)
}
