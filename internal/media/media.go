package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quotebot/quotebot/internal/image"
	"github.com/quotebot/quotebot/internal/logger"
)

// MaxDownloadSize caps a single downloaded image. Telegram rejects larger photos anyway.
const MaxDownloadSize = 20 << 20

var errTooLarge = errors.New("image exceeds size limit")

// Media is an image ready for upload. Exactly one of Path and Data is set:
// Path for downloaded files in the transient directory, Data for decoded
// inline images that never touch disk.
type Media struct {
	Path string
	Data []byte
	Name string

	once sync.Once
}

// Remove deletes the backing file, if any. It is safe to call on nil and
// more than once.
func (m *Media) Remove() {
	if m == nil || m.Path == "" {
		return
	}
	m.once.Do(func() {
		if err := os.Remove(m.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove temporary image", map[string]interface{}{
				"path":  m.Path,
				"error": err.Error(),
			})
			return
		}
		logger.Debug("Temporary image removed", map[string]interface{}{
			"path": m.Path,
		})
	})
}

// OnDisk reports whether the media is backed by a file.
func (m *Media) OnDisk() bool {
	return m != nil && m.Path != ""
}

// Materializer turns image references into uploadable media.
type Materializer struct {
	dir    string
	client *http.Client
	now    func() time.Time
}

func NewMaterializer(dir string, timeout time.Duration) *Materializer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Materializer{
		dir:    dir,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (m *Materializer) Dir() string {
	return m.dir
}

// Materialize returns nil for a none reference and on any failure; failures
// are logged.
func (m *Materializer) Materialize(ctx context.Context, ref image.Reference) *Media {
	if ref.IsNone() {
		return nil
	}

	var (
		media *Media
		err   error
	)
	switch ref.Kind {
	case image.KindURL:
		media, err = m.download(ctx, ref.Value)
	case image.KindInlineData:
		media, err = m.decode(ref.Value)
	default:
		err = fmt.Errorf("unsupported reference kind %q", ref.Kind)
	}

	if err != nil {
		logger.Warn("Failed to materialize image", map[string]interface{}{
			"kind":  string(ref.Kind),
			"error": err.Error(),
		})
		return nil
	}
	return media
}

func (m *Materializer) download(ctx context.Context, rawURL string) (*Media, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	name := m.uniqueName(extFromURL(rawURL))
	target := filepath.Join(m.dir, name)

	f, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err == nil && n > MaxDownloadSize {
		err = errTooLarge
	}
	if err == nil && n == 0 {
		err = errors.New("empty image body")
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	logger.Debug("Image downloaded", map[string]interface{}{
		"path": target,
		"size": n,
	})

	return &Media{Path: target, Name: name}, nil
}

func (m *Materializer) decode(b64 string) (*Media, error) {
	// Some providers prefix a data URI header.
	if i := strings.Index(b64, ";base64,"); i >= 0 {
		b64 = b64[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("inline image is empty")
	}
	if len(data) > MaxDownloadSize {
		return nil, errTooLarge
	}

	return &Media{Data: data, Name: m.uniqueName(".jpg")}, nil
}

// uniqueName formats quote_YYYYMMDD_HHMMSS_<uuid>.ext
func (m *Materializer) uniqueName(ext string) string {
	return fmt.Sprintf("quote_%s_%s%s", m.now().Format("20060102_150405"), uuid.NewString(), ext)
}

// Purge removes the transient directory with everything still in it.
func (m *Materializer) Purge() error {
	if m.dir == "" {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove temp dir: %w", err)
	}
	logger.Info("Temporary directory removed", map[string]interface{}{
		"dir": m.dir,
	})
	return nil
}

func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	}
	return ".jpg"
}
