// Package updater replaces the running binary with the latest GitHub
// release. Downloads are checksum-verified, origin-restricted, and
// size-capped; the swap itself is a rename in the binary's own directory
// so a crash can't leave a half-written executable on PATH.
package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goversion "github.com/hashicorp/go-version"
)

const (
	repo          = "adeonir/veiled"
	httpTimeout   = 30 * time.Second
	maxBinarySize = 10 << 20
	maxRetries    = 3
)

var trustedOrigins = []string{
	"https://github.com/",
	"https://objects.githubusercontent.com/",
}

// Result describes the outcome of a Check.
type Result struct {
	Updated    bool
	OldVersion string
	NewVersion string
}

type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Updater checks for and installs releases. Version is the running build's
// version string; apiBase is overridable for tests.
type Updater struct {
	Version string
	apiBase string
	client  *http.Client
}

// New returns an updater for the given running version.
func New(version string) *Updater {
	return &Updater{
		Version: version,
		apiBase: "https://api.github.com",
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Check queries the latest release and, when newer than the running
// version, downloads and installs it.
func (u *Updater) Check() (*Result, error) {
	current, err := parseVersion(u.Version)
	if err != nil {
		return nil, fmt.Errorf("parsing current version %q: %w", u.Version, err)
	}

	rel, err := u.latestRelease()
	if err != nil {
		return nil, err
	}

	latest, err := parseVersion(rel.TagName)
	if err != nil {
		return nil, fmt.Errorf("parsing release tag %q: %w", rel.TagName, err)
	}

	res := &Result{OldVersion: u.Version, NewVersion: rel.TagName}
	if latest.LessThanOrEqual(current) {
		return res, nil
	}

	assetName := platformAssetName()
	binary := findAsset(rel.Assets, assetName)
	if binary == nil {
		return nil, fmt.Errorf("no binary available for this platform (%s)", assetName)
	}
	checksum := findAsset(rel.Assets, assetName+".sha256")
	if checksum == nil {
		return nil, fmt.Errorf("no checksum available for this platform (%s.sha256)", assetName)
	}

	if err := u.downloadAndReplace(binary.DownloadURL, checksum.DownloadURL); err != nil {
		return nil, err
	}

	res.Updated = true
	return res, nil
}

func (u *Updater) latestRelease() (*release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, repo)

	var rel release
	fetch := func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "veiled")

		resp, err := u.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("release query: %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&rel)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	if err := backoff.Retry(fetch, policy); err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	return &rel, nil
}

func (u *Updater) downloadAndReplace(binaryURL, checksumURL string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving binary path: %w", err)
	}

	if err := validateDownloadURL(binaryURL); err != nil {
		return err
	}
	if err := validateDownloadURL(checksumURL); err != nil {
		return err
	}

	checksumContent, err := u.fetch(checksumURL, 1024)
	if err != nil {
		return fmt.Errorf("downloading checksum: %w", err)
	}
	expected, err := parseChecksum(string(checksumContent))
	if err != nil {
		return err
	}

	data, err := u.fetch(binaryURL, maxBinarySize)
	if err != nil {
		return fmt.Errorf("downloading update: %w", err)
	}

	sum := sha256.Sum256(data)
	if actual := hex.EncodeToString(sum[:]); actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}

	dir := filepath.Dir(binaryPath)
	tmp, err := os.CreateTemp(dir, "veiled.update.*")
	if err != nil {
		return fmt.Errorf("creating temp binary: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing update: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		return fmt.Errorf("marking update executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing update: %w", err)
	}
	if err := os.Rename(tmpPath, binaryPath); err != nil {
		return fmt.Errorf("installing update: %w", err)
	}
	return nil
}

// fetch downloads at most limit bytes from url, erroring when the payload
// exceeds the cap.
func (u *Updater) fetch(url string, limit int64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "veiled")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("download exceeds %d byte limit", limit)
	}
	return data, nil
}

func validateDownloadURL(url string) error {
	for _, origin := range trustedOrigins {
		if strings.HasPrefix(url, origin) {
			return nil
		}
	}
	return fmt.Errorf("untrusted download origin: %s", url)
}

func platformAssetName() string {
	arch := "x64"
	if runtime.GOARCH == "arm64" {
		arch = "arm64"
	}
	return "veiled-macos-" + arch
}

func parseVersion(tag string) (*goversion.Version, error) {
	return goversion.NewVersion(strings.TrimPrefix(tag, "v"))
}

// parseChecksum extracts the digest from a `sha256sum` style file: the
// first whitespace-separated field must be 64 hex characters.
func parseChecksum(content string) (string, error) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return "", errors.New("empty checksum file")
	}
	digest := strings.ToLower(fields[0])
	if len(digest) != 64 {
		return "", fmt.Errorf("invalid SHA-256 digest: %s", fields[0])
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("invalid SHA-256 digest: %s", fields[0])
	}
	return digest, nil
}

func findAsset(assets []asset, name string) *asset {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i]
		}
	}
	return nil
}
