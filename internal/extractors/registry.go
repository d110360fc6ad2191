package extractors

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/loupe-search/loupe/internal/core/domain"
	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

// Budget defaults. Overridable via config at registry construction.
const (
	// DefaultMaxBytes is the most that is read from any one file.
	DefaultMaxBytes = 4 << 20

	// DefaultMaxTokens is the most tokens kept per file.
	DefaultMaxTokens = 10000

	// DefaultTimeout bounds one extraction.
	DefaultTimeout = 10 * time.Second

	// extractionsPerSecond throttles aggregate extraction I/O so a
	// large scan does not starve query traffic of disk bandwidth.
	extractionsPerSecond = 200
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps declared types to extractors.
// Registration happens once at startup; lookups are unsynchronized.
type Registry struct {
	byType  map[string]driven.Extractor
	limiter *rate.Limiter
	timeout time.Duration
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:  make(map[string]driven.Extractor),
		limiter: rate.NewLimiter(rate.Limit(extractionsPerSecond), extractionsPerSecond),
		timeout: DefaultTimeout,
	}
}

// NewDefaultRegistry creates a registry with the built-in extractors
// registered, honouring the given byte and token budgets (zero means
// the default).
func NewDefaultRegistry(maxBytes int64, maxTokens int) *Registry {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	r := NewRegistry()
	r.Register(NewPlaintext(maxBytes, maxTokens))
	r.Register(NewMarkdown(maxBytes, maxTokens))
	return r
}

// Register adds an extractor for all of its declared types.
// Later registrations win on conflict.
func (r *Registry) Register(e driven.Extractor) {
	for _, t := range e.DeclaredTypes() {
		r.byType[t] = e
	}
}

// ExtractorFor returns the extractor for a declared type.
func (r *Registry) ExtractorFor(declaredType string) (driven.Extractor, error) {
	e, ok := r.byType[declaredType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, declaredType)
	}
	return e, nil
}

// Extract dispatches to the matching extractor under the time budget
// and the global extraction rate limit.
func (r *Registry) Extract(ctx context.Context, path, declaredType string) ([]string, error) {
	e, err := r.ExtractorFor(declaredType)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("extraction throttle: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tokens, err := e.Extract(ctx, path)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("extracting %s: %w", path, domain.ErrExtractionBudget)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	return tokens, nil
}

// DeclaredTypes returns all registered declared types.
func (r *Registry) DeclaredTypes() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	return types
}

// DeclaredTypeFor derives a declared type from a path's extension.
// Unknown extensions yield "", which no extractor handles.
func DeclaredTypeFor(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "md", "markdown":
		return "text/markdown"
	case "txt", "text", "log", "csv", "json", "yaml", "yml", "toml", "xml",
		"ini", "conf", "cfg", "html", "htm", "css", "js", "ts", "go", "py",
		"rs", "java", "c", "h", "cpp", "hpp", "rb", "sh", "sql":
		return "text/plain"
	default:
		return ""
	}
}
