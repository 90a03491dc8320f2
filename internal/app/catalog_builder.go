package app

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
)

// MediaResolver resolves one tier of one media item
type MediaResolver interface {
	Resolve(ctx context.Context, canonicalURL string, tier domain.QualityTier, opts domain.ResolveOptions) (*domain.ResolvedStream, error)
}

// CatalogBuilder produces the options offered for a media item without resolving them
type CatalogBuilder struct {
	resolver MediaResolver
	catalog  domain.QualityCatalog
	links    *LinkBuilder
	config   *domain.ResolverConfig
	logger   *zap.Logger
}

// NewCatalogBuilder creates a new catalog builder
func NewCatalogBuilder(
	resolver MediaResolver,
	catalog domain.QualityCatalog,
	links *LinkBuilder,
	config *domain.ResolverConfig,
	logger *zap.Logger,
) *CatalogBuilder {
	if catalog == nil {
		catalog = domain.DefaultQualityCatalog()
	}
	if links == nil {
		links = NewLinkBuilder("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogBuilder{
		resolver: resolver,
		catalog:  catalog,
		links:    links,
		config:   config,
		logger:   logger,
	}
}

// Build returns the catalog for canonicalURL. Only the optional preview is resolved eagerly,
// and its failure never fails the catalog.
func (b *CatalogBuilder) Build(ctx context.Context, canonicalURL string) (*domain.StreamCatalog, error) {
	canonical, videoID, err := domain.Canonicalize(canonicalURL)
	if err != nil {
		return nil, err
	}

	video := lo.Map(b.catalog.VideoTiers(), func(tier domain.QualityTier, _ int) domain.DeferredOption {
		return domain.DeferredOption{
			Quality:  tier.Label(),
			Tier:     tier,
			Format:   tier.Container(),
			HasAudio: true,
			HasVideo: true,
			URL:      b.links.Resolve(canonical, tier, 0),
		}
	})

	audio := lo.Map(b.catalog.AudioBitrates(), func(bitrate int, _ int) domain.DeferredOption {
		return domain.DeferredOption{
			Quality:      fmt.Sprintf("%dkbps", bitrate),
			Tier:         domain.QualityMP3,
			Format:       domain.QualityMP3.Container(),
			AudioBitrate: bitrate,
			HasAudio:     true,
			HasVideo:     false,
			URL:          b.links.Resolve(canonical, domain.QualityMP3, bitrate),
		}
	})

	result := &domain.StreamCatalog{
		VideoID:      videoID,
		CanonicalURL: canonical,
		Thumbnail:    domain.ThumbnailURL(videoID),
		VideoFormats: video,
		AudioFormats: audio,
	}

	if preview := b.preview(ctx, canonical); preview != nil {
		result.PreviewStream = preview
		result.Title = preview.Title
		result.PreviewProxyURL = b.links.Proxy(preview.DirectURL)
	}

	all := append(append([]domain.DeferredOption{}, video...), audio...)
	result.Summary = domain.CatalogSummary{
		TotalVideo:         len(video),
		TotalAudio:         len(audio),
		AvailableQualities: lo.Uniq(lo.Map(all, func(o domain.DeferredOption, _ int) string { return o.Quality })),
		AvailableFormats:   lo.Uniq(lo.Map(all, func(o domain.DeferredOption, _ int) string { return o.Format })),
		HasPreview:         result.PreviewStream != nil,
	}

	return result, nil
}

func (b *CatalogBuilder) preview(ctx context.Context, canonical string) *domain.ResolvedStream {
	if !b.config.PreviewEnabled {
		return nil
	}

	tier, err := domain.ParseQualityTier(b.config.PreviewQuality)
	if err != nil {
		b.logger.Warn("Invalid preview quality, skipping preview",
			zap.String("preview_quality", b.config.PreviewQuality))
		return nil
	}

	stream, err := b.resolver.Resolve(ctx, canonical, tier, domain.DefaultResolveOptions())
	if err != nil {
		b.logger.Warn("Preview resolution failed, omitting preview",
			zap.String("url", canonical),
			zap.String("tier", tier.Label()),
			zap.Error(err))
		return nil
	}
	return stream
}
