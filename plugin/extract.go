package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/auplugins/au"
	"github.com/lehigh-university-libraries/auplugins/iterator"
	"github.com/lehigh-university-libraries/auplugins/metadata"
	"github.com/lehigh-university-libraries/auplugins/store"
)

// MetadataURL picks the document metadata is read from.
func (p *Plugin) MetadataURL(af *iterator.ArticleFiles) string {
	roles := p.MetadataRoles
	if len(roles) == 0 {
		roles = DefaultMetadataRoles
	}
	if _, u := af.FirstRoleURL(roles...); u != "" {
		return u
	}
	return af.FullTextURL
}

// ExtractArticle reads the article's metadata document from st and returns
// the finished record. Articles whose document type has no extractor get a
// record holding only the access URL.
func (p *Plugin) ExtractArticle(ctx context.Context, cfg au.Config, st store.Store, af *iterator.ArticleFiles) (*metadata.Record, error) {
	url := p.MetadataURL(af)
	hc := metadata.HookContext{URL: url, Files: af, Config: cfg}

	entry, err := st.Stat(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", url, err)
	}
	ex, ok := p.Extractor(entry.MimeType())
	if !ok || ex.File == nil {
		slog.Debug("no metadata extractor", "plugin", p.ID, "url", url, "mime", entry.MimeType())
		return (&metadata.Extractor{}).Finish(hc, metadata.NewRawBag()), nil
	}

	rc, err := st.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ex.Extract(ctx, rc, hc)
}

// ExtractAll iterates the AU and emits one record per article. A failure on
// one article is logged and the scan continues; emitter and store listing
// errors stop it.
func (p *Plugin) ExtractAll(ctx context.Context, cfg au.Config, st store.Store, emit metadata.Emitter) (iterator.Stats, error) {
	it, err := p.NewIterator(cfg, st)
	if err != nil {
		return iterator.Stats{}, err
	}
	err = it.Each(ctx, func(af *iterator.ArticleFiles) error {
		rec, err := p.ExtractArticle(ctx, cfg, st, af)
		if err != nil {
			slog.Warn("metadata extraction failed", "plugin", p.ID, "url", af.FullTextURL, "error", err)
			return nil
		}
		return emit.Emit(rec)
	})
	return it.Stats(), err
}
