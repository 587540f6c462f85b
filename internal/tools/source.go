package tools

import (
	"context"
	"errors"

	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

var errNoFetcher = errors.New("no downloader configured")

// sourceImage returns the bytes of a registered resource. Resources that
// only carry a remote URL are downloaded.
func (d *Dispatcher) sourceImage(ctx context.Context, res resource.Resource) (upstream.Image, error) {
	if len(res.Location.Data) > 0 {
		return upstream.Image{Data: res.Location.Data, MimeType: res.MimeType}, nil
	}
	if d.svc.Fetcher == nil {
		return upstream.Image{}, upstreamFailure(upstream.ServiceDownload, errNoFetcher)
	}
	img, err := d.svc.Fetcher.Fetch(ctx, res.Location.URL)
	if err != nil {
		return upstream.Image{}, upstreamFailure(upstream.ServiceDownload, err)
	}
	return *img, nil
}

// register records res, first writing a disk copy when save is set and
// the dispatcher has a store. A failed disk write is logged and otherwise
// ignored; the bytes stay available in memory.
func (d *Dispatcher) register(res resource.Resource, save bool) (resource.Resource, error) {
	if save && d.store != nil {
		path, err := d.store.Save(string(res.Origin), res.Location.Data, res.MimeType)
		if err != nil {
			d.log.Warn().Err(err).Str("origin", string(res.Origin)).Msg("failed to save image to disk")
		} else {
			res.Location.Path = path
		}
	}

	id, err := d.registry.Register(res)
	if err != nil {
		return resource.Resource{}, err
	}
	return d.registry.Lookup(id)
}
