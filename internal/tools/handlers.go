package tools

import (
	"context"
	"encoding/json"

	"github.com/ironsheep/promptshop-mcp/internal/config"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

func (d *Dispatcher) handleGenerate(ctx context.Context, raw json.RawMessage) (resource.Resource, error) {
	var args generateArgs
	if err := decodeArgs(raw, &args); err != nil {
		return resource.Resource{}, err
	}
	if err := args.validate(); err != nil {
		return resource.Resource{}, err
	}
	if d.svc.Generator == nil {
		return resource.Resource{}, notConfigured(config.EnvGeminiAPIKey)
	}

	img, err := d.svc.Generator.Generate(ctx, upstream.GenerateRequest{
		Prompt:      args.Prompt,
		Temperature: args.Temperature,
		TopP:        args.TopP,
		TopK:        args.TopK,
	})
	if err != nil {
		return resource.Resource{}, upstreamFailure(upstream.ServiceGemini, err)
	}

	return d.register(resource.Resource{
		Origin:   resource.OriginGenerated,
		Location: resource.Location{Data: img.Data},
		MimeType: img.MimeType,
		Prompt:   args.Prompt,
	}, true)
}

func (d *Dispatcher) handleEdit(ctx context.Context, raw json.RawMessage) (resource.Resource, error) {
	var args editArgs
	if err := decodeArgs(raw, &args); err != nil {
		return resource.Resource{}, err
	}
	if err := args.validate(); err != nil {
		return resource.Resource{}, err
	}
	if d.svc.Generator == nil {
		return resource.Resource{}, notConfigured(config.EnvGeminiAPIKey)
	}

	var (
		source upstream.Image
		parent string
	)
	if args.SourceID != "" {
		src, err := d.registry.Lookup(args.SourceID)
		if err != nil {
			return resource.Resource{}, err
		}
		if source, err = d.sourceImage(ctx, src); err != nil {
			return resource.Resource{}, err
		}
		parent = src.ID
	} else {
		if d.svc.Fetcher == nil {
			return resource.Resource{}, upstreamFailure(upstream.ServiceDownload, errNoFetcher)
		}
		img, err := d.svc.Fetcher.Fetch(ctx, args.ImageURL)
		if err != nil {
			return resource.Resource{}, upstreamFailure(upstream.ServiceDownload, err)
		}
		source = *img
	}

	img, err := d.svc.Generator.Generate(ctx, upstream.GenerateRequest{
		Prompt:      args.Instruction,
		Source:      &source,
		Temperature: args.Temperature,
		TopP:        args.TopP,
		TopK:        args.TopK,
	})
	if err != nil {
		return resource.Resource{}, upstreamFailure(upstream.ServiceGemini, err)
	}

	return d.register(resource.Resource{
		Origin:    resource.OriginEdited,
		Location:  resource.Location{Data: img.Data},
		MimeType:  img.MimeType,
		ParentID:  parent,
		Prompt:    args.Instruction,
		SourceURL: args.ImageURL,
	}, true)
}

func (d *Dispatcher) handleRemoveBackground(ctx context.Context, raw json.RawMessage) (resource.Resource, error) {
	var args sourceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return resource.Resource{}, err
	}
	if err := args.validate(); err != nil {
		return resource.Resource{}, err
	}
	if d.svc.BackgroundRemover == nil {
		return resource.Resource{}, notConfigured(config.EnvRemoveBGAPIKey)
	}

	src, err := d.registry.Lookup(args.SourceID)
	if err != nil {
		return resource.Resource{}, err
	}
	source, err := d.sourceImage(ctx, src)
	if err != nil {
		return resource.Resource{}, err
	}

	img, err := d.svc.BackgroundRemover.RemoveBackground(ctx, source)
	if err != nil {
		return resource.Resource{}, upstreamFailure(upstream.ServiceRemoveBG, err)
	}

	return d.register(resource.Resource{
		Origin:   resource.OriginBackgroundRemoved,
		Location: resource.Location{Data: img.Data},
		MimeType: img.MimeType,
		ParentID: src.ID,
	}, true)
}

func (d *Dispatcher) handleHost(ctx context.Context, raw json.RawMessage) (resource.Resource, error) {
	var args sourceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return resource.Resource{}, err
	}
	if err := args.validate(); err != nil {
		return resource.Resource{}, err
	}
	if d.svc.Host == nil {
		return resource.Resource{}, notConfigured(config.EnvFreeImageAPIKey)
	}

	src, err := d.registry.Lookup(args.SourceID)
	if err != nil {
		return resource.Resource{}, err
	}
	source, err := d.sourceImage(ctx, src)
	if err != nil {
		return resource.Resource{}, err
	}

	hosted, err := d.svc.Host.Upload(ctx, source)
	if err != nil {
		return resource.Resource{}, upstreamFailure(upstream.ServiceFreeImage, err)
	}
	if hosted == nil || !upstream.WellFormedURL(hosted.URL) {
		return resource.Resource{}, &upstream.UpstreamError{
			Service: upstream.ServiceFreeImage,
			Kind:    upstream.KindResponse,
			Message: "hosting service returned no usable URL",
		}
	}

	return d.register(resource.Resource{
		Origin:   resource.OriginHosted,
		Location: resource.Location{Data: source.Data, URL: hosted.URL},
		MimeType: source.MimeType,
		ParentID: src.ID,
	}, false)
}
