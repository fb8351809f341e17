package tools

import "context"

// WebFetcher reads pages, headlines and video transcripts.
type WebFetcher interface {
	ReadPage(ctx context.Context, url string) (string, error)
	Headlines(ctx context.Context, url string, count int) (string, error)
	Transcript(ctx context.Context, videoURL string) (string, error)
}

const defaultHeadlines = 10

type webTools struct {
	fetcher WebFetcher
}

func (w webTools) readPage(ctx context.Context, call Call) (string, error) {
	url, err := required(call.Args, "url")
	if err != nil {
		return "", err
	}
	return w.fetcher.ReadPage(ctx, url)
}

func (w webTools) youtube(ctx context.Context, call Call) (string, error) {
	url, err := required(call.Args, "video_url", "url")
	if err != nil {
		return "", err
	}
	return w.fetcher.Transcript(ctx, url)
}

func (w webTools) headlines(ctx context.Context, call Call) (string, error) {
	url, err := required(call.Args, "url")
	if err != nil {
		return "", err
	}
	return w.fetcher.Headlines(ctx, url, integer(call.Args, "count", defaultHeadlines))
}
