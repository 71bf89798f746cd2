package mocks

import (
	"context"
	"uxreview/internal/llm/client"
	"uxreview/internal/models"
)

type ImageResolverMock struct {
	ResolveFunc func(ctx context.Context, screens []models.Screen) ([]client.Image, []string, error)
}

// Resolve returns a fake PNG payload per screen unless ResolveFunc is set.
func (m *ImageResolverMock) Resolve(ctx context.Context, screens []models.Screen) ([]client.Image, []string, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, screens)
	}
	images := make([]client.Image, 0, len(screens))
	for _, s := range screens {
		images = append(images, client.Image{ScreenID: s.ID, Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"})
	}
	return images, []string{}, nil
}
