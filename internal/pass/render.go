package pass

import (
	"fmt"
	"net/url"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize     = 250
)

// Renderer turns pass payloads into scannable images. Emails link to the
// public rendering endpoint; the API renders PNGs locally.
type Renderer struct {
	Endpoint string
	Size     int
}

func NewRenderer(endpoint string, size int) Renderer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if size <= 0 {
		size = DefaultSize
	}
	return Renderer{Endpoint: endpoint, Size: size}
}

func (r Renderer) ImageURL(data string) string {
	size := strconv.Itoa(r.Size)
	q := url.Values{}
	q.Set("size", size+"x"+size)
	q.Set("data", data)
	return r.Endpoint + "?" + q.Encode()
}

func (r Renderer) PNG(data string) ([]byte, error) {
	png, err := qrcode.Encode(data, qrcode.Medium, r.Size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
