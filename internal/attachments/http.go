package attachments

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPResolver resolves attachment references against the file
// service's metadata endpoint.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *HTTPResolver) Resolve(attachmentId int) (Info, error) {
	resp, err := r.client.Get(fmt.Sprintf("%s/api/files/%d", r.baseURL, attachmentId))
	if err != nil {
		return Info{}, fmt.Errorf("fetch attachment %d: %w", attachmentId, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Info{}, ErrAttachmentNotFound
	default:
		return Info{}, fmt.Errorf("fetch attachment %d: unexpected status %d", attachmentId, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("decode attachment %d: %w", attachmentId, err)
	}

	return info, nil
}
