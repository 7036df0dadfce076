package process

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPProbe returns a health check that expects a 2xx from url. A nil
// client means http.DefaultClient.
func HTTPProbe(client *http.Client, url string) func(ctx context.Context) error {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%s returned %d", url, resp.StatusCode)
		}
		return nil
	}
}
