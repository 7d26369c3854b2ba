package byteguard

import "context"

// ListFiles lists the caller's own file records.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	files, err := c.apiClient.ListMyFiles(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return files, nil
}

// FileMeta fetches one file record the caller may read.
func (c *Client) FileMeta(ctx context.Context, fileID uint) (*File, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	meta, err := c.apiClient.FileMeta(ctx, fileID)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return meta, nil
}

// DeleteFile removes a file the caller owns; every share referencing it is
// removed with it. Idempotent on a missing file.
func (c *Client) DeleteFile(ctx context.Context, fileID uint) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}
	return wrapAPIError(c.apiClient.DeleteFile(ctx, fileID))
}

// History lists the caller's audit rows, newest first.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	items, err := c.apiClient.GetHistory(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return items, nil
}

// ClearHistory removes all of the caller's audit rows.
func (c *Client) ClearHistory(ctx context.Context) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}
	return wrapAPIError(c.apiClient.ClearHistory(ctx))
}

// GetSettings fetches the caller's preferences, defaults when unset.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	settings, err := c.apiClient.GetSettings(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return settings, nil
}

// UpdateSettings upserts the caller's preferences.
func (c *Client) UpdateSettings(ctx context.Context, settings *Settings) (*Settings, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	updated, err := c.apiClient.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return updated, nil
}
