package byteguard

import "context"

// CreateGroup creates a group; the caller becomes its owner and an admin
// member.
func (c *Client) CreateGroup(ctx context.Context, name, description string) (*Group, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	group, err := c.apiClient.CreateGroup(ctx, name, description)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return group, nil
}

// ListGroups lists every group the caller owns or belongs to.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	groups, err := c.apiClient.ListGroups(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return groups, nil
}

// GetGroup fetches a group with its members and the share entries
// addressed to the caller.
func (c *Client) GetGroup(ctx context.Context, groupID uint) (*Group, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	group, err := c.apiClient.GetGroup(ctx, groupID)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return group, nil
}

// DeleteGroup removes a group the caller owns, along with its memberships
// and group shares.
func (c *Client) DeleteGroup(ctx context.Context, groupID uint) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}
	return wrapAPIError(c.apiClient.DeleteGroup(ctx, groupID))
}

// AddMember adds a researcher to a group. Admins and the owner only.
// Members added after a fan-out do not gain access to previously shared
// files until the file is re-shared.
func (c *Client) AddMember(ctx context.Context, groupID uint, researcherID, role string) (*GroupMember, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	member, err := c.apiClient.AddMember(ctx, groupID, researcherID, role)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return member, nil
}

// RemoveMember removes a researcher from a group. Future reads of
// group-shared files are revoked at the ledger; payloads the member
// already fetched cannot be rescinded.
func (c *Client) RemoveMember(ctx context.Context, groupID uint, researcherID string) error {
	if _, err := c.requireIdentity(); err != nil {
		return err
	}
	return wrapAPIError(c.apiClient.RemoveMember(ctx, groupID, researcherID))
}

// ListGroupShares lists every group share visible to the caller, each with
// the caller's own wrapped-key payload when one was recorded.
func (c *Client) ListGroupShares(ctx context.Context) ([]GroupShare, error) {
	if _, err := c.requireIdentity(); err != nil {
		return nil, err
	}
	shares, err := c.apiClient.ListGroupSharedFiles(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return shares, nil
}
