package registry

import (
	"context"
	"fmt"
)

// Tag points the tag in ref at an existing manifest digest.
func (c *Client) Tag(ctx context.Context, ref, digest string) error {
	tag, err := parseRef(ref)
	if err != nil {
		return err
	}
	if tag == "" || isDigest(tag) {
		return fmt.Errorf("%w: reference must include a tag", ErrInvalidReference)
	}

	// ORAS needs the media type to tag, so resolve the full descriptor.
	desc, err := c.oci.Resolve(ctx, ref, digest)
	if err != nil {
		return mapOCIError(err)
	}
	return mapOCIError(c.oci.Tag(ctx, ref, &desc, tag))
}
